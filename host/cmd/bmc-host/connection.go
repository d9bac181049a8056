package main

import (
	"fmt"
	"io"

	"gobmc/host/bridge"
	"gobmc/host/client"
	"gobmc/sim"
)

// busCloser is a client.Bus that owns a connection
type busCloser interface {
	client.Bus
	io.Closer
}

// openBus opens the simulator, a websocket bridge or a serial bridge based
// on flags
func openBus() (busCloser, string, error) {
	if useSim {
		bus, err := sim.Open()
		if err != nil {
			return nil, "", err
		}
		return bus, "simulator", nil
	}

	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = bridge.Password()
			if err != nil {
				return nil, "", err
			}
		}
		port, err := bridge.DialWebSocket(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return bridge.New(port, log), fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		cfg := bridge.DefaultConfig(portName)
		cfg.Baud = baudRate
		cfg.ReadTimeout = timeout
		port, err := bridge.Open(cfg)
		if err != nil {
			return nil, "", err
		}
		return bridge.New(port, log), fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("one of --port, --url or --sim must be specified")
}

// connect opens the bus and checks the BMC speaks a compatible protocol
func connect() (*client.Client, io.Closer, error) {
	bus, info, err := openBus()
	if err != nil {
		return nil, nil, err
	}
	log.Debugw("connected", "bus", info)

	c := client.New(bus, client.WithRetries(retries), client.WithLogger(log))
	if err := c.CheckCompatible(protocolRequired); err != nil {
		bus.Close()
		return nil, nil, err
	}
	return c, bus, nil
}
