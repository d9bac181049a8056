package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gobmc/host/bridge"
	"gobmc/host/client"
	"gobmc/host/monitor"
	"gobmc/protocol"
)

var (
	listenAddr   string
	pollInterval time.Duration
	mqttBroker   string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the BMC protocol and firmware versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer.Close()
		return printVersion(c, cmd.OutOrStdout())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show power, buttons, temperature and rails",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer.Close()
		return printStatus(c, cmd.OutOrStdout())
	},
}

var powerCmd = &cobra.Command{
	Use:       "power <on|off>",
	Short:     "Switch the host DC supply",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer.Close()
		return setPower(c, cmd.OutOrStdout(), args[0])
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Export BMC sensors as Prometheus metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		m := monitor.New(c, log, pollInterval)
		if mqttBroker != "" {
			sink, err := monitor.DialMQTT(mqttBroker)
			if err != nil {
				return err
			}
			defer sink.Close()
			m.PublishTo(sink)
			log.Infow("publishing readings", "prefix", sink.TopicPrefix)
		}
		return m.Run(ctx, listenAddr)
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a bridge may be attached to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := bridge.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&listenAddr, "listen", ":9105", "Address to serve /metrics on")
	monitorCmd.Flags().DurationVar(&pollInterval, "interval", 5*time.Second, "Register poll interval")
	monitorCmd.Flags().StringVar(&mqttBroker, "mqtt", "", "Also publish readings to this broker, e.g. mqtt://host:1883/bmc")
	rootCmd.AddCommand(versionCmd, statusCmd, powerCmd, monitorCmd, portsCmd)
}

func printVersion(c *client.Client, out io.Writer) error {
	v, err := c.ProtocolVersion()
	if err != nil {
		return err
	}
	fw, err := c.FirmwareVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Protocol: %s\nFirmware: %s\n", v, fw)
	return nil
}

func printStatus(c *client.Client, out io.Writer) error {
	read := func(reg uint8) (byte, error) {
		d, err := c.Read(reg, 1)
		if err != nil {
			return 0, err
		}
		return d[0], nil
	}

	power, err := read(protocol.RegPowerControl)
	if err != nil {
		return err
	}
	buttons, err := read(protocol.RegButtonStatus)
	if err != nil {
		return err
	}
	temp, err := read(protocol.RegSystemTemperature)
	if err != nil {
		return err
	}

	state := "off"
	if power&protocol.PowerOn != 0 {
		state = "on"
	}
	fmt.Fprintf(out, "Power:       %s\n", state)
	fmt.Fprintf(out, "Buttons:     power=%t reset=%t\n",
		buttons&protocol.ButtonPower != 0, buttons&protocol.ButtonReset != 0)
	fmt.Fprintf(out, "Temperature: %d C\n", protocol.DecodeTemperature(temp))

	for _, reg := range []uint8{protocol.RegSystemVoltage33S, protocol.RegSystemVoltage33, protocol.RegSystemVoltage55} {
		v, err := read(reg)
		if err != nil {
			return err
		}
		info, _ := protocol.LookupRegister(reg)
		fmt.Fprintf(out, "%-18s %d mV\n", info.Name+":", protocol.DecodeVoltage(v))
	}
	return nil
}

func setPower(c *client.Client, out io.Writer, arg string) error {
	var v uint8
	switch arg {
	case "on":
		v = protocol.PowerOn
	case "off":
		v = protocol.PowerOff
	default:
		return fmt.Errorf("power state must be on or off, got %q", arg)
	}
	if err := c.ShortWrite(protocol.RegPowerControl, v); err != nil {
		return err
	}
	fmt.Fprintf(out, "Power: %s\n", arg)
	return nil
}
