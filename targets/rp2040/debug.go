//go:build rp2040

package main

import (
	"machine"

	"gobmc/core"
	"gobmc/protocol"
)

var debugUART *machine.UART

// initDebugUART brings up UART0 on GPIO0 (TX) and GPIO1 (RX) at 115200 and
// routes core debug output to it
func initDebugUART() {
	debugUART = machine.UART0

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO0,
		RX:       machine.GPIO1,
	})
	if err != nil {
		return
	}

	core.SetDebugWriter(debugPrintln)
	core.SetDebugEnabled(true)

	debugPrintln("=== " + protocol.Version + " ===")
}

// debugPrintln writes a line to the debug UART
func debugPrintln(s string) {
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
