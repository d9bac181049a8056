// Package bridge reaches the BMC through a USB SPI bridge: a small
// controller-mode adapter that asserts chip select and clocks bytes on the
// host's behalf. The bridge is driven over a serial port or a websocket.
package bridge

import (
	"io"
	"time"
)

// Port is the byte stream to the bridge adapter.
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Websocket (a bridge shared over the network)
// - Mock port (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush discards any bytes the adapter sent that were not read yet
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC adapters ignore this)
	Baud int

	// Read timeout (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration the reference bridge firmware
// expects
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 500 * time.Millisecond,
	}
}
