package core

// SPIStatus is the set of pending peripheral flags
type SPIStatus uint8

const (
	// SPIRxNotEmpty is set while the receive FIFO holds at least one byte
	SPIRxNotEmpty SPIStatus = 1 << iota
	// SPITxEmpty is set while the transmit FIFO can take another byte
	SPITxEmpty
)

// SPIPeripheral is the abstract peripheral-mode SPI interface the transport
// engine drives. The host owns the clock and chip select; the peripheral only
// shifts bytes in and out as the host clocks them.
// Platform-specific implementations handle actual hardware control.
type SPIPeripheral interface {
	// Status returns the pending RX/TX flags
	Status() SPIStatus

	// ReadData pops one byte from the receive FIFO
	ReadData() byte

	// WriteData pushes one byte into the transmit FIFO
	WriteData(b byte)

	// SetRxInterrupt enables or disables the RX-not-empty interrupt
	SetRxInterrupt(enabled bool)

	// SetTxInterrupt enables or disables the TX-empty interrupt
	SetTxInterrupt(enabled bool)

	// Enable switches the peripheral on when chip select is asserted
	Enable()

	// Disable switches the peripheral off when chip select is released,
	// dropping anything left in either FIFO
	Disable()

	// Reset returns the peripheral to its power-on configuration
	Reset()

	// Selected reports whether chip select is currently asserted
	Selected() bool
}

// Global singleton used by core code.
var spiPeripheral SPIPeripheral

// SetSPIPeripheral is called by target-specific code to register its driver.
func SetSPIPeripheral(p SPIPeripheral) {
	spiPeripheral = p
}

// MustSPIPeripheral returns the configured driver or panics if missing.
func MustSPIPeripheral() SPIPeripheral {
	if spiPeripheral == nil {
		panic("SPI peripheral not configured")
	}
	return spiPeripheral
}
