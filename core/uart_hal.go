package core

// UARTDriver is the serial port bridged through the UART registers.
// The method set matches TinyGo's *machine.UART so targets can register
// a hardware UART directly.
type UARTDriver interface {
	// SetBaudRate changes the line rate
	SetBaudRate(br uint32)

	// WriteByte transmits one byte
	WriteByte(c byte) error

	// Buffered returns the number of received bytes waiting
	Buffered() int

	// ReadByte returns the next received byte
	ReadByte() (byte, error)
}

// Global singleton used by core code.
var uartDriver UARTDriver

// SetUARTDriver is called by target-specific code to register its driver.
func SetUARTDriver(d UARTDriver) {
	uartDriver = d
}

// MustUART returns the configured driver or panics if missing.
func MustUART() UARTDriver {
	if uartDriver == nil {
		panic("UART driver not configured")
	}
	return uartDriver
}
