package core

// I2CDriver is the bus bridged through the I2C registers.
// The method set matches TinyGo's *machine.I2C so targets can register
// a hardware bus directly.
type I2CDriver interface {
	// SetBaudRate changes the bus clock
	SetBaudRate(br uint32) error

	// Tx writes w to the device at addr, then reads len(r) bytes into r.
	// Either slice may be empty.
	Tx(addr uint16, w, r []byte) error
}

// Global singleton used by core code.
var i2cDriver I2CDriver

// SetI2CDriver is called by target-specific code to register its driver.
func SetI2CDriver(d I2CDriver) {
	i2cDriver = d
}

// MustI2C returns the configured driver or panics if missing.
func MustI2C() I2CDriver {
	if i2cDriver == nil {
		panic("I2C driver not configured")
	}
	return i2cDriver
}
