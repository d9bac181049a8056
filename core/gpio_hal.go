package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// NoPin marks a board signal that is not wired
const NoPin GPIOPin = 0xFFFFFFFF

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// ReadPin reads the current pin state
	ReadPin(pin GPIOPin) bool
}

// Pins is the board wiring used by the BMC. Unused signals are NoPin.
type Pins struct {
	PowerButton GPIOPin // active low
	ResetButton GPIOPin // active low
	PowerLED    GPIOPin
	DCEnable    GPIOPin
	SysReset    GPIOPin // low holds the host in reset
	HostIRQ     GPIOPin // active low
	Speaker     PWMPin
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// setPin drives pin if it is wired
func setPin(d GPIODriver, pin GPIOPin, value bool) {
	if d == nil || pin == NoPin {
		return
	}
	if err := d.SetPin(pin, value); err != nil {
		DebugPrintln("[GPIO] set pin " + utoa(uint32(pin)) + ": " + err.Error())
	}
}

// readActiveLow returns true while an active-low input is asserted
func readActiveLow(d GPIODriver, pin GPIOPin) bool {
	if d == nil || pin == NoPin {
		return false
	}
	return !d.ReadPin(pin)
}
