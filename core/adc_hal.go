package core

// Rail identifies a monitored supply rail
type Rail uint8

const (
	Rail33S Rail = iota // standby 3.3V
	Rail33              // main 3.3V
	Rail55              // 5.0V
)

// SensorDriver is the abstract board sensor interface that core code uses.
// Rails are usually ADC channels behind a divider; the temperature may come
// from an I2C sensor or the chip's own diode.
type SensorDriver interface {
	// ReadRail samples a supply rail and returns it in millivolts
	ReadRail(rail Rail) (uint32, error)

	// ReadTemperature returns the board temperature in millidegrees Celsius
	ReadTemperature() (int32, error)
}

// Global singleton used by core code.
var sensorDriver SensorDriver

// SetSensorDriver is called by target-specific code to register its driver.
func SetSensorDriver(d SensorDriver) {
	sensorDriver = d
}

// MustSensors returns the configured driver or panics if missing.
func MustSensors() SensorDriver {
	if sensorDriver == nil {
		panic("sensor driver not configured")
	}
	return sensorDriver
}
