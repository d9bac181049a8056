//go:build rp2040

package main

import (
	"machine"

	"gobmc/core"
)

// I2C buses. I2C0 is the board's own sensor bus; I2C1 is bridged to the
// host through the I2C registers.
var (
	sensorI2C = machine.I2C0
	hostI2C   = machine.I2C1
)

// configureI2C brings up both buses
func configureI2C() error {
	// I2C0 - SDA=GP4, SCL=GP5
	if err := sensorI2C.Configure(machine.I2CConfig{
		Frequency: 400000,
		SDA:       machine.GPIO4,
		SCL:       machine.GPIO5,
	}); err != nil {
		return err
	}

	// I2C1 - SDA=GP14, SCL=GP15. The bridge sets the rate from the
	// I2cBaudRate register at init.
	return hostI2C.Configure(machine.I2CConfig{
		Frequency: core.DefaultI2cBaudRate,
		SDA:       machine.GPIO14,
		SCL:       machine.GPIO15,
	})
}
