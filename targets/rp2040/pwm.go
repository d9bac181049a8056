//go:build rp2040

package main

import (
	"machine"

	"gobmc/core"
)

// PWM_MAX is the duty cycle scale the speaker uses
const PWM_MAX = 255

// pwmPeripheral is an interface for PWM hardware peripherals
// This abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
	SetPeriod(period uint64) error
}

// RP2040PWMDriver implements core.PWMDriver on the RP2040's 8 PWM slices
type RP2040PWMDriver struct {
	// Track pin to channel mapping
	channels map[uint32]uint8

	// Track PWM peripherals for each slice
	peripherals map[uint8]pwmPeripheral
}

// NewRP2040PWMDriver creates a new RP2040 PWM driver
func NewRP2040PWMDriver() *RP2040PWMDriver {
	return &RP2040PWMDriver{
		channels:    make(map[uint32]uint8),
		peripherals: make(map[uint8]pwmPeripheral),
	}
}

// GetMaxValue returns the maximum PWM value (255)
func (d *RP2040PWMDriver) GetMaxValue() uint32 {
	return PWM_MAX
}

// ConfigureHardwarePWM starts a pin at the given period. cycleTicks is in
// core timer ticks, which are microseconds on this chip.
func (d *RP2040PWMDriver) ConfigureHardwarePWM(pin core.PWMPin, cycleTicks uint32) (uint32, error) {
	pinNum := uint32(pin)

	// GPIO pin N maps to slice (N >> 1) & 0x7, channel N & 1
	sliceNum := uint8((pinNum >> 1) & 0x7)
	period := uint64(cycleTicks) * 1000

	pwm, exists := d.peripherals[sliceNum]
	if exists {
		// Changing pitch while a note plays must not glitch the channel
		if err := pwm.SetPeriod(period); err != nil {
			return 0, err
		}
	} else {
		pwm = getPWMPeripheral(sliceNum)
		if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
			return 0, err
		}
		d.peripherals[sliceNum] = pwm
	}

	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return 0, err
	}
	d.channels[pinNum] = channel

	return cycleTicks, nil
}

// SetDutyCycle sets the PWM duty cycle for a pin, 0 to 255
func (d *RP2040PWMDriver) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	pinNum := uint32(pin)
	channel, exists := d.channels[pinNum]
	if !exists {
		return nil
	}
	pwm := d.peripherals[uint8((pinNum>>1)&0x7)]

	// Scale 0-255 to 0-Top()
	top := pwm.Top()
	pwm.Set(channel, (uint32(value)*top)/PWM_MAX)
	return nil
}

// DisablePWM silences a pin. TinyGo cannot hand the pin back to GPIO, so
// it is left in PWM mode driving low.
func (d *RP2040PWMDriver) DisablePWM(pin core.PWMPin) error {
	pinNum := uint32(pin)
	if channel, exists := d.channels[pinNum]; exists {
		d.peripherals[uint8((pinNum>>1)&0x7)].Set(channel, 0)
		delete(d.channels, pinNum)
	}
	return nil
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
