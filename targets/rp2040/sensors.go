//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"

	"tinygo.org/x/drivers/tmp102"

	"gobmc/core"
)

const tmp102Addr = 0x48

// railInput is an ADC channel behind a resistor divider
type railInput struct {
	adc machine.ADC
	// Divider ratio times 1000, e.g. 2000 for a 1:1 divider
	scale uint32
}

// RpSensorDriver implements core.SensorDriver: rails on ADC0-ADC2 and the
// board temperature from a TMP102, falling back to the die sensor
type RpSensorDriver struct {
	arefMilliVolt uint32
	rails         map[core.Rail]*railInput

	tmp       tmp102.Device
	hasTmp102 bool
}

// NewRpSensorDriver configures the ADC inputs and probes for a TMP102 on bus
func NewRpSensorDriver(bus *machine.I2C) *RpSensorDriver {
	machine.InitADC()

	d := &RpSensorDriver{
		arefMilliVolt: 3300,
		rails: map[core.Rail]*railInput{
			core.Rail33S: {adc: machine.ADC{Pin: machine.ADC0}, scale: 2000},
			core.Rail33:  {adc: machine.ADC{Pin: machine.ADC1}, scale: 2000},
			core.Rail55:  {adc: machine.ADC{Pin: machine.ADC2}, scale: 2000},
		},
	}
	for _, r := range d.rails {
		r.adc.Configure(machine.ADCConfig{})
	}

	d.tmp = tmp102.New(bus)
	d.tmp.Configure(tmp102.Config{Address: tmp102Addr})
	d.hasTmp102 = d.tmp.Connected()
	if !d.hasTmp102 {
		core.DebugPrintln("[SENSORS] no TMP102, using die temperature")
	}
	return d
}

// ReadRail samples a rail and returns millivolts at the rail
func (d *RpSensorDriver) ReadRail(rail core.Rail) (uint32, error) {
	r, ok := d.rails[rail]
	if !ok {
		return 0, errors.New("no such rail")
	}
	// machine.ADC.Get scales every sample to 16 bits
	raw := uint32(r.adc.Get())
	pin := raw * d.arefMilliVolt / 0xFFFF
	return pin * r.scale / 1000, nil
}

// ReadTemperature returns millidegrees Celsius
func (d *RpSensorDriver) ReadTemperature() (int32, error) {
	if d.hasTmp102 {
		return d.tmp.ReadTemperature()
	}
	return d.dieTemperature(), nil
}

// dieTemperature reads the RP2040's internal sensor on ADC channel 4:
// T = 27 - (V - 0.706) / 0.001721
func (d *RpSensorDriver) dieTemperature() int32 {
	rp.ADC.CS.SetBits(rp.ADC_CS_TS_EN)

	const tempChannel = 4
	rp.ADC.CS.ReplaceBits(
		uint32(tempChannel)<<rp.ADC_CS_AINSEL_Pos,
		rp.ADC_CS_AINSEL_Msk,
		0,
	)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}

	// 12-bit result to microvolts
	uv := int64(rp.ADC.RESULT.Get()) * int64(d.arefMilliVolt) * 1000 / 4095
	return int32(27000 - (uv-706000)*1000/1721)
}
