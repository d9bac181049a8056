package core

import "gobmc/protocol"

// SensorMonitor copies board temperature and rail voltages into their
// registers
type SensorMonitor struct {
	sensors SensorDriver
	store   *RegisterStore

	// Errors counts failed sensor reads
	Errors uint32
}

// NewSensorMonitor creates a monitor. sensors may be nil.
func NewSensorMonitor(sensors SensorDriver, store *RegisterStore) *SensorMonitor {
	return &SensorMonitor{sensors: sensors, store: store}
}

var railRegisters = [...]struct {
	rail    Rail
	address uint8
}{
	{Rail33S, protocol.RegSystemVoltage33S},
	{Rail33, protocol.RegSystemVoltage33},
	{Rail55, protocol.RegSystemVoltage55},
}

// Sample reads every sensor once
func (m *SensorMonitor) Sample() {
	if m.sensors == nil {
		return
	}

	if milli, err := m.sensors.ReadTemperature(); err == nil {
		m.store.Set(protocol.RegSystemTemperature, uint32(uint8(protocol.EncodeTemperature(milli))))
	} else {
		m.Errors++
	}

	for _, r := range railRegisters {
		mv, err := m.sensors.ReadRail(r.rail)
		if err != nil {
			m.Errors++
			continue
		}
		m.store.Set(r.address, uint32(protocol.EncodeVoltage(mv)))
	}
}
