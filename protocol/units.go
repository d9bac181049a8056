package protocol

// EncodeTemperature converts millidegrees to the whole-degree i8 register
// value, rounding to nearest and saturating
func EncodeTemperature(milliC int32) int8 {
	var c int32
	if milliC >= 0 {
		c = (milliC + 500) / 1000
	} else {
		c = (milliC - 500) / 1000
	}
	if c > 127 {
		return 127
	}
	if c < -128 {
		return -128
	}
	return int8(c)
}

// EncodeVoltage converts millivolts to the V/32 register value, saturating
func EncodeVoltage(mv uint32) uint8 {
	v := (mv*32 + 500) / 1000
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// DecodeVoltage converts a V/32 register value back to millivolts
func DecodeVoltage(v uint8) uint32 {
	return uint32(v) * 1000 / 32
}

// DecodeTemperature returns the SystemTemperature register in degrees C
func DecodeTemperature(v uint8) int8 {
	return int8(v)
}
