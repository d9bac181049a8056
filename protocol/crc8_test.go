package protocol

import "testing"

func TestCRC8Vectors(t *testing.T) {
	testCases := []struct {
		data     []byte
		expected uint8
	}{
		{data: []byte{}, expected: 0x00},
		{data: []byte{0xC0, 0x11, 0x03}, expected: 0xC6},
		{data: []byte{0xA0}, expected: 0x69},
		{data: []byte{0xA0, 0x69}, expected: 0x00},
		{data: []byte{0xC0, 0x10, 0x20}, expected: 0x3A},
		{data: []byte{0xC3, 0x11, 0x22}, expected: 0x9C},
		{data: []byte{0xA0, 0x00, 0x01}, expected: 0x4F},
		{data: []byte{0xA2}, expected: 0x67},
	}

	for i, tc := range testCases {
		result := CalculateCRC(tc.data)
		if result != tc.expected {
			t.Errorf("Test case %d: CalculateCRC(% X) = 0x%02X, expected 0x%02X",
				i, tc.data, result, tc.expected)
		}
	}
}

func TestCRC8SelfCheck(t *testing.T) {
	inputs := [][]byte{
		{0x00},
		{0xFF},
		{0x01, 0x02, 0x03, 0x04, 0x05},
		[]byte("gobmc"),
		{0xC5, 0x30, 0x40},
	}

	for _, data := range inputs {
		crc := CalculateCRC(data)
		framed := append(append([]byte{}, data...), crc)
		if got := CalculateCRC(framed); got != 0 {
			t.Errorf("CRC of % X with its CRC appended = 0x%02X, expected 0", data, got)
		}
	}
}

func TestCRCCalcIncremental(t *testing.T) {
	data := []byte{0xC0, 0x11, 0x03}

	calc := NewCRCCalc()
	for _, b := range data {
		calc.Add(b)
	}
	if calc.Get() != CalculateCRC(data) {
		t.Errorf("Incremental CRC 0x%02X does not match batch CRC 0x%02X",
			calc.Get(), CalculateCRC(data))
	}

	// Get does not consume the state
	if calc.Get() != 0xC6 {
		t.Errorf("Expected repeated Get to return 0xC6, got 0x%02X", calc.Get())
	}

	calc.Add(0xC6)
	if calc.Get() != 0 {
		t.Errorf("Expected zero residual after adding CRC, got 0x%02X", calc.Get())
	}

	calc.Reset()
	if calc.Get() != 0 {
		t.Errorf("Expected 0 after Reset, got 0x%02X", calc.Get())
	}

	calc.AddBuffer([]byte{0xA0})
	if calc.Get() != 0x69 {
		t.Errorf("Expected 0x69 after AddBuffer, got 0x%02X", calc.Get())
	}
}

func TestCRC8DetectsSingleBitErrors(t *testing.T) {
	frame := []byte{0xC0, 0x11, 0x03, 0xC6}

	for bit := 0; bit < len(frame)*8; bit++ {
		corrupt := append([]byte{}, frame...)
		corrupt[bit/8] ^= 1 << (bit % 8)
		if CalculateCRC(corrupt) == 0 {
			t.Errorf("Flipping bit %d went undetected", bit)
		}
	}
}
