package protocol

import (
	"bytes"
	"testing"
)

func FuzzRequestFromBytes(f *testing.F) {
	f.Add([]byte{0xC0, 0x10, 0x20, 0x3A})
	f.Add([]byte{0xC3, 0x11, 0x22, 0x9C})
	f.Add([]byte{0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		req, err := RequestFromBytes(data)
		if err != nil {
			return
		}
		b := req.Bytes()
		if !bytes.Equal(b[:], data[:RequestLen]) {
			t.Errorf("Decoded request re-encodes as % X, input was % X", b, data[:RequestLen])
		}
	})
}

func FuzzResponseFromBytes(f *testing.F) {
	f.Add([]byte{0xA0, 0x69})
	f.Add([]byte{0xA0, 0x00, 0x01, 0x4F})

	f.Fuzz(func(t *testing.T, data []byte) {
		resp, err := ResponseFromBytes(data)
		if err != nil {
			return
		}
		if !bytes.Equal(resp.Bytes(), data) {
			t.Errorf("Decoded response re-encodes as % X, input was % X", resp.Bytes(), data)
		}
	})
}
