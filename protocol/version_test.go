package protocol

import (
	"errors"
	"testing"
)

func TestProtocolVersionCompatibility(t *testing.T) {
	testCases := []struct {
		have, want ProtocolVersion
		expected   bool
	}{
		{NewProtocolVersion(1, 1, 1), NewProtocolVersion(1, 1, 0), true},
		{NewProtocolVersion(1, 0, 0), NewProtocolVersion(1, 1, 0), false},
		{NewProtocolVersion(2, 0, 0), NewProtocolVersion(1, 1, 0), false},
		{NewProtocolVersion(1, 2, 0), NewProtocolVersion(1, 1, 9), true},
		{NewProtocolVersion(1, 1, 0), NewProtocolVersion(1, 1, 0), true},
		{NewProtocolVersion(1, 1, 0), NewProtocolVersion(1, 1, 1), false},
	}

	for _, tc := range testCases {
		if got := tc.have.IsCompatibleWith(tc.want); got != tc.expected {
			t.Errorf("%v.IsCompatibleWith(%v) = %v, expected %v", tc.have, tc.want, got, tc.expected)
		}
	}
}

func TestProtocolVersionWire(t *testing.T) {
	v := NewProtocolVersion(1, 2, 3)
	b := v.Bytes()

	parsed, err := ParseProtocolVersion(b[:])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if parsed != v {
		t.Errorf("Expected %v, got %v", v, parsed)
	}

	if _, err := ParseProtocolVersion(b[:2]); !errors.Is(err, ErrBadLength) {
		t.Errorf("Expected ErrBadLength, got %v", err)
	}

	if _, err := v.RenderToBuffer(make([]byte, 2)); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
}

func TestProtocolVersionString(t *testing.T) {
	if s := NewProtocolVersion(1, 10, 255).String(); s != "1.10.255" {
		t.Errorf("Expected 1.10.255, got %s", s)
	}
	if s := CurrentProtocolVersion.String(); s != "1.0.0" {
		t.Errorf("Expected 1.0.0, got %s", s)
	}
}
