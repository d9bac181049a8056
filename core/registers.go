package core

import (
	"encoding/binary"

	"gobmc/protocol"
)

// fifoPair is the two directions of a FIFO register. Host reads drain rx,
// host writes fill tx.
type fifoPair struct {
	rx *protocol.FifoBuffer
	tx *protocol.FifoBuffer
}

// RegisterStore holds the live value of every register in the catalog.
// It belongs to the main loop; nothing in interrupt context touches it.
type RegisterStore struct {
	values   [256]uint32 // registers up to four bytes wide, little-endian
	firmware [protocol.FirmwareStringLen]byte
	version  protocol.ProtocolVersion
	fifos    [256]*fifoPair
}

// NewRegisterStore creates a store with power-on defaults
func NewRegisterStore() *RegisterStore {
	s := &RegisterStore{}
	for _, reg := range protocol.Registers() {
		if reg.IsFIFO() {
			s.fifos[reg.Address] = &fifoPair{
				rx: protocol.NewFifoBuffer(int(reg.Len)),
				tx: protocol.NewFifoBuffer(int(reg.Len)),
			}
		}
	}
	s.Reset()
	return s
}

// Reset restores power-on defaults and empties every FIFO
func (s *RegisterStore) Reset() {
	for i := range s.values {
		s.values[i] = 0
	}
	for _, f := range s.fifos {
		if f != nil {
			f.rx.Reset()
			f.tx.Reset()
		}
	}
	s.version = protocol.CurrentProtocolVersion
	s.SetFirmwareVersion(protocol.Version)

	s.values[protocol.RegUartBaudRate] = DefaultUartBaudRate
	s.values[protocol.RegI2cBaudRate] = DefaultI2cBaudRate
	s.values[protocol.RegUartStatus] = uint32(protocol.StatusTxEmpty)
	s.values[protocol.RegSpeakerPeriodLow] = DefaultSpeakerPeriod & 0xFF
	s.values[protocol.RegSpeakerPeriodHigh] = DefaultSpeakerPeriod >> 8
	s.values[protocol.RegSpeakerDutyCycle] = DefaultSpeakerDutyCycle
	s.values[protocol.RegPs2KbControl] = uint32(ControlEnable)
	s.values[protocol.RegPs2MouseControl] = uint32(ControlEnable)
	s.values[protocol.RegPs2KbStatus] = uint32(protocol.StatusTxEmpty)
	s.values[protocol.RegPs2MouseStatus] = uint32(protocol.StatusTxEmpty)
}

// SetFirmwareVersion stores the firmware string, truncated and NUL padded
func (s *RegisterStore) SetFirmwareVersion(v string) {
	for i := range s.firmware {
		s.firmware[i] = 0
	}
	copy(s.firmware[:], v)
}

func (s *RegisterStore) firmwareString() string {
	n := 0
	for n < len(s.firmware) && s.firmware[n] != 0 {
		n++
	}
	return string(s.firmware[:n])
}

// Read copies the value of reg into buf and returns how many bytes were
// produced. FIFO reads drain up to len(buf) bytes and may return fewer.
func (s *RegisterStore) Read(reg protocol.RegisterInfo, buf []byte) int {
	switch {
	case reg.Address == protocol.RegProtocolVersion:
		n, _ := s.version.RenderToBuffer(buf)
		return n
	case reg.Address == protocol.RegFirmwareVersion:
		return copy(buf, s.firmware[:])
	case reg.IsFIFO():
		return s.fifos[reg.Address].rx.Read(buf)
	}

	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], s.values[reg.Address])
	return copy(buf, le[:reg.Len])
}

// Write applies a host write to reg. The caller has checked that the
// register is writable and that the length is valid for it.
func (s *RegisterStore) Write(reg protocol.RegisterInfo, data []byte) error {
	if reg.IsFIFO() {
		tx := s.fifos[reg.Address].tx
		if len(data) > tx.Free() {
			return protocol.ErrBadLength
		}
		tx.Write(data)
		return nil
	}

	var le [4]byte
	copy(le[:], data)
	v := binary.LittleEndian.Uint32(le[:])

	if reg.Access == protocol.AccessRW1C {
		s.values[reg.Address] &^= v
		return nil
	}
	s.values[reg.Address] = v
	return nil
}

// Uint8 returns a single byte register
func (s *RegisterStore) Uint8(address uint8) uint8 {
	return uint8(s.values[address])
}

// Uint16 returns a two byte register
func (s *RegisterStore) Uint16(address uint8) uint16 {
	return uint16(s.values[address])
}

// Uint32 returns a four byte register
func (s *RegisterStore) Uint32(address uint8) uint32 {
	return s.values[address]
}

// Set replaces the value of a numeric register from the firmware side
func (s *RegisterStore) Set(address uint8, v uint32) {
	s.values[address] = v
}

// SetBits raises bits in a status register from the firmware side
func (s *RegisterStore) SetBits(address uint8, bits uint32) {
	s.values[address] |= bits
}

// ClearBits drops bits from the firmware side
func (s *RegisterStore) ClearBits(address uint8, bits uint32) {
	s.values[address] &^= bits
}

// RxFifo returns the device-to-host queue of a FIFO register
func (s *RegisterStore) RxFifo(address uint8) *protocol.FifoBuffer {
	if f := s.fifos[address]; f != nil {
		return f.rx
	}
	return nil
}

// TxFifo returns the host-to-device queue of a FIFO register
func (s *RegisterStore) TxFifo(address uint8) *protocol.FifoBuffer {
	if f := s.fifos[address]; f != nil {
		return f.tx
	}
	return nil
}

// RaiseInterrupt sets bits in InterruptStatus
func (s *RegisterStore) RaiseInterrupt(bits uint16) {
	s.SetBits(protocol.RegInterruptStatus, uint32(bits))
}

// InterruptPending reports whether any enabled interrupt is active
func (s *RegisterStore) InterruptPending() bool {
	return s.Uint16(protocol.RegInterruptStatus)&s.Uint16(protocol.RegInterruptControl) != 0
}
