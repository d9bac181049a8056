package core

import (
	"testing"

	"gobmc/protocol"
)

// ps2Word frames data with a start bit, odd parity and a stop bit
func ps2Word(data uint8) uint16 {
	word := uint16(data)<<1 | 1<<10
	if onesCount8(data)%2 == 0 {
		word |= 1 << 9
	}
	return word
}

func clockWord(p *Ps2Port, word uint16) {
	for i := 0; i < Ps2WordBits; i++ {
		p.ClockEdge(word&(1<<i) != 0)
	}
}

func TestCheckWord(t *testing.T) {
	for _, data := range []uint8{0x00, 0x1C, 0xAA, 0xF0, 0xFF} {
		got, ok := CheckWord(ps2Word(data))
		if !ok || got != data {
			t.Errorf("0x%02X: expected valid, got 0x%02X %v", data, got, ok)
		}
	}

	good := ps2Word(0x1C)
	testCases := []struct {
		name string
		word uint16
	}{
		{"start bit set", good | 1},
		{"stop bit clear", good &^ (1 << 10)},
		{"parity flipped", good ^ (1 << 9)},
		{"data bit flipped", good ^ (1 << 3)},
	}
	for _, tc := range testCases {
		if _, ok := CheckWord(tc.word); ok {
			t.Errorf("%s: expected invalid", tc.name)
		}
	}
}

func TestPs2DecoderTimeout(t *testing.T) {
	var d Ps2Decoder
	for i := 0; i < 5; i++ {
		d.AddBit(false)
	}
	for i := 0; i < Ps2IdleTicks; i++ {
		d.Tick()
	}

	word := ps2Word(0x5A)
	var got uint16
	var ok bool
	for i := 0; i < Ps2WordBits; i++ {
		got, ok = d.AddBit(word&(1<<i) != 0)
	}
	if !ok || got != word {
		t.Errorf("Expected 0x%03X after the timeout, got 0x%03X %v", word, got, ok)
	}
}

func TestPs2DecoderTickDuringWord(t *testing.T) {
	var d Ps2Decoder
	d.AddBit(false)
	d.Tick()
	d.Tick()
	d.AddBit(true) // resets the idle count
	d.Tick()
	d.Tick()
	if d.bitCount != 2 {
		t.Errorf("Expected the partial word kept, got %d bits", d.bitCount)
	}
}

func TestPs2PortReceive(t *testing.T) {
	store := NewRegisterStore()
	kb := NewKeyboardPort(store)

	clockWord(kb, ps2Word(0x1C))
	clockWord(kb, ps2Word(0xF0))
	kb.Poll()

	buf := make([]byte, 4)
	n := store.RxFifo(protocol.RegPs2KbBuffer).Read(buf)
	if n != 2 || buf[0] != 0x1C || buf[1] != 0xF0 {
		t.Errorf("Expected 1C F0, got % X", buf[:n])
	}
	if store.Uint16(protocol.RegInterruptStatus)&protocol.IrqPs2KbRx == 0 {
		t.Error("Expected the keyboard interrupt")
	}
	if store.Uint16(protocol.RegInterruptStatus)&protocol.IrqPs2MouseRx != 0 {
		t.Error("Unexpected mouse interrupt")
	}

	kb.Poll()
	if store.Uint8(protocol.RegPs2KbStatus)&protocol.StatusRxReady != 0 {
		t.Error("Expected RxReady clear once drained")
	}
}

func TestPs2PortBadWord(t *testing.T) {
	store := NewRegisterStore()
	mouse := NewMousePort(store)

	clockWord(mouse, ps2Word(0x08)^(1<<9))
	mouse.Poll()

	if mouse.BadWords != 1 {
		t.Errorf("Expected 1 bad word, got %d", mouse.BadWords)
	}
	if store.Uint8(protocol.RegPs2MouseStatus)&protocol.StatusError == 0 {
		t.Error("Expected the error status bit")
	}
	if !store.RxFifo(protocol.RegPs2MouseBuffer).IsEmpty() {
		t.Error("A bad word reached the FIFO")
	}
}

func TestPs2PortDisabled(t *testing.T) {
	store := NewRegisterStore()
	kb := NewKeyboardPort(store)
	store.Set(protocol.RegPs2KbControl, 0)

	clockWord(kb, ps2Word(0x1C))
	kb.Poll()
	if !store.RxFifo(protocol.RegPs2KbBuffer).IsEmpty() {
		t.Error("A disabled port queued data")
	}
}

func TestPs2PortOverflow(t *testing.T) {
	store := NewRegisterStore()
	kb := NewKeyboardPort(store)

	for i := 0; i < protocol.Ps2FifoCapacity+1; i++ {
		kb.HandleWord(ps2Word(uint8(i)))
	}
	if kb.Overflows != 1 {
		t.Errorf("Expected 1 overflow, got %d", kb.Overflows)
	}
	if store.Uint8(protocol.RegPs2KbStatus)&protocol.StatusRxOverflow == 0 {
		t.Error("Expected the overflow status bit")
	}
}

func TestPs2PortQueueWord(t *testing.T) {
	store := NewRegisterStore()
	mouse := NewMousePort(store)

	mouse.QueueWord(ps2Word(0x08))
	mouse.QueueWord(ps2Word(0x08) ^ 0x0200)
	mouse.Poll()

	buf := make([]byte, 4)
	n := store.RxFifo(protocol.RegPs2MouseBuffer).Read(buf)
	if n != 1 || buf[0] != 0x08 {
		t.Errorf("Expected 08, got % X", buf[:n])
	}
	if mouse.BadWords != 1 {
		t.Errorf("Expected 1 bad word, got %d", mouse.BadWords)
	}
}
