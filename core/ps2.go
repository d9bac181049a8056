package core

import (
	"sync/atomic"

	"gobmc/protocol"
)

// Ps2WordBits is the length of a device-to-host PS/2 frame: start bit,
// eight data bits LSB first, odd parity, stop bit
const Ps2WordBits = 11

// Ps2Decoder collects PS/2 bits into 11-bit words
type Ps2Decoder struct {
	bitCount  uint8
	collector uint16
	idle      uint8
}

// Reset drops any partial word
func (d *Ps2Decoder) Reset() {
	d.bitCount = 0
	d.collector = 0
	d.idle = 0
}

// AddBit stores one bit sampled on a falling clock edge. It returns the
// complete word once eleven bits are in.
func (d *Ps2Decoder) AddBit(bit bool) (uint16, bool) {
	d.idle = 0
	if bit {
		d.collector |= 1 << d.bitCount
	}
	d.bitCount++
	if d.bitCount == Ps2WordBits {
		word := d.collector
		d.Reset()
		return word, true
	}
	return 0, false
}

// Tick is called periodically. A word that stops arriving part way through
// is abandoned after Ps2IdleTicks quiet ticks so the next one starts clean.
func (d *Ps2Decoder) Tick() {
	if d.bitCount == 0 {
		return
	}
	d.idle++
	if d.idle >= Ps2IdleTicks {
		d.Reset()
	}
}

// CheckWord validates the start, parity and stop bits of an 11-bit word and
// returns its data byte
func CheckWord(word uint16) (uint8, bool) {
	startBit := word&0x0001 != 0
	parityBit := word&0x0200 != 0
	stopBit := word&0x0400 != 0
	data := uint8(word >> 1)

	if startBit || !stopBit {
		return 0, false
	}

	// Odd parity: the parity bit is set when the data has an even number of ones
	if parityBit != (onesCount8(data)%2 == 0) {
		return 0, false
	}
	return data, true
}

func onesCount8(b uint8) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

// ps2QueueLen must be a power of two
const ps2QueueLen = 16

// ps2Queue carries words from the clock-edge interrupt to the main loop.
// Single producer, single consumer.
type ps2Queue struct {
	words [ps2QueueLen]uint16
	head  atomic.Uint32 // written by the producer
	tail  atomic.Uint32 // written by the consumer
}

func (q *ps2Queue) push(w uint16) bool {
	head := q.head.Load()
	if head-q.tail.Load() == ps2QueueLen {
		return false
	}
	q.words[head%ps2QueueLen] = w
	q.head.Store(head + 1)
	return true
}

func (q *ps2Queue) pop() (uint16, bool) {
	tail := q.tail.Load()
	if tail == q.head.Load() {
		return 0, false
	}
	w := q.words[tail%ps2QueueLen]
	q.tail.Store(tail + 1)
	return w, true
}

// Ps2Port is one PS/2 device port, keyboard or mouse, and its registers
type Ps2Port struct {
	store   *RegisterStore
	buffer  uint8
	status  uint8
	control uint8
	irq     uint16

	decoder Ps2Decoder
	queue   ps2Queue

	// Overflows counts bytes lost because a queue or the FIFO was full
	Overflows uint32
	// BadWords counts words that failed framing or parity checks
	BadWords uint32
}

// NewKeyboardPort creates the keyboard port
func NewKeyboardPort(store *RegisterStore) *Ps2Port {
	return &Ps2Port{
		store:   store,
		buffer:  protocol.RegPs2KbBuffer,
		status:  protocol.RegPs2KbStatus,
		control: protocol.RegPs2KbControl,
		irq:     protocol.IrqPs2KbRx,
	}
}

// NewMousePort creates the mouse port
func NewMousePort(store *RegisterStore) *Ps2Port {
	return &Ps2Port{
		store:   store,
		buffer:  protocol.RegPs2MouseBuffer,
		status:  protocol.RegPs2MouseStatus,
		control: protocol.RegPs2MouseControl,
		irq:     protocol.IrqPs2MouseRx,
	}
}

// ClockEdge is called from the clock pin interrupt with the level of the
// data pin. Completed words are queued for the main loop.
func (p *Ps2Port) ClockEdge(data bool) {
	if word, ok := p.decoder.AddBit(data); ok {
		p.QueueWord(word)
	}
}

// QueueWord hands a complete 11-bit word to the main loop. Receivers that
// assemble words in hardware call it directly.
func (p *Ps2Port) QueueWord(word uint16) {
	if !p.queue.push(word) {
		p.Overflows++
	}
}

// Tick runs the idle timeout of the bit decoder from the main loop
func (p *Ps2Port) Tick() {
	state := disableInterrupts()
	p.decoder.Tick()
	restoreInterrupts(state)
}

// HandleWord validates a complete word and queues its byte for the host
func (p *Ps2Port) HandleWord(word uint16) {
	if p.store.Uint8(p.control)&ControlEnable == 0 {
		return
	}
	data, ok := CheckWord(word)
	if !ok {
		p.BadWords++
		p.store.SetBits(p.status, uint32(protocol.StatusError))
		return
	}
	if !p.store.RxFifo(p.buffer).Push(data) {
		p.Overflows++
		p.store.SetBits(p.status, uint32(protocol.StatusRxOverflow))
		return
	}
	p.store.RaiseInterrupt(p.irq)
}

// Poll drains words queued by ClockEdge and refreshes the status register
func (p *Ps2Port) Poll() {
	for {
		word, ok := p.queue.pop()
		if !ok {
			break
		}
		p.HandleWord(word)
	}

	if p.store.RxFifo(p.buffer).IsEmpty() {
		p.store.ClearBits(p.status, uint32(protocol.StatusRxReady))
	} else {
		p.store.SetBits(p.status, uint32(protocol.StatusRxReady))
	}
	// Host-to-device transmission is not wired; bytes stay queued
	if p.store.TxFifo(p.buffer).IsEmpty() {
		p.store.SetBits(p.status, uint32(protocol.StatusTxEmpty))
	} else {
		p.store.ClearBits(p.status, uint32(protocol.StatusTxEmpty))
	}
}
