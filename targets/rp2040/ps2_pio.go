//go:build rp2040

package main

// PS/2 receiver using the tinygo-org/pio package. A state machine samples
// the data line on each falling clock edge and pushes whole 11-bit words, so
// the CPU sees one FIFO entry per byte instead of one interrupt per bit.

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"gobmc/core"
)

// PIO program. IN base is the data pin and the clock pin sits right above it.
//
//	.wrap_target
//	wait 0 pin 1    ; clock falls
//	in pins, 1      ; sample data
//	wait 1 pin 1    ; clock rises
//	.wrap
//
// Encoded by hand: wait is 001 pol src(01=pin) index, in is 010 src(000=pins)
// bitcount.
var ps2RxProgram = []uint16{
	0x2021, // wait 0 pin 1
	0x4001, // in pins, 1
	0x20A1, // wait 1 pin 1
}

const ps2RxOrigin = -1 // Load anywhere; the program has no jumps

// PIOPs2Receiver feeds a core.Ps2Port from a PIO state machine
type PIOPs2Receiver struct {
	pio   *rp2pio.PIO
	sm    rp2pio.StateMachine
	data  machine.Pin
	clock machine.Pin
	port  *core.Ps2Port
}

// NewPIOPs2Receiver creates a receiver on PIO pioNum, state machine smNum.
// The clock pin must be data+1.
func NewPIOPs2Receiver(pioNum, smNum uint8, data machine.Pin, port *core.Ps2Port) *PIOPs2Receiver {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &PIOPs2Receiver{
		pio:   pioHW,
		sm:    pioHW.StateMachine(smNum),
		data:  data,
		clock: data + 1,
		port:  port,
	}
}

// Init loads the program and starts the state machine
func (r *PIOPs2Receiver) Init() error {
	r.sm.TryClaim()

	offset, err := r.pio.AddProgram(ps2RxProgram, ps2RxOrigin)
	if err != nil {
		return err
	}

	// Both lines are open collector with pull-ups; the PIO only reads them
	r.data.Configure(machine.PinConfig{Mode: r.pio.PinMode()})
	r.clock.Configure(machine.PinConfig{Mode: r.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetInPins(r.data)
	// Shift right, autopush after a full word
	cfg.SetInShift(true, true, core.Ps2WordBits)
	cfg.SetWrap(offset+uint8(len(ps2RxProgram))-1, offset)
	// 125MHz / 1250 = 100kHz sampling, well above the 16.7kHz PS/2 clock
	cfg.SetClkDivIntFrac(1250, 0)

	r.sm.Init(offset, cfg)
	r.sm.SetPindirsConsecutive(r.data, 2, false)
	r.sm.SetEnabled(true)
	return nil
}

// Poll moves completed words from the RX FIFO to the port
func (r *PIOPs2Receiver) Poll() {
	for !r.sm.IsRxFIFOEmpty() {
		// Right shifting leaves the first bit at 32-11
		r.port.QueueWord(uint16(r.sm.RxGet() >> (32 - core.Ps2WordBits)))
	}
}

// GPIOPs2Receiver decodes a PS/2 port in software from clock edge
// interrupts. Used for the mouse port.
type GPIOPs2Receiver struct {
	data  machine.Pin
	clock machine.Pin
	port  *core.Ps2Port
}

// NewGPIOPs2Receiver creates a software receiver
func NewGPIOPs2Receiver(data, clock machine.Pin, port *core.Ps2Port) *GPIOPs2Receiver {
	return &GPIOPs2Receiver{data: data, clock: clock, port: port}
}

// Init configures the pins and starts sampling on falling clock edges
func (r *GPIOPs2Receiver) Init() error {
	r.data.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	r.clock.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return r.clock.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		r.port.ClockEdge(r.data.Get())
	})
}
