//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"gobmc/core"
)

// RP2040 SPI0 (ARM PL022) memory map
const (
	spi0Base = 0x4003C000

	sspCR0  = 0x00
	sspCR1  = 0x04
	sspDR   = 0x08
	sspSR   = 0x0C
	sspCPSR = 0x10
	sspIMSC = 0x14
	sspICR  = 0x20
)

// SSPSR bits
const (
	srTNF = 1 << 1 // transmit FIFO not full
	srRNE = 1 << 2 // receive FIFO not empty
)

// SSPIMSC bits
const (
	imscRXIM = 1 << 2
	imscTXIM = 1 << 3
)

// SSPCR1 bits
const (
	cr1SSE = 1 << 1 // port enable
	cr1MS  = 1 << 2 // peripheral (slave) mode
)

// SSPCR0 for 8-bit Motorola frames in SPI mode 3. Mode 3 lets the host hold
// chip select low across a whole transaction; with SPH=0 the PL022 needs a
// chip select pulse between bytes.
const cr0Mode3x8 = 0x7 | 1<<6 | 1<<7

// Reset block bit for SPI0 in RESETS
const resetSPI0 = 1 << 16

func sspReg(off uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(spi0Base) + off))
}

var (
	regCR0  = sspReg(sspCR0)
	regCR1  = sspReg(sspCR1)
	regDR   = sspReg(sspDR)
	regSR   = sspReg(sspSR)
	regCPSR = sspReg(sspCPSR)
	regIMSC = sspReg(sspIMSC)
	regICR  = sspReg(sspICR)
)

// PL022Peripheral drives SPI0 in peripheral mode for the BMC link
type PL022Peripheral struct {
	rx, cs, sck, tx machine.Pin
}

// NewPL022Peripheral creates the driver. Call Configure before use.
func NewPL022Peripheral(rx, cs, sck, tx machine.Pin) *PL022Peripheral {
	return &PL022Peripheral{rx: rx, cs: cs, sck: sck, tx: tx}
}

// Configure routes the pins to SPI0 and programs the block
func (p *PL022Peripheral) Configure() {
	for _, pin := range []machine.Pin{p.rx, p.cs, p.sck, p.tx} {
		pin.Configure(machine.PinConfig{Mode: machine.PinSPI})
	}
	p.Reset()
}

func (p *PL022Peripheral) Status() core.SPIStatus {
	sr := regSR.Get()
	var s core.SPIStatus
	if sr&srRNE != 0 {
		s |= core.SPIRxNotEmpty
	}
	if sr&srTNF != 0 {
		s |= core.SPITxEmpty
	}
	return s
}

func (p *PL022Peripheral) ReadData() byte {
	return byte(regDR.Get())
}

func (p *PL022Peripheral) WriteData(b byte) {
	regDR.Set(uint32(b))
}

func (p *PL022Peripheral) SetRxInterrupt(enabled bool) {
	if enabled {
		regIMSC.SetBits(imscRXIM)
	} else {
		regIMSC.ClearBits(imscRXIM)
	}
}

func (p *PL022Peripheral) SetTxInterrupt(enabled bool) {
	if enabled {
		regIMSC.SetBits(imscTXIM)
	} else {
		regIMSC.ClearBits(imscTXIM)
	}
}

func (p *PL022Peripheral) Enable() {
	regCR1.SetBits(cr1SSE)
}

// Disable turns the port off and drains both FIFOs. The PL022 has no FIFO
// flush, so the transmit side is cleared by a block reset.
func (p *PL022Peripheral) Disable() {
	regCR1.ClearBits(cr1SSE)
	for regSR.Get()&srRNE != 0 {
		regDR.Get()
	}
	imsc := regIMSC.Get()
	p.Reset()
	regIMSC.Set(imsc)
}

// Reset pulses the SPI0 block reset and reprograms it for peripheral mode
func (p *PL022Peripheral) Reset() {
	rp.RESETS.RESET.SetBits(resetSPI0)
	rp.RESETS.RESET.ClearBits(resetSPI0)
	for rp.RESETS.RESET_DONE.Get()&resetSPI0 == 0 {
	}

	regCR0.Set(cr0Mode3x8)
	regCPSR.Set(2)
	regCR1.Set(cr1MS)
	regIMSC.Set(0)
	regICR.Set(0x3)
}

// Selected reads the chip select pin, which is active low
func (p *PL022Peripheral) Selected() bool {
	return !p.cs.Get()
}

// Interrupt wiring. TinyGo interrupt handlers must be top-level functions.
var (
	linkTransport *core.Transport
	linkSPI       *PL022Peripheral
)

func spi0Handler(interrupt.Interrupt) {
	linkTransport.HandleInterrupt()
}

// startLinkInterrupts enables the SPI0 interrupt and the chip select edge
// interrupt that brackets each transaction
func startLinkInterrupts(p *PL022Peripheral, t *core.Transport) error {
	linkSPI = p
	linkTransport = t

	irq := interrupt.New(rp.IRQ_SPI0_IRQ, spi0Handler)
	irq.SetPriority(0x40)
	irq.Enable()

	return p.cs.SetInterrupt(machine.PinToggle, func(pin machine.Pin) {
		if linkSPI.Selected() {
			linkTransport.Select()
		} else {
			linkTransport.Deselect()
		}
	})
}
