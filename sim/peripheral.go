// Package sim runs the firmware core in-process against software models of
// the board hardware. It backs the host tests and the --sim mode of the CLI.
package sim

import "gobmc/core"

// FifoDepth matches the 8-entry FIFOs of the RP2040 SSP block
const FifoDepth = 8

type byteFifo struct {
	buf  [FifoDepth]byte
	head int
	n    int
}

func (f *byteFifo) push(b byte) bool {
	if f.n == FifoDepth {
		return false
	}
	f.buf[(f.head+f.n)%FifoDepth] = b
	f.n++
	return true
}

func (f *byteFifo) pop() (byte, bool) {
	if f.n == 0 {
		return 0, false
	}
	b := f.buf[f.head]
	f.head = (f.head + 1) % FifoDepth
	f.n--
	return b, true
}

func (f *byteFifo) reset() {
	f.head = 0
	f.n = 0
}

// Peripheral is a software peripheral-mode SPI block. The host side calls
// Select and Clock; the firmware side sees a core.SPIPeripheral whose
// interrupt handler runs synchronously whenever an enabled flag is raised.
type Peripheral struct {
	rx, tx   byteFifo
	rxIE     bool
	txIE     bool
	enabled  bool
	selected bool

	isr      func()
	csChange func(selected bool)

	// RxOverruns counts bytes lost because the receive FIFO was full
	RxOverruns int
	// TxUnderruns counts bytes clocked out with nothing staged
	TxUnderruns int
	// Resets counts full peripheral resets
	Resets int
}

var _ core.SPIPeripheral = (*Peripheral)(nil)

// NewPeripheral creates an idle peripheral with chip select released
func NewPeripheral() *Peripheral {
	return &Peripheral{}
}

// SetHandlers installs the SPI and chip-select interrupt handlers
func (p *Peripheral) SetHandlers(isr func(), csChange func(selected bool)) {
	p.isr = isr
	p.csChange = csChange
}

// Status implements core.SPIPeripheral
func (p *Peripheral) Status() core.SPIStatus {
	var s core.SPIStatus
	if p.rx.n > 0 {
		s |= core.SPIRxNotEmpty
	}
	if p.tx.n < FifoDepth {
		s |= core.SPITxEmpty
	}
	return s
}

// ReadData implements core.SPIPeripheral
func (p *Peripheral) ReadData() byte {
	b, _ := p.rx.pop()
	return b
}

// WriteData implements core.SPIPeripheral
func (p *Peripheral) WriteData(b byte) {
	p.tx.push(b)
}

// SetRxInterrupt implements core.SPIPeripheral
func (p *Peripheral) SetRxInterrupt(enabled bool) { p.rxIE = enabled }

// SetTxInterrupt implements core.SPIPeripheral
func (p *Peripheral) SetTxInterrupt(enabled bool) { p.txIE = enabled }

// Enable implements core.SPIPeripheral
func (p *Peripheral) Enable() { p.enabled = true }

// Disable implements core.SPIPeripheral
func (p *Peripheral) Disable() {
	p.enabled = false
	p.rx.reset()
	p.tx.reset()
}

// Reset implements core.SPIPeripheral
func (p *Peripheral) Reset() {
	p.Disable()
	p.rxIE = false
	p.txIE = false
	p.Resets++
}

// Selected implements core.SPIPeripheral
func (p *Peripheral) Selected() bool { return p.selected }

// Select drives chip select and runs the chip-select interrupt on a change
func (p *Peripheral) Select(selected bool) {
	if selected == p.selected {
		return
	}
	p.selected = selected
	if p.csChange != nil {
		p.csChange(selected)
	}
}

// Clock shifts one byte in from the host and returns the byte shifted out
// in the same cycle
func (p *Peripheral) Clock(in byte) byte {
	out := core.TxFiller
	if p.enabled {
		if b, ok := p.tx.pop(); ok {
			out = b
		} else {
			p.TxUnderruns++
		}
		if !p.rx.push(in) {
			p.RxOverruns++
		}
	}
	p.Service()
	return out
}

// Service runs the SPI interrupt handler for as long as an enabled flag is
// pending, the way the NVIC would re-enter it
func (p *Peripheral) Service() {
	if p.isr == nil {
		return
	}
	for i := 0; i < 2*FifoDepth+1 && p.pending(); i++ {
		p.isr()
	}
}

func (p *Peripheral) pending() bool {
	s := p.Status()
	return (p.rxIE && s&core.SPIRxNotEmpty != 0) || (p.txIE && s&core.SPITxEmpty != 0)
}
