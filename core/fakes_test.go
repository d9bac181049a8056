package core

import (
	"errors"
	"testing"

	"gobmc/protocol"
)

// fakeSPI is an in-memory SPIPeripheral. Bytes queued in rxq are what the
// host clocks in; everything the transport writes lands in sent.
type fakeSPI struct {
	rxq      []byte
	sent     []byte
	rxIRQ    bool
	txIRQ    bool
	enabled  bool
	selected bool
	resets   int
}

func (f *fakeSPI) Status() SPIStatus {
	s := SPITxEmpty
	if len(f.rxq) > 0 {
		s |= SPIRxNotEmpty
	}
	return s
}

func (f *fakeSPI) ReadData() byte {
	b := f.rxq[0]
	f.rxq = f.rxq[1:]
	return b
}

func (f *fakeSPI) WriteData(b byte)            { f.sent = append(f.sent, b) }
func (f *fakeSPI) SetRxInterrupt(enabled bool) { f.rxIRQ = enabled }
func (f *fakeSPI) SetTxInterrupt(enabled bool) { f.txIRQ = enabled }
func (f *fakeSPI) Enable()                     { f.enabled = true }
func (f *fakeSPI) Selected() bool              { return f.selected }

func (f *fakeSPI) Disable() {
	f.enabled = false
	f.rxq = nil
}

func (f *fakeSPI) Reset() {
	f.resets++
	f.rxq = nil
	f.rxIRQ = false
	f.txIRQ = false
}

// testLink bundles a transport and link over a fake peripheral
type testLink struct {
	spi       *fakeSPI
	transport *Transport
	store     *RegisterStore
	disp      *Dispatcher
	link      *Link
}

func newTestLink() *testLink {
	spi := &fakeSPI{}
	tr := NewTransport(spi)
	store := NewRegisterStore()
	disp := NewDispatcher(store)
	return &testLink{
		spi:       spi,
		transport: tr,
		store:     store,
		disp:      disp,
		link:      NewLink(tr, disp),
	}
}

func (l *testLink) selectCS() {
	l.spi.selected = true
	l.transport.Select()
}

func (l *testLink) deselectCS() {
	l.spi.selected = false
	l.transport.Deselect()
}

// clockIn delivers bytes one interrupt at a time and reports which
// deliveries completed a frame
func (l *testLink) clockIn(data []byte) []bool {
	done := make([]bool, len(data))
	for i, b := range data {
		l.spi.rxq = append(l.spi.rxq, b)
		done[i] = l.transport.HandleInterrupt()
	}
	return done
}

// clockOut runs n transmit interrupts and returns the bytes written
func (l *testLink) clockOut(n int) []byte {
	l.spi.sent = nil
	for i := 0; i < n; i++ {
		l.transport.HandleInterrupt()
	}
	return l.spi.sent
}

// transact runs one complete transaction and returns rxLen response bytes
func (l *testLink) transact(req []byte, rxLen int) []byte {
	l.selectCS()
	l.clockIn(req)
	l.link.Poll()
	out := l.clockOut(rxLen)
	l.deselectCS()
	return out
}

// longWrite runs a two-phase long write and returns rxLen response bytes
func (l *testLink) longWrite(header, payload []byte, rxLen int) []byte {
	l.selectCS()
	l.clockIn(header)
	l.link.Poll()
	l.clockIn(payload)
	l.link.Poll()
	out := l.clockOut(rxLen)
	l.deselectCS()
	return out
}

func requestBytes(r protocol.Request) []byte {
	b := r.Bytes()
	return b[:]
}

func decodeResponse(t *testing.T, wire []byte) protocol.Response {
	t.Helper()
	n, ok := protocol.FindResponseEnd(wire)
	if !ok {
		t.Fatalf("No response in % X", wire)
	}
	resp, err := protocol.ResponseFromBytes(wire[:n])
	if err != nil {
		t.Fatalf("Decoding % X: %v", wire[:n], err)
	}
	return resp
}

// fakeGPIO records outputs and serves inputs from a map
type fakeGPIO struct {
	outputs map[GPIOPin]bool
	inputs  map[GPIOPin]bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{
		outputs: make(map[GPIOPin]bool),
		inputs:  make(map[GPIOPin]bool),
	}
}

func (g *fakeGPIO) ConfigureOutput(pin GPIOPin) error {
	g.outputs[pin] = false
	return nil
}

func (g *fakeGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	g.inputs[pin] = true
	return nil
}

func (g *fakeGPIO) SetPin(pin GPIOPin, value bool) error {
	g.outputs[pin] = value
	return nil
}

func (g *fakeGPIO) ReadPin(pin GPIOPin) bool {
	return g.inputs[pin]
}

// press holds an active-low button down
func (g *fakeGPIO) press(pin GPIOPin, down bool) {
	g.inputs[pin] = !down
}

var testPins = Pins{
	PowerButton: 1,
	ResetButton: 2,
	PowerLED:    3,
	DCEnable:    4,
	SysReset:    5,
	HostIRQ:     6,
	Speaker:     7,
}

// fakePWM records the last configuration of each pin
type fakePWM struct {
	cycle map[PWMPin]uint32
	duty  map[PWMPin]PWMValue
}

func newFakePWM() *fakePWM {
	return &fakePWM{
		cycle: make(map[PWMPin]uint32),
		duty:  make(map[PWMPin]PWMValue),
	}
}

func (p *fakePWM) ConfigureHardwarePWM(pin PWMPin, cycleTicks uint32) (uint32, error) {
	p.cycle[pin] = cycleTicks
	return cycleTicks, nil
}

func (p *fakePWM) SetDutyCycle(pin PWMPin, value PWMValue) error {
	p.duty[pin] = value
	return nil
}

func (p *fakePWM) GetMaxValue() uint32 { return 255 }

func (p *fakePWM) DisablePWM(pin PWMPin) error {
	delete(p.cycle, pin)
	return nil
}

// fakeUART loops nothing back; rx is what the far end sent
type fakeUART struct {
	baud uint32
	rx   []byte
	tx   []byte
}

func (u *fakeUART) SetBaudRate(br uint32) { u.baud = br }

func (u *fakeUART) WriteByte(c byte) error {
	u.tx = append(u.tx, c)
	return nil
}

func (u *fakeUART) Buffered() int { return len(u.rx) }

func (u *fakeUART) ReadByte() (byte, error) {
	if len(u.rx) == 0 {
		return 0, errors.New("empty")
	}
	c := u.rx[0]
	u.rx = u.rx[1:]
	return c, nil
}

// fakeI2C answers reads with a fixed pattern
type fakeI2C struct {
	baud  uint32
	addr  uint16
	wrote []byte
	reply []byte
	err   error
}

func (b *fakeI2C) SetBaudRate(br uint32) error {
	b.baud = br
	return nil
}

func (b *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	b.addr = addr
	b.wrote = append([]byte{}, w...)
	copy(r, b.reply)
	return nil
}

// fakeSensors returns fixed readings
type fakeSensors struct {
	milliC int32
	rails  map[Rail]uint32
	err    error
}

func (s *fakeSensors) ReadRail(rail Rail) (uint32, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.rails[rail], nil
}

func (s *fakeSensors) ReadTemperature() (int32, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.milliC, nil
}
