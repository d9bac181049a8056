package sim

import (
	"errors"
	"sync"
	"time"

	"gobmc/core"
)

// Simulated pin map
var Pins = core.Pins{
	PowerButton: 2,
	ResetButton: 3,
	PowerLED:    25,
	DCEnable:    4,
	SysReset:    5,
	HostIRQ:     6,
	Speaker:     7,
}

// GPIO is an in-memory pin bank. Inputs float high.
type GPIO struct {
	mu      sync.Mutex
	levels  map[core.GPIOPin]bool
	outputs map[core.GPIOPin]bool
}

// NewGPIO creates a pin bank with every pin high
func NewGPIO() *GPIO {
	return &GPIO{
		levels:  make(map[core.GPIOPin]bool),
		outputs: make(map[core.GPIOPin]bool),
	}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[pin] = true
	g.levels[pin] = false
	return nil
}

func (g *GPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.levels[pin]; !ok {
		g.levels[pin] = true
	}
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.outputs[pin] {
		return errors.New("pin not configured as output")
	}
	g.levels[pin] = value
	return nil
}

func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	level, ok := g.levels[pin]
	return level || !ok
}

// Level returns the level last driven on or applied to pin
func (g *GPIO) Level(pin core.GPIOPin) bool {
	return g.ReadPin(pin)
}

// Press holds an active-low button down or lets it go
func (g *GPIO) Press(pin core.GPIOPin, down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.levels[pin] = !down
}

// PWM records the speaker output
type PWM struct {
	Cycle map[core.PWMPin]uint32
	Duty  map[core.PWMPin]core.PWMValue
}

// NewPWM creates a silent PWM bank
func NewPWM() *PWM {
	return &PWM{
		Cycle: make(map[core.PWMPin]uint32),
		Duty:  make(map[core.PWMPin]core.PWMValue),
	}
}

func (p *PWM) ConfigureHardwarePWM(pin core.PWMPin, cycleTicks uint32) (uint32, error) {
	p.Cycle[pin] = cycleTicks
	return cycleTicks, nil
}

func (p *PWM) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	p.Duty[pin] = value
	return nil
}

func (p *PWM) GetMaxValue() uint32 { return 0xFFFF }

func (p *PWM) DisablePWM(pin core.PWMPin) error {
	delete(p.Cycle, pin)
	delete(p.Duty, pin)
	return nil
}

// Sensors returns settable readings. Rails are only live while the DC
// supply is enabled, except the standby rail.
type Sensors struct {
	mu     sync.Mutex
	gpio   *GPIO
	MilliC int32
	Rails  map[core.Rail]uint32
}

// NewSensors creates nominal readings
func NewSensors(gpio *GPIO) *Sensors {
	return &Sensors{
		gpio:   gpio,
		MilliC: 31500,
		Rails: map[core.Rail]uint32{
			core.Rail33S: 3310,
			core.Rail33:  3295,
			core.Rail55:  5020,
		},
	}
}

func (s *Sensors) ReadRail(rail core.Rail) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rail != core.Rail33S && !s.gpio.Level(Pins.DCEnable) {
		return 0, nil
	}
	mv, ok := s.Rails[rail]
	if !ok {
		return 0, errors.New("no such rail")
	}
	return mv, nil
}

func (s *Sensors) ReadTemperature() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.MilliC, nil
}

// SetTemperature changes the board temperature reading
func (s *Sensors) SetTemperature(milliC int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MilliC = milliC
}

// UART loops transmitted bytes back to the receiver, like a console with
// local echo
type UART struct {
	Baud uint32
	buf  []byte
}

func (u *UART) SetBaudRate(br uint32) { u.Baud = br }

func (u *UART) WriteByte(c byte) error {
	u.buf = append(u.buf, c)
	return nil
}

func (u *UART) Buffered() int { return len(u.buf) }

func (u *UART) ReadByte() (byte, error) {
	if len(u.buf) == 0 {
		return 0, errors.New("uart: no data")
	}
	c := u.buf[0]
	u.buf = u.buf[1:]
	return c, nil
}

// I2C is a bus with a TMP102-style temperature sensor at 0x48
type I2C struct {
	Baud    uint32
	sensors *Sensors
	pointer byte
}

// TempSensorAddr is the address the simulated temperature sensor answers on
const TempSensorAddr = 0x48

var errNack = errors.New("i2c: no acknowledge")

func (b *I2C) SetBaudRate(br uint32) error {
	b.Baud = br
	return nil
}

func (b *I2C) Tx(addr uint16, w, r []byte) error {
	if addr != TempSensorAddr {
		return errNack
	}
	if len(w) > 0 {
		b.pointer = w[0]
	}
	if len(r) == 0 {
		return nil
	}
	if b.pointer != 0 {
		return errNack
	}
	// 12-bit two's complement, 0.0625C per LSB, left aligned
	milli, _ := b.sensors.ReadTemperature()
	raw := int16(milli*16/1000) << 4
	r[0] = byte(uint16(raw) >> 8)
	if len(r) > 1 {
		r[1] = byte(raw)
	}
	return nil
}

// Board is a complete simulated BMC
type Board struct {
	BMC        *core.BMC
	Peripheral *Peripheral
	GPIO       *GPIO
	PWM        *PWM
	Sensors    *Sensors
	UART       *UART
	I2C        *I2C

	start time.Time
}

// NewBoard builds and initializes a simulated BMC. The firmware core keeps
// global timer state, so only one Board should run at a time.
func NewBoard() (*Board, error) {
	gpio := NewGPIO()
	sensors := NewSensors(gpio)
	b := &Board{
		Peripheral: NewPeripheral(),
		GPIO:       gpio,
		PWM:        NewPWM(),
		Sensors:    sensors,
		UART:       &UART{},
		I2C:        &I2C{sensors: sensors},
		start:      time.Now(),
	}
	b.BMC = core.New(core.Config{
		SPI:     b.Peripheral,
		GPIO:    b.GPIO,
		PWM:     b.PWM,
		Sensors: b.Sensors,
		UART:    b.UART,
		I2C:     b.I2C,
		Pins:    Pins,
	})

	tr := b.BMC.Transport
	b.Peripheral.SetHandlers(func() { tr.HandleInterrupt() }, func(selected bool) {
		if selected {
			tr.Select()
		} else {
			tr.Deselect()
		}
	})

	core.SetTime(0)
	core.TimerInit()
	if err := b.BMC.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// Poll advances the firmware clock to wall time and runs the main loop once
func (b *Board) Poll() {
	core.SetTime(uint32(time.Since(b.start).Microseconds()))
	b.BMC.Poll()
	b.Peripheral.Service()
}

// Advance moves the firmware clock forward by d, running the main loop at
// every button poll interval on the way. Used to press buttons in tests.
func (b *Board) Advance(d time.Duration) {
	step := time.Duration(core.ButtonPollIntervalMS) * time.Millisecond
	for d > 0 {
		s := step
		if d < s {
			s = d
		}
		b.start = b.start.Add(-s)
		b.Poll()
		d -= s
	}
}
