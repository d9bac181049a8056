package core

import "gobmc/protocol"

// Edge is a debounced button transition
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
)

// Debouncer turns raw button samples into clean edges. The last depth
// samples are kept as a bit pattern: it rises when the pattern becomes all
// pressed and falls when it becomes all released.
type Debouncer struct {
	history uint16
	mask    uint16
	pressed bool
}

// NewDebouncer creates a debouncer that needs depth matching samples (1-16)
func NewDebouncer(depth int) Debouncer {
	if depth < 1 || depth > 16 {
		Halt("debouncer depth out of range")
	}
	return Debouncer{mask: uint16(uint32(1)<<depth - 1)}
}

// Update feeds one sample and reports any edge it completes
func (d *Debouncer) Update(pressed bool) Edge {
	if (pressed && d.history == d.mask) || (!pressed && d.history == 0) {
		return EdgeNone
	}

	d.history <<= 1
	if pressed {
		d.history |= 1
	}
	d.history &= d.mask

	switch d.history {
	case d.mask:
		d.pressed = true
		return EdgeRising
	case 0:
		d.pressed = false
		return EdgeFalling
	}
	return EdgeNone
}

// Pressed reports the debounced state
func (d *Debouncer) Pressed() bool {
	return d.pressed
}

// DcPowerState tracks the main DC supply
type DcPowerState uint8

const (
	// DcPowerOff means the supply is off and the LED blinks
	DcPowerOff DcPowerState = iota
	// DcPowerStarting means the supply was just enabled and the power button
	// has not been released yet, so a long press cannot switch it off again
	DcPowerStarting
	// DcPowerOn means the supply is on; a long press turns it off
	DcPowerOn
)

func (s DcPowerState) String() string {
	switch s {
	case DcPowerOff:
		return "Off"
	case DcPowerStarting:
		return "Starting"
	case DcPowerOn:
		return "On"
	}
	return "Unknown"
}

// PowerSequencer owns the power and reset buttons, the DC enable and system
// reset outputs and the power LED
type PowerSequencer struct {
	gpio  GPIODriver
	pins  Pins
	store *RegisterStore

	state      DcPowerState
	powerShort Debouncer
	powerLong  Debouncer
	reset      Debouncer
	ledOn      bool
	resetHeld  bool
}

// NewPowerSequencer creates a sequencer with the supply off
func NewPowerSequencer(gpio GPIODriver, pins Pins, store *RegisterStore) *PowerSequencer {
	return &PowerSequencer{
		gpio:       gpio,
		pins:       pins,
		store:      store,
		powerShort: NewDebouncer(ShortPressPolls),
		powerLong:  NewDebouncer(LongPressPolls),
		reset:      NewDebouncer(ShortPressPolls),
	}
}

// Init configures the pins and drives the outputs to their off state
func (p *PowerSequencer) Init() error {
	if p.gpio == nil {
		return nil
	}
	for _, pin := range []GPIOPin{p.pins.PowerLED, p.pins.DCEnable, p.pins.SysReset} {
		if pin == NoPin {
			continue
		}
		if err := p.gpio.ConfigureOutput(pin); err != nil {
			return err
		}
	}
	for _, pin := range []GPIOPin{p.pins.PowerButton, p.pins.ResetButton} {
		if pin == NoPin {
			continue
		}
		if err := p.gpio.ConfigureInputPullUp(pin); err != nil {
			return err
		}
	}
	p.applyOff()
	return nil
}

// State returns the current DC power state
func (p *PowerSequencer) State() DcPowerState {
	return p.state
}

// PollButtons samples both buttons once and runs the power state machine
func (p *PowerSequencer) PollButtons() {
	pressed := readActiveLow(p.gpio, p.pins.PowerButton)
	short := p.powerShort.Update(pressed)
	long := p.powerLong.Update(pressed)

	switch {
	case long == EdgeNone && short == EdgeRising && p.state == DcPowerOff:
		DebugAsync("[POWER] button pressed whilst off, power on")
		p.store.RaiseInterrupt(protocol.IrqPowerButton)
		p.powerOn(DcPowerStarting)
	case long == EdgeNone && short == EdgeFalling && p.state == DcPowerStarting:
		p.setState(DcPowerOn)
	case long == EdgeRising && short == EdgeNone && p.state == DcPowerOn:
		DebugAsync("[POWER] button held whilst on, power off")
		p.store.RaiseInterrupt(protocol.IrqPowerButton)
		p.powerOff()
	case short == EdgeRising:
		p.store.RaiseInterrupt(protocol.IrqPowerButton)
	}

	p.pollReset()
	p.updateButtonStatus()
}

// pollReset pulses the system reset line for one poll on a reset press
func (p *PowerSequencer) pollReset() {
	if p.resetHeld {
		p.resetHeld = false
		if p.state != DcPowerOff {
			setPin(p.gpio, p.pins.SysReset, true)
		}
	}

	if p.reset.Update(readActiveLow(p.gpio, p.pins.ResetButton)) != EdgeRising {
		return
	}
	p.store.RaiseInterrupt(protocol.IrqResetButton)
	if p.state != DcPowerOff {
		DebugAsync("[POWER] reset button, resetting host")
		setPin(p.gpio, p.pins.SysReset, false)
		p.resetHeld = true
	}
}

func (p *PowerSequencer) updateButtonStatus() {
	var status uint32
	if p.powerShort.Pressed() {
		status |= uint32(protocol.ButtonPower)
	}
	if p.reset.Pressed() {
		status |= uint32(protocol.ButtonReset)
	}
	p.store.Set(protocol.RegButtonStatus, status)
}

// HandleWrite applies a host write to the PowerControl register
func (p *PowerSequencer) HandleWrite(address uint8) {
	if address != protocol.RegPowerControl {
		return
	}
	switch p.store.Uint8(protocol.RegPowerControl) {
	case protocol.PowerOn:
		if p.state == DcPowerOff {
			DebugAsync("[POWER] host requested power on")
			p.powerOn(DcPowerOn)
		}
	case protocol.PowerOff:
		if p.state != DcPowerOff {
			DebugAsync("[POWER] host requested power off")
			p.powerOff()
		}
	}
}

// BlinkLED toggles the power LED while the supply is off. The LED is solid
// in every other state.
func (p *PowerSequencer) BlinkLED() {
	if p.state != DcPowerOff {
		return
	}
	p.ledOn = !p.ledOn
	setPin(p.gpio, p.pins.PowerLED, p.ledOn)
}

// LEDOn reports the last level driven onto the power LED
func (p *PowerSequencer) LEDOn() bool {
	return p.ledOn
}

func (p *PowerSequencer) powerOn(next DcPowerState) {
	p.ledOn = true
	setPin(p.gpio, p.pins.PowerLED, true)
	setPin(p.gpio, p.pins.DCEnable, true)
	setPin(p.gpio, p.pins.SysReset, true)
	p.setState(next)
}

func (p *PowerSequencer) powerOff() {
	p.applyOff()
	p.setState(DcPowerOff)
}

func (p *PowerSequencer) applyOff() {
	p.ledOn = false
	p.resetHeld = false
	setPin(p.gpio, p.pins.PowerLED, false)
	setPin(p.gpio, p.pins.SysReset, false)
	setPin(p.gpio, p.pins.DCEnable, false)
}

func (p *PowerSequencer) setState(s DcPowerState) {
	if s == p.state {
		return
	}
	p.state = s
	RecordEvent(EvtPower, protocol.RegPowerControl, uint32(s))
	p.store.RaiseInterrupt(protocol.IrqPowerState)
	if s == DcPowerOff {
		p.store.Set(protocol.RegPowerControl, uint32(protocol.PowerOff))
	} else {
		p.store.Set(protocol.RegPowerControl, uint32(protocol.PowerOn))
	}
}
