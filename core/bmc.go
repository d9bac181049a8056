package core

// Config is everything the target hands to the BMC. Drivers other than SPI
// may be nil on boards that lack the hardware.
type Config struct {
	SPI     SPIPeripheral
	GPIO    GPIODriver
	PWM     PWMDriver
	Sensors SensorDriver
	UART    UARTDriver
	I2C     I2CDriver
	Pins    Pins
}

// BMC wires the protocol link to the board functions behind the registers
type BMC struct {
	Transport  *Transport
	Store      *RegisterStore
	Dispatcher *Dispatcher
	Link       *Link
	Power      *PowerSequencer
	Speaker    *Speaker
	Keyboard   *Ps2Port
	Mouse      *Ps2Port
	UART       *UartBridge
	I2C        *I2cBridge
	Sensors    *SensorMonitor

	gpio GPIODriver
	pins Pins

	blinkTimer  Timer
	buttonTimer Timer
	sensorTimer Timer
	irqAsserted bool
}

// New builds a BMC from cfg
func New(cfg Config) *BMC {
	store := NewRegisterStore()
	transport := NewTransport(cfg.SPI)
	dispatcher := NewDispatcher(store)

	b := &BMC{
		Transport:  transport,
		Store:      store,
		Dispatcher: dispatcher,
		Link:       NewLink(transport, dispatcher),
		Power:      NewPowerSequencer(cfg.GPIO, cfg.Pins, store),
		Speaker:    NewSpeaker(cfg.PWM, cfg.Pins.Speaker, store),
		Keyboard:   NewKeyboardPort(store),
		Mouse:      NewMousePort(store),
		UART:       NewUartBridge(cfg.UART, store),
		I2C:        NewI2cBridge(cfg.I2C, store),
		Sensors:    NewSensorMonitor(cfg.Sensors, store),
		gpio:       cfg.GPIO,
		pins:       cfg.Pins,
	}
	dispatcher.OnWrite(b.handleWrite)

	b.blinkTimer.Handler = b.blink
	b.buttonTimer.Handler = b.pollButtons
	b.sensorTimer.Handler = b.sampleSensors
	return b
}

// Init configures the board and starts the periodic tasks
func (b *BMC) Init() error {
	if err := b.Power.Init(); err != nil {
		return err
	}
	if b.gpio != nil && b.pins.HostIRQ != NoPin {
		if err := b.gpio.ConfigureOutput(b.pins.HostIRQ); err != nil {
			return err
		}
		setPin(b.gpio, b.pins.HostIRQ, true)
	}
	b.UART.Init()
	if err := b.I2C.Init(); err != nil {
		return err
	}
	b.Sensors.Sample()

	ResetTimers()
	now := GetTime()
	b.blinkTimer.WakeTime = now + TimerFromMS(LedBlinkIntervalMS)
	b.buttonTimer.WakeTime = now + TimerFromMS(ButtonPollIntervalMS)
	b.sensorTimer.WakeTime = now + TimerFromMS(SensorPollIntervalMS)
	ScheduleTimer(&b.blinkTimer)
	ScheduleTimer(&b.buttonTimer)
	ScheduleTimer(&b.sensorTimer)

	DebugPrintln("[BMC] " + b.Store.firmwareString() + " ready")
	return nil
}

// Poll runs one pass of the main loop. It returns true if a frame was
// handled.
func (b *BMC) Poll() bool {
	handled := b.Link.Poll()
	ProcessTimers()
	b.Keyboard.Poll()
	b.Mouse.Poll()
	b.UART.Poll()
	b.I2C.Poll()
	b.updateIRQ()
	return handled
}

// IRQAsserted reports whether the host interrupt line is active
func (b *BMC) IRQAsserted() bool {
	return b.irqAsserted
}

func (b *BMC) handleWrite(address uint8) {
	b.Power.HandleWrite(address)
	b.Speaker.HandleWrite(address)
	b.UART.HandleWrite(address)
	b.I2C.HandleWrite(address)
}

// updateIRQ drives the active-low host interrupt line
func (b *BMC) updateIRQ() {
	pending := b.Store.InterruptPending()
	if pending == b.irqAsserted {
		return
	}
	b.irqAsserted = pending
	setPin(b.gpio, b.pins.HostIRQ, !pending)
}

func (b *BMC) blink(t *Timer) uint8 {
	b.Power.BlinkLED()
	t.WakeTime += TimerFromMS(LedBlinkIntervalMS)
	return SF_RESCHEDULE
}

func (b *BMC) pollButtons(t *Timer) uint8 {
	b.Power.PollButtons()
	b.Keyboard.Tick()
	b.Mouse.Tick()
	t.WakeTime += TimerFromMS(ButtonPollIntervalMS)
	return SF_RESCHEDULE
}

func (b *BMC) sampleSensors(t *Timer) uint8 {
	b.Sensors.Sample()
	t.WakeTime += TimerFromMS(SensorPollIntervalMS)
	return SF_RESCHEDULE
}
