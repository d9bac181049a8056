//go:build rp2040

package main

import (
	"machine"
	"time"

	"gobmc/core"
)

// Board wiring
var pins = core.Pins{
	PowerButton: core.GPIOPin(machine.GPIO2),
	ResetButton: core.GPIOPin(machine.GPIO3),
	PowerLED:    core.GPIOPin(machine.GPIO25),
	DCEnable:    core.GPIOPin(machine.GPIO20),
	SysReset:    core.GPIOPin(machine.GPIO21),
	HostIRQ:     core.GPIOPin(machine.GPIO22),
	Speaker:     core.PWMPin(machine.GPIO6),
}

// Host link on SPI0
const (
	linkRX  = machine.GPIO16
	linkCS  = machine.GPIO17
	linkSCK = machine.GPIO18
	linkTX  = machine.GPIO19
)

// PS/2 ports. Each clock pin is its data pin plus one.
const (
	kbData    = machine.GPIO10
	mouseData = machine.GPIO12
)

var (
	// Debug counters
	loopPanics uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	initDebugUART()
	InitClock()

	if err := configureI2C(); err != nil {
		core.DebugPrintln("[BOOT] I2C: " + err.Error())
	}

	// UART1 - TX=GP8, RX=GP9, bridged to the host
	hostUART := machine.UART1
	hostUART.Configure(machine.UARTConfig{
		BaudRate: core.DefaultUartBaudRate,
		TX:       machine.GPIO8,
		RX:       machine.GPIO9,
	})

	spi := NewPL022Peripheral(linkRX, linkCS, linkSCK, linkTX)
	spi.Configure()
	core.SetSPIPeripheral(spi)

	gpio := NewRPGPIODriver()
	core.SetGPIODriver(gpio)
	pwm := NewRP2040PWMDriver()
	core.SetPWMDriver(pwm)
	sensors := NewRpSensorDriver(sensorI2C)
	core.SetSensorDriver(sensors)
	core.SetUARTDriver(hostUART)
	core.SetI2CDriver(hostI2C)

	bmc := core.New(core.Config{
		SPI:     core.MustSPIPeripheral(),
		GPIO:    core.MustGPIO(),
		PWM:     core.MustPWM(),
		Sensors: core.MustSensors(),
		UART:    core.MustUART(),
		I2C:     core.MustI2C(),
		Pins:    pins,
	})
	if err := bmc.Init(); err != nil {
		core.DebugPrintln("[BOOT] " + err.Error())
	}

	keyboard := NewPIOPs2Receiver(0, 0, kbData, bmc.Keyboard)
	if err := keyboard.Init(); err != nil {
		core.DebugPrintln("[BOOT] keyboard PIO: " + err.Error())
	}
	mouse := NewGPIOPs2Receiver(mouseData, mouseData+1, bmc.Mouse)
	if err := mouse.Init(); err != nil {
		core.DebugPrintln("[BOOT] mouse: " + err.Error())
	}

	if err := startLinkInterrupts(spi, bmc.Transport); err != nil {
		core.DebugPrintln("[BOOT] chip select IRQ: " + err.Error())
	}

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					if core.IsHalt(r) {
						// Capacity violations stop the firmware
						panic(r)
					}
					loopPanics++
					core.DebugPrintln("[PANIC] main loop, resetting link")
					bmc.Transport.Reset()
				}
			}()

			UpdateSystemTime()
			keyboard.Poll()
			bmc.Poll()
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}
