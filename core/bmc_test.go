package core

import (
	"testing"

	"gobmc/protocol"
)

type testBoard struct {
	bmc  *BMC
	spi  *fakeSPI
	gpio *fakeGPIO
	uart *fakeUART
}

func newTestBoard(t *testing.T) *testBoard {
	t.Helper()
	SetTime(0)
	b := &testBoard{
		spi:  &fakeSPI{},
		gpio: newFakeGPIO(),
		uart: &fakeUART{},
	}
	b.bmc = New(Config{
		SPI:  b.spi,
		GPIO: b.gpio,
		PWM:  newFakePWM(),
		Sensors: &fakeSensors{
			milliC: 30000,
			rails:  map[Rail]uint32{Rail33S: 3300, Rail33: 3300, Rail55: 5000},
		},
		UART: b.uart,
		I2C:  &fakeI2C{},
		Pins: testPins,
	})
	if err := b.bmc.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return b
}

// transact clocks a request through the board the way the interrupt
// handlers would, running the main loop until a reply is staged
func (b *testBoard) transact(t *testing.T, req []byte, payload []byte) protocol.Response {
	t.Helper()
	tr := b.bmc.Transport
	b.spi.selected = true
	tr.Select()
	for _, c := range req {
		b.spi.rxq = append(b.spi.rxq, c)
		tr.HandleInterrupt()
	}
	b.bmc.Poll()
	for _, c := range payload {
		b.spi.rxq = append(b.spi.rxq, c)
		tr.HandleInterrupt()
	}
	if len(payload) > 0 {
		b.bmc.Poll()
	}

	b.spi.sent = nil
	for i := 0; i < TxCapacity; i++ {
		tr.HandleInterrupt()
	}
	b.spi.selected = false
	tr.Deselect()
	return decodeResponse(t, b.spi.sent)
}

func TestBMCInit(t *testing.T) {
	b := newTestBoard(t)

	if !b.gpio.outputs[testPins.HostIRQ] {
		t.Error("Expected the host interrupt line idle high")
	}
	if b.uart.baud != DefaultUartBaudRate {
		t.Errorf("Expected UART at %d, got %d", DefaultUartBaudRate, b.uart.baud)
	}
	if b.bmc.Store.Uint8(protocol.RegSystemTemperature) != 30 {
		t.Errorf("Expected an initial temperature sample, got %d", b.bmc.Store.Uint8(protocol.RegSystemTemperature))
	}
}

func TestBMCHostPowerOn(t *testing.T) {
	b := newTestBoard(t)

	resp := b.transact(t, requestBytes(protocol.NewShortWriteRequest(false, protocol.RegPowerControl, protocol.PowerOn)), nil)
	if resp.Result != protocol.ResultOk {
		t.Fatalf("Expected Ok, got %v", resp.Result)
	}
	if b.bmc.Power.State() != DcPowerOn {
		t.Errorf("Expected On, got %v", b.bmc.Power.State())
	}
	if !b.gpio.outputs[testPins.DCEnable] {
		t.Error("Expected DC enable high")
	}
}

func TestBMCInterruptLine(t *testing.T) {
	b := newTestBoard(t)

	resp := b.transact(t, requestBytes(protocol.NewLongWriteRequest(false, protocol.RegInterruptControl, 2)),
		[]byte{uint8(protocol.IrqUartRx), 0})
	if resp.Result != protocol.ResultOk {
		t.Fatalf("Expected Ok, got %v", resp.Result)
	}
	resp = b.transact(t, requestBytes(protocol.NewShortWriteRequest(true, protocol.RegUartControl, ControlEnable)), nil)
	if resp.Result != protocol.ResultOk {
		t.Fatalf("Expected Ok, got %v", resp.Result)
	}

	b.uart.rx = []byte("A")
	b.bmc.Poll()
	if !b.bmc.IRQAsserted() || b.gpio.outputs[testPins.HostIRQ] {
		t.Fatal("Expected the host interrupt line asserted low")
	}

	resp = b.transact(t, requestBytes(protocol.NewReadRequest(false, protocol.RegUartBuffer, 1)), nil)
	if string(resp.Data) != "A" {
		t.Errorf("Expected A, got %q", resp.Data)
	}

	resp = b.transact(t, requestBytes(protocol.NewLongWriteRequest(true, protocol.RegInterruptStatus, 2)),
		[]byte{uint8(protocol.IrqUartRx), 0})
	if resp.Result != protocol.ResultOk {
		t.Fatalf("Expected Ok, got %v", resp.Result)
	}
	b.bmc.Poll()
	if b.bmc.IRQAsserted() || !b.gpio.outputs[testPins.HostIRQ] {
		t.Error("Expected the host interrupt line released")
	}
}

func TestBMCTimers(t *testing.T) {
	b := newTestBoard(t)

	b.gpio.press(testPins.PowerButton, true)
	for i := 1; i <= ShortPressPolls; i++ {
		SetTime(TimerFromMS(uint32(i * ButtonPollIntervalMS)))
		b.bmc.Poll()
	}
	if b.bmc.Power.State() != DcPowerStarting {
		t.Errorf("Expected the button poll timer to start the supply, got %v", b.bmc.Power.State())
	}
}
