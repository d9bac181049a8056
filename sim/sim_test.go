package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gobmc/core"
	"gobmc/protocol"
)

func transfer(t *testing.T, bus *Bus, req protocol.Request, rxLen int) protocol.Response {
	t.Helper()
	b := req.Bytes()
	rx, err := bus.Transfer(b[:], rxLen)
	require.NoError(t, err)
	n, ok := protocol.FindResponseEnd(rx)
	require.True(t, ok, "no response in % X", rx)
	resp, err := protocol.ResponseFromBytes(rx[:n])
	require.NoError(t, err)
	return resp
}

func TestPeripheralClocksThroughFifos(t *testing.T) {
	p := NewPeripheral()
	var got []byte
	p.SetHandlers(func() {
		if p.Status()&core.SPIRxNotEmpty != 0 {
			got = append(got, p.ReadData())
		}
	}, nil)

	require.Equal(t, core.TxFiller, p.Clock(0x11), "disabled peripheral must shift out filler")
	p.Enable()
	p.SetRxInterrupt(true)
	p.WriteData(0xA5)
	require.Equal(t, byte(0xA5), p.Clock(0x22))
	require.Equal(t, []byte{0x22}, got)

	p.SetRxInterrupt(false)
	for i := 0; i < FifoDepth+2; i++ {
		p.Clock(byte(i))
	}
	require.Equal(t, 2, p.RxOverruns)
}

func TestBusReadVersion(t *testing.T) {
	bus, err := Open()
	require.NoError(t, err)

	resp := transfer(t, bus, protocol.NewReadRequest(false, protocol.RegProtocolVersion, 3), 8)
	require.Equal(t, protocol.ResultOk, resp.Result)
	require.Equal(t, []byte{1, 0, 0}, resp.Data)
}

func TestBusLongWriteLoopback(t *testing.T) {
	bus, err := Open()
	require.NoError(t, err)

	resp := transfer(t, bus, protocol.NewShortWriteRequest(false, protocol.RegUartControl, core.ControlEnable), 4)
	require.Equal(t, protocol.ResultOk, resp.Result)

	header := protocol.NewLongWriteRequest(false, protocol.RegUartBuffer, 5).Bytes()
	rx, err := bus.LongTransfer(header[:], []byte("hello"), 4)
	require.NoError(t, err)
	n, ok := protocol.FindResponseEnd(rx)
	require.True(t, ok)
	wr, err := protocol.ResponseFromBytes(rx[:n])
	require.NoError(t, err)
	require.Equal(t, protocol.ResultOk, wr.Result)

	// The loopback UART echoes on the next main loop pass
	bus.Board().Poll()
	resp = transfer(t, bus, protocol.NewReadRequest(false, protocol.RegUartBuffer, 5), 5+protocol.ResponseOverhead+2)
	require.Equal(t, "hello", string(resp.Data))
}

func TestBusCorruptRequestIsIgnored(t *testing.T) {
	bus, err := Open()
	require.NoError(t, err)

	bus.CorruptRequests(1)
	req := protocol.NewReadRequest(false, protocol.RegProtocolVersion, 3).Bytes()
	rx, err := bus.Transfer(req[:], 6)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 6), rx)
	require.Equal(t, uint32(1), bus.Board().BMC.Link.Stats.CrcErrors)

	resp := transfer(t, bus, protocol.NewReadRequest(false, protocol.RegProtocolVersion, 3), 6)
	require.Equal(t, protocol.ResultOk, resp.Result)
}

func TestBoardPowerButton(t *testing.T) {
	bus, err := Open()
	require.NoError(t, err)
	board := bus.Board()

	require.False(t, board.GPIO.Level(Pins.DCEnable))
	board.GPIO.Press(Pins.PowerButton, true)
	board.Advance(3 * time.Duration(core.ButtonPollIntervalMS) * time.Millisecond)
	board.GPIO.Press(Pins.PowerButton, false)
	board.Advance(3 * time.Duration(core.ButtonPollIntervalMS) * time.Millisecond)

	require.Equal(t, core.DcPowerOn, board.BMC.Power.State())
	require.True(t, board.GPIO.Level(Pins.DCEnable))

	board.Advance(time.Duration(core.SensorPollIntervalMS) * time.Millisecond)
	resp := transfer(t, bus, protocol.NewReadRequest(false, protocol.RegSystemVoltage55, 1), 4)
	require.Equal(t, protocol.EncodeVoltage(5020), resp.Data[0])
}

func TestI2CTemperatureSensor(t *testing.T) {
	gpio := NewGPIO()
	bus := &I2C{sensors: NewSensors(gpio)}
	bus.sensors.SetTemperature(25000)

	r := make([]byte, 2)
	require.NoError(t, bus.Tx(TempSensorAddr, []byte{0}, r))
	require.Equal(t, []byte{0x19, 0x00}, r)
	require.Error(t, bus.Tx(0x10, nil, r))
}
