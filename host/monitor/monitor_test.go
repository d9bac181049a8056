package monitor

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gobmc/core"
	"gobmc/host/client"
	"gobmc/sim"
)

func newSimMonitor(t *testing.T) (*Monitor, *sim.Board) {
	t.Helper()
	bus, err := sim.Open()
	require.NoError(t, err)
	board := bus.Board()
	board.Advance(time.Duration(core.SensorPollIntervalMS) * time.Millisecond)
	return New(client.New(bus), zap.NewNop().Sugar(), time.Millisecond), board
}

func TestPollReadsSensors(t *testing.T) {
	m, _ := newSimMonitor(t)

	require.NoError(t, m.Poll())
	require.Equal(t, 32.0, testutil.ToFloat64(m.temperature))
	require.InDelta(t, 3.31, testutil.ToFloat64(m.voltage.WithLabelValues("3v3_standby")), 0.02)
	// DC supply is still off
	require.Equal(t, 0.0, testutil.ToFloat64(m.voltage.WithLabelValues("5v")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.power))
	require.Equal(t, 0.0, testutil.ToFloat64(m.failures))
}

func TestPollSeesButton(t *testing.T) {
	m, board := newSimMonitor(t)

	board.GPIO.Press(sim.Pins.PowerButton, true)
	board.Advance(3 * time.Duration(core.ButtonPollIntervalMS) * time.Millisecond)

	require.NoError(t, m.Poll())
	require.Equal(t, 1.0, testutil.ToFloat64(m.button.WithLabelValues("power")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.button.WithLabelValues("reset")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.power))
}

type failingReader struct{}

func (failingReader) Read(reg uint8, n uint8) ([]byte, error) {
	return nil, errors.New("bus down")
}

func TestPollCountsFailures(t *testing.T) {
	m := New(failingReader{}, zap.NewNop().Sugar(), time.Second)

	require.Error(t, m.Poll())
	require.Equal(t, 7.0, testutil.ToFloat64(m.failures))
}

func TestHandlerExportsMetrics(t *testing.T) {
	m, _ := newSimMonitor(t)
	require.NoError(t, m.Poll())

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "bmc_temperature_celsius 32")
	require.Contains(t, string(body), `bmc_rail_volts{rail="3v3"}`)
}

func TestRunStopsWithContext(t *testing.T) {
	m, _ := newSimMonitor(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx, "127.0.0.1:0"))
}

type recordingSink struct {
	readings []Reading
	err      error
}

func (s *recordingSink) Publish(readings []Reading) error {
	s.readings = append(s.readings, readings...)
	return s.err
}

func TestPollPublishesReadings(t *testing.T) {
	m, _ := newSimMonitor(t)
	sink := &recordingSink{}
	m.PublishTo(sink)

	require.NoError(t, m.Poll())
	require.Len(t, sink.readings, 8)
	require.Equal(t, Reading{Topic: "temperature", Value: 32}, sink.readings[0])
	require.Equal(t, "rail/3v3_standby", sink.readings[1].Topic)
	require.Equal(t, Reading{Topic: "power", Value: 0}, sink.readings[6])

	sink.err = errors.New("broker gone")
	require.ErrorIs(t, m.Poll(), sink.err)
}

func TestPollPublishesNothingWhenBusDown(t *testing.T) {
	m := New(failingReader{}, zap.NewNop().Sugar(), time.Second)
	sink := &recordingSink{}
	m.PublishTo(sink)

	require.Error(t, m.Poll())
	require.Empty(t, sink.readings)
}
