// Package monitor polls the BMC sensor and status registers and exports
// them as Prometheus metrics
package monitor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gobmc/protocol"
)

// Reader reads fixed-width registers; *client.Client satisfies it
type Reader interface {
	Read(reg uint8, n uint8) ([]byte, error)
}

var rails = []struct {
	reg  uint8
	name string
}{
	{protocol.RegSystemVoltage33S, "3v3_standby"},
	{protocol.RegSystemVoltage33, "3v3"},
	{protocol.RegSystemVoltage55, "5v"},
}

// Monitor owns a metric registry fed from BMC registers
type Monitor struct {
	reader   Reader
	log      *zap.SugaredLogger
	interval time.Duration
	registry *prometheus.Registry

	temperature prometheus.Gauge
	voltage     *prometheus.GaugeVec
	button      *prometheus.GaugeVec
	power       prometheus.Gauge
	interrupts  prometheus.Gauge
	failures    prometheus.Counter

	sink Sink
}

// Reading is one sampled value, named by its topic below the sink's prefix
type Reading struct {
	Topic string
	Value float64
}

// Sink receives the readings of every poll
type Sink interface {
	Publish(readings []Reading) error
}

// New creates a monitor polling reader every interval
func New(reader Reader, log *zap.SugaredLogger, interval time.Duration) *Monitor {
	m := &Monitor{
		reader:   reader,
		log:      log,
		interval: interval,
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bmc",
			Name:      "temperature_celsius",
			Help:      "Board temperature.",
		}),
		voltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bmc",
			Name:      "rail_volts",
			Help:      "Supply rail voltage.",
		}, []string{"rail"}),
		button: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bmc",
			Name:      "button_pressed",
			Help:      "1 while the front panel button is held.",
		}, []string{"button"}),
		power: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bmc",
			Name:      "host_power_on",
			Help:      "1 while the host DC supply is enabled.",
		}),
		interrupts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bmc",
			Name:      "interrupt_status",
			Help:      "Pending interrupt status bits.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bmc",
			Name:      "poll_failures_total",
			Help:      "Register polls that failed.",
		}),
	}
	m.registry.MustRegister(m.temperature, m.voltage, m.button, m.power, m.interrupts, m.failures)
	return m
}

// PublishTo forwards the readings of every later poll to sink
func (m *Monitor) PublishTo(sink Sink) {
	m.sink = sink
}

// Handler serves the registry in the Prometheus text format
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Poll reads every monitored register once and updates the gauges. It keeps
// going past a failed read and returns the first error.
func (m *Monitor) Poll() error {
	var first error
	var readings []Reading
	record := func(topic string, v float64) float64 {
		readings = append(readings, Reading{Topic: topic, Value: v})
		return v
	}
	read := func(reg uint8, n uint8) []byte {
		data, err := m.reader.Read(reg, n)
		if err != nil {
			m.failures.Inc()
			if first == nil {
				first = err
			}
			return nil
		}
		return data
	}

	if d := read(protocol.RegSystemTemperature, 1); d != nil {
		m.temperature.Set(record("temperature", float64(protocol.DecodeTemperature(d[0]))))
	}
	for _, r := range rails {
		if d := read(r.reg, 1); d != nil {
			m.voltage.WithLabelValues(r.name).Set(record("rail/"+r.name, float64(protocol.DecodeVoltage(d[0]))/1000))
		}
	}
	if d := read(protocol.RegButtonStatus, 1); d != nil {
		m.button.WithLabelValues("power").Set(record("button/power", bit(d[0]&protocol.ButtonPower)))
		m.button.WithLabelValues("reset").Set(record("button/reset", bit(d[0]&protocol.ButtonReset)))
	}
	if d := read(protocol.RegPowerControl, 1); d != nil {
		m.power.Set(record("power", bit(d[0]&protocol.PowerOn)))
	}
	if d := read(protocol.RegInterruptStatus, 2); d != nil {
		m.interrupts.Set(record("interrupts", float64(binary.LittleEndian.Uint16(d))))
	}

	if m.sink != nil && len(readings) > 0 {
		if err := m.sink.Publish(readings); err != nil && first == nil {
			first = fmt.Errorf("publish: %w", err)
		}
	}
	return first
}

// Run polls until ctx is done and serves /metrics on listen
func (m *Monitor) Run(ctx context.Context, listen string) error {
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("could not listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.log.Infow("serving metrics", "addr", l.Addr().String())
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			if err := m.Poll(); err != nil {
				m.log.Warnw("poll failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	return g.Wait()
}

func bit(v uint8) float64 {
	if v != 0 {
		return 1
	}
	return 0
}
