// Package telemetry exposes a running experiment: Prometheus gauges and a JSON status
// endpoint fed from the controller's event bus, and an MQTT publisher for the same events.
package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/BTBurke/bathctl"
	"github.com/BTBurke/bathctl/pkg/eventbus"
	"github.com/BTBurke/bathctl/pkg/fsm"
	"github.com/BTBurke/bathctl/pkg/stat"
	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is the latest known state of a run
type Snapshot struct {
	Run       string                 `json:"run"`
	State     fsm.State              `json:"state"`
	Since     time.Time              `json:"since"`
	Line      int                    `json:"line,omitempty"`
	Setpoint  float64                `json:"setpoint"`
	Sample    *bathctl.Sample        `json:"sample,omitempty"`
	Monitors  map[string]stat.Status `json:"monitors"`
	Equalized bool                   `json:"equalized"`
}

// Tracker folds run events into a snapshot and a set of Prometheus metrics
type Tracker struct {
	mu       sync.RWMutex
	snap     Snapshot
	channels []int
	registry *prometheus.Registry

	setpoint    prometheus.Gauge
	temperature *prometheus.GaugeVec
	sensor      *prometheus.GaugeVec
	missing     *prometheus.CounterVec
	state       *prometheus.GaugeVec
	transitions prometheus.Counter
	std         *prometheus.GaugeVec
	stable      *prometheus.GaugeVec
	equalized   *prometheus.GaugeVec
	fill        *prometheus.GaugeVec
}

// NewTracker returns a tracker with its own registry.  channels label the sensor readings in
// the order the controller reports them.
func NewTracker(channels []int) *Tracker {
	t := &Tracker{
		channels: channels,
		registry: prometheus.NewRegistry(),
		snap:     Snapshot{Monitors: make(map[string]stat.Status)},
		setpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bathctl_setpoint_celsius",
			Help: "Active bath setpoint",
		}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bathctl_temperature_celsius",
			Help: "Last temperature read from an instrument",
		}, []string{"instrument"}),
		sensor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bathctl_sensor_value",
			Help: "Last value read from a sensor array channel",
		}, []string{"channel"}),
		missing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bathctl_missing_readings_total",
			Help: "Samples recorded without a reading after retry",
		}, []string{"instrument"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bathctl_state",
			Help: "1 for the current controller state",
		}, []string{"state"}),
		transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bathctl_transitions_total",
			Help: "Controller state transitions",
		}),
		std: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bathctl_monitor_std",
			Help: "Standard deviation of the monitor's reading buffer",
		}, []string{"monitor"}),
		stable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bathctl_monitor_stable_samples",
			Help: "Consecutive stabilizing samples since the last reset",
		}, []string{"monitor"}),
		equalized: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bathctl_monitor_equalized",
			Help: "1 when the monitor is at equilibrium",
		}, []string{"monitor"}),
		fill: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bathctl_monitor_fill_ratio",
			Help: "Share of the reading buffer written since the last reset",
		}, []string{"monitor"}),
	}
	t.registry.MustRegister(t.setpoint, t.temperature, t.sensor, t.missing, t.state, t.transitions, t.std, t.stable, t.equalized, t.fill)
	return t
}

// Registry is the registry holding the tracker's metrics
func (t *Tracker) Registry() *prometheus.Registry {
	return t.registry
}

// Snapshot returns a copy of the latest state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	s.Monitors = make(map[string]stat.Status, len(t.snap.Monitors))
	for k, v := range t.snap.Monitors {
		s.Monitors[k] = v
	}
	return s
}

// Consume handles events until the channel closes, then signals the bus
func (t *Tracker) Consume(events <-chan eventbus.Event, done eventbus.ShutdownFunc) {
	for e := range events {
		t.Handle(e)
	}
	done()
}

// Handle applies a single event
func (t *Tracker) Handle(e eventbus.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch data := e.Data.(type) {
	case bathctl.StateChange:
		t.snap.Run = data.Run
		t.snap.State = data.To
		t.snap.Since = data.Time
		t.snap.Line = data.Line
		t.snap.Setpoint = data.Setpoint
		if data.From != "" {
			t.state.WithLabelValues(string(data.From)).Set(0)
		}
		t.state.WithLabelValues(string(data.To)).Set(1)
		t.transitions.Inc()
	case bathctl.MonitorUpdate:
		s := data.Status
		t.snap.Monitors[s.Name] = s
		t.std.WithLabelValues(s.Name).Set(s.STD)
		t.stable.WithLabelValues(s.Name).Set(float64(s.Count))
		t.equalized.WithLabelValues(s.Name).Set(boolFloat(s.Equalized))
		t.fill.WithLabelValues(s.Name).Set(s.FillRatio)
	case bathctl.Sample:
		sample := data
		t.snap.Sample = &sample
		t.snap.Setpoint = data.Setpoint
		t.snap.Equalized = data.Equalized
		t.setpoint.Set(data.Setpoint)
		t.observe("bath", data.Bath)
		t.observe("probe", data.Probe)
		for i, v := range data.Sensors {
			label := strconv.Itoa(i)
			if i < len(t.channels) {
				label = strconv.Itoa(t.channels[i])
			}
			if v == nil {
				t.missing.WithLabelValues("ch" + label).Inc()
				continue
			}
			t.sensor.WithLabelValues(label).Set(*v)
		}
	}
}

func (t *Tracker) observe(instrument string, v *float64) {
	if v == nil {
		t.missing.WithLabelValues(instrument).Inc()
		return
	}
	t.temperature.WithLabelValues(instrument).Set(*v)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
