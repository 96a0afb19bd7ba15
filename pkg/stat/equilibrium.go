package stat

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/BTBurke/bathctl/pkg/logging"
	"github.com/BTBurke/bathctl/pkg/metric"
)

// Status is a snapshot of a monitor after a sample
type Status struct {
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
	Count          int            `json:"count"`
	Capacity       int            `json:"capacity"`
	STD            float64        `json:"std"`
	MinSTD         float64        `json:"min_std"`
	FillRatio      float64        `json:"fill_ratio"`
	Equalized      bool           `json:"equalized"`
}

// MarshalJSON renders MinSTD as null until a converging sample has set it
func (s Status) MarshalJSON() ([]byte, error) {
	type status Status
	out := struct {
		status
		MinSTD *float64 `json:"min_std"`
	}{status: status(s)}
	if !math.IsInf(s.MinSTD, 0) {
		v := s.MinSTD
		out.MinSTD = &v
	}
	return json.Marshal(out)
}

// EquilibriumMonitor decides when a signal has reached thermal equilibrium.  Each sample
// updates a ring buffer of readings and the population standard deviation of the buffer
// is compared against the trailing window of the last N deviations.  The signal is
// equalized once N consecutive samples are classified as stabilizing.
type EquilibriumMonitor struct {
	name     metric.Name
	readings *metric.RingBuffer
	stds     []float64
	stable   *metric.Counter
	std      float64
	minSTD   float64
	last     Classification
	observer func(Status)
	log      *logging.Logger
	// one underfill warning per fill cycle
	warned bool
}

// MonitorOption configures an EquilibriumMonitor
type MonitorOption func(m *EquilibriumMonitor) error

// WithObserver registers a function that receives the status after every sample
func WithObserver(f func(Status)) MonitorOption {
	return func(m *EquilibriumMonitor) error {
		m.observer = f
		return nil
	}
}

// WithLogger sets the logger that receives a warning when the spread is computed from a
// buffer that has not refilled since creation or the last reset
func WithLogger(l *logging.Logger) MonitorOption {
	return func(m *EquilibriumMonitor) error {
		m.log = l
		return nil
	}
}

// NewEquilibriumMonitor returns a monitor with a reading buffer and trailing
// deviation window of size samples.
func NewEquilibriumMonitor(name metric.Name, size int, opts ...MonitorOption) (*EquilibriumMonitor, error) {
	m := &EquilibriumMonitor{
		name:   name,
		stable: metric.NewCounter(),
		minSTD: math.Inf(1),
		last:   Idle,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	readings, err := metric.NewRingBuffer(size, metric.WithRingName(name), metric.WithUnderfillWarning(m.underfill))
	if err != nil {
		return nil, fmt.Errorf("unable to create equilibrium monitor %s: %v", name, err)
	}
	m.readings = readings
	m.stds = make([]float64, size)
	return m, nil
}

// Name returns the diagnostic name of the monitor
func (m *EquilibriumMonitor) Name() string {
	return m.name.String()
}

// Capacity returns the number of consecutive stable samples required for equilibrium
func (m *EquilibriumMonitor) Capacity() int {
	return len(m.stds)
}

// Update records a reading and classifies the resulting spread
func (m *EquilibriumMonitor) Update(v float64) Classification {
	m.readings.Update(v)
	std := m.readings.StandardDeviation()

	lo, hi := bounds(m.stds)
	switch {
	case std < lo:
		m.classify(Converging)
		m.minSTD = std
	case std > hi*DivergenceMargin:
		m.classify(Diverging)
	default:
		m.classify(Stabilizing)
	}

	m.stds = append(m.stds[1:], std)
	m.std = std
	m.notify()
	return m.last
}

// Miss records that no reading was available.  A missing reading restarts the stable
// count the same way a diverging sample does and leaves the statistics untouched.
func (m *EquilibriumMonitor) Miss() Classification {
	m.classify(Missing)
	m.notify()
	return m.last
}

// IsEqualized is true once the monitor has seen Capacity consecutive stable samples since its last reset
func (m *EquilibriumMonitor) IsEqualized() bool {
	return m.stable.Value() >= len(m.stds)
}

// Reset restarts the stable count.  Reading history and the deviation window are kept.
func (m *EquilibriumMonitor) Reset() {
	m.stable.Reset()
	m.readings.Reset()
	m.last = Idle
	m.warned = false
}

// Status returns a snapshot of the monitor
func (m *EquilibriumMonitor) Status() Status {
	return Status{
		Name:           m.name.String(),
		Classification: m.last,
		Count:          m.stable.Value(),
		Capacity:       len(m.stds),
		STD:            m.std,
		MinSTD:         m.minSTD,
		FillRatio:      m.readings.FillRatio(),
		Equalized:      m.IsEqualized(),
	}
}

func (m *EquilibriumMonitor) underfill(name metric.Name, count int, capacity int) {
	if m.warned {
		return
	}
	m.warned = true
	m.log.Warn("buffer not full, spread includes stale readings", "monitor", name.String(), "fill", fmt.Sprintf("%d/%d", count, capacity))
}

func (m *EquilibriumMonitor) classify(c Classification) {
	m.last = c
	if c.Resets() {
		m.stable.Reset()
		return
	}
	m.stable.Inc()
}

func (m *EquilibriumMonitor) notify() {
	if m.observer != nil {
		m.observer(m.Status())
	}
}

func bounds(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
