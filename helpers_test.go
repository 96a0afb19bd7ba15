package bathctl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BTBurke/bathctl/pkg/datalog"
	"github.com/BTBurke/bathctl/pkg/instrument"
	"github.com/stretchr/testify/mock"
)

// test helper silences superfluous logging calls from the mock package
type foo struct {
	t *testing.T
}

func (f foo) Logf(format string, args ...interface{}) {
	// makes mock calls to log a no op to prevent a lot of superfluous logging calls
}
func (f foo) Errorf(format string, args ...interface{}) {
	f.t.Errorf(format, args...)
}
func (f foo) FailNow() {
	f.t.FailNow()
}

func silenceT(t *testing.T) mock.TestingT {
	return foo{t}
}

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeClock only moves when slept or when an instrument spends time on a read
type fakeClock struct {
	now         time.Time
	sleeps      []time.Duration
	cancelAfter int
	cancel      context.CancelFunc
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	if f.cancel != nil && len(f.sleeps) == f.cancelAfter {
		f.cancel()
	}
	return nil
}

func (f *fakeClock) spend(d time.Duration) {
	f.now = f.now.Add(d)
}

var errFlaky = errors.New("serial timeout")

// echoBath reaches every setpoint instantly
type echoBath struct {
	clock     *fakeClock
	latency   time.Duration
	setpoint  float64
	pushed    []float64
	refuse    bool
	failReads int
	connected bool
}

func (b *echoBath) Connect() error {
	b.connected = true
	return nil
}

func (b *echoBath) Disconnect() error {
	b.connected = false
	return nil
}

func (b *echoBath) SetSetpoint(celsius float64) error {
	if b.refuse {
		return instrument.ErrSetpointRange
	}
	b.setpoint = celsius
	b.pushed = append(b.pushed, celsius)
	return nil
}

func (b *echoBath) ReadTemperature() (float64, error) {
	if b.clock != nil {
		b.clock.spend(b.latency)
	}
	if b.failReads > 0 {
		b.failReads--
		return 0, errFlaky
	}
	return b.setpoint, nil
}

// followProbe reads whatever the bath is set to
type followProbe struct {
	bath      *echoBath
	connected bool
}

func (p *followProbe) Connect() error {
	p.connected = true
	return nil
}

func (p *followProbe) Disconnect() error {
	p.connected = false
	return nil
}

func (p *followProbe) ReadTemperature() (float64, error) {
	return p.bath.setpoint, nil
}

type fixedArray struct {
	values    []float64
	channels  []int
	connected bool
}

func (a *fixedArray) Connect(channels []int) error {
	a.channels = channels
	a.connected = true
	return nil
}

func (a *fixedArray) Disconnect() error {
	a.connected = false
	return nil
}

func (a *fixedArray) ReadValues() ([]float64, error) {
	return a.values, nil
}

// mockProbe is used where the test needs to script failures
type mockProbe struct {
	mock.Mock
}

func (m *mockProbe) Connect() error {
	return m.Called().Error(0)
}

func (m *mockProbe) Disconnect() error {
	return m.Called().Error(0)
}

func (m *mockProbe) ReadTemperature() (float64, error) {
	args := m.Called()
	return args.Get(0).(float64), args.Error(1)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) ReportError(err error) {
	m.Called(err)
}

type memRecorder struct {
	mu     sync.Mutex
	rows   []datalog.Row
	err    error
	closed bool
}

func (m *memRecorder) Record(row datalog.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *memRecorder) Close() error {
	m.closed = true
	return nil
}

func testConfig(t *testing.T, opts ...ConfigOption) *Config {
	t.Helper()
	opts = append([]ConfigOption{Simulate(), ReadRetryDelay("1ms")}, opts...)
	cfg, errs := NewConfig(opts...)
	if len(errs) > 0 {
		t.Fatalf("config: %v", errs)
	}
	return cfg
}
