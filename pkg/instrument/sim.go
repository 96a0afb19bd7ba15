package instrument

import (
	"math"
	"sync"
	"time"

	"github.com/BTBurke/bathctl/pkg/rng"
)

var (
	_ Bath        = &SimBath{}
	_ Probe       = &SimProbe{}
	_ SensorArray = &SimArray{}
)

// lag is a first order thermal lag.  Every advance moves the value toward the target by the
// fraction of the gap covered in one step.
type lag struct {
	value    float64
	tau      time.Duration
	step     time.Duration
	noiseStd float64
	seed     int64
	noise    rng.RNG
}

func (l *lag) advance(target float64) float64 {
	if l.tau <= 0 {
		l.value = target
	} else {
		alpha := 1 - math.Exp(-float64(l.step)/float64(l.tau))
		l.value += (target - l.value) * alpha
	}
	if l.noise != nil {
		return l.value + l.noise.Rand()
	}
	return l.value
}

// SimOption configures a simulated device
type SimOption func(*lag)

// WithStep sets the simulated time that passes between reads, normally the sample interval
func WithStep(d time.Duration) SimOption {
	return func(l *lag) {
		l.step = d
	}
}

// WithTimeConstant sets how quickly the device follows its target.  Zero follows instantly.
func WithTimeConstant(d time.Duration) SimOption {
	return func(l *lag) {
		l.tau = d
	}
}

// WithNoise adds gaussian noise with the given standard deviation to every reading, in the
// unit the device reports (ohms for a sensor array).  Each array channel draws from its own
// stream derived from seed.
func WithNoise(stdev float64, seed int64) SimOption {
	return func(l *lag) {
		l.noiseStd = stdev
		l.seed = seed
	}
}

// WithInitial sets the starting temperature
func WithInitial(celsius float64) SimOption {
	return func(l *lag) {
		l.value = celsius
	}
}

// configure applies opts without creating a noise source
func configure(opts []SimOption) *lag {
	l := &lag{
		value: 20,
		tau:   2 * time.Minute,
		step:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func newLag(opts []SimOption) *lag {
	l := configure(opts)
	if l.noiseStd > 0 {
		l.noise = rng.NewNormalRNG(0, l.noiseStd, l.seed)
	}
	return l
}

// SimBath is a bath that approaches its setpoint with a first order lag
type SimBath struct {
	mu        sync.Mutex
	model     *lag
	limits    Limits
	setpoint  float64
	connected bool
}

// NewSimBath returns a simulated bath starting at rest at its initial temperature
func NewSimBath(limits Limits, opts ...SimOption) *SimBath {
	l := newLag(opts)
	return &SimBath{
		model:    l,
		limits:   limits,
		setpoint: l.value,
	}
}

func (s *SimBath) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *SimBath) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *SimBath) SetSetpoint(celsius float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	if err := s.limits.check(celsius); err != nil {
		return err
	}
	s.setpoint = celsius
	return nil
}

// ReadTemperature advances the bath one step and returns its temperature
func (s *SimBath) ReadTemperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return 0, ErrNotConnected
	}
	return s.model.advance(s.setpoint), nil
}

// temperature is the noiseless bath temperature other simulated devices follow
func (s *SimBath) temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.value
}

// SimProbe is a thermometer immersed in a simulated bath
type SimProbe struct {
	bath      *SimBath
	model     *lag
	connected bool
}

// NewSimProbe returns a probe that lags behind the bath temperature
func NewSimProbe(bath *SimBath, opts ...SimOption) *SimProbe {
	opts = append([]SimOption{WithInitial(bath.temperature())}, opts...)
	return &SimProbe{bath: bath, model: newLag(opts)}
}

func (s *SimProbe) Connect() error {
	s.connected = true
	return nil
}

func (s *SimProbe) Disconnect() error {
	s.connected = false
	return nil
}

func (s *SimProbe) ReadTemperature() (float64, error) {
	if !s.connected {
		return 0, ErrNotConnected
	}
	return s.model.advance(s.bath.temperature()), nil
}

// Thermistor converts temperature to resistance with the beta model
type Thermistor struct {
	R25  float64
	Beta float64
}

// DefaultThermistor is a 10k NTC thermistor
var DefaultThermistor = Thermistor{R25: 10000, Beta: 3950}

// Resistance returns the resistance in ohms at celsius
func (t Thermistor) Resistance(celsius float64) float64 {
	const t25 = 298.15
	return t.R25 * math.Exp(t.Beta*(1/(celsius+273.15)-1/t25))
}

// SimArray is a set of thermistors in a simulated bath, read as resistances
type SimArray struct {
	bath       *SimBath
	thermistor Thermistor
	opts       []SimOption
	channels   []*lag
	noise      []rng.RNG
	connected  bool
}

// NewSimArray returns a thermistor array in the bath.  Channels are created on Connect.
func NewSimArray(bath *SimBath, thermistor Thermistor, opts ...SimOption) *SimArray {
	return &SimArray{bath: bath, thermistor: thermistor, opts: opts}
}

func (s *SimArray) Connect(channels []int) error {
	opts := append([]SimOption{WithInitial(s.bath.temperature())}, s.opts...)
	s.channels = make([]*lag, len(channels))
	s.noise = make([]rng.RNG, len(channels))
	var seeds []int64
	for i := range channels {
		// channel temperatures are noiseless, noise is added to the resistance
		s.channels[i] = configure(opts)
		if std := s.channels[i].noiseStd; std > 0 {
			if seeds == nil {
				seeds = rng.Split(s.channels[i].seed, len(channels))
			}
			s.noise[i] = rng.NewNormalRNG(0, std, seeds[i])
		}
	}
	s.connected = true
	return nil
}

func (s *SimArray) Disconnect() error {
	s.connected = false
	return nil
}

func (s *SimArray) ReadValues() ([]float64, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	target := s.bath.temperature()
	values := make([]float64, len(s.channels))
	for i, ch := range s.channels {
		values[i] = s.thermistor.Resistance(ch.advance(target))
		if s.noise[i] != nil {
			values[i] += s.noise[i].Rand()
		}
	}
	return values, nil
}
