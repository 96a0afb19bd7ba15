package bathctl

import (
	"time"

	"github.com/BTBurke/bathctl/pkg/instrument"
)

// Devices are the instruments a run drives.  Sensors may be nil when no channels are configured.
type Devices struct {
	Bath    instrument.Bath
	Probe   instrument.Probe
	Sensors instrument.SensorArray
}

// simulated instrument characteristics
const (
	simBathTau  = 90 * time.Second
	simProbeTau = 30 * time.Second
	simNoise    = 0.002
)

// NewDevices builds the drivers named by the configuration.  Nothing is connected.
func NewDevices(cfg *Config) Devices {
	if cfg.Simulate {
		return NewSimDevices(cfg, 0)
	}
	var d Devices
	switch cfg.Bath {
	case BathLauda:
		d.Bath = instrument.NewLaudaRP845(cfg.BathPort)
	default:
		d.Bath = instrument.NewFluke7341(cfg.BathPort)
	}
	d.Probe = instrument.NewFluke1502A(cfg.ProbePort)
	if len(cfg.Channels) > 0 {
		d.Sensors = instrument.NewKeysight34972A(cfg.DAQAddress)
	}
	return d
}

// NewSimDevices returns simulated instruments that advance one sample interval per read.
// A zero seed seeds from the clock.
func NewSimDevices(cfg *Config, seed int64) Devices {
	seedOf := func(n int64) int64 {
		if seed == 0 {
			return 0
		}
		return seed + n
	}
	limits := instrument.Limits{Min: cfg.Limits.Min, Max: cfg.Limits.Max}
	step := instrument.WithStep(cfg.SampleInterval)
	bath := instrument.NewSimBath(limits, step, instrument.WithTimeConstant(simBathTau), instrument.WithNoise(simNoise, seedOf(0)))
	d := Devices{
		Bath:  bath,
		Probe: instrument.NewSimProbe(bath, step, instrument.WithTimeConstant(simProbeTau), instrument.WithNoise(simNoise/2, seedOf(1))),
	}
	if len(cfg.Channels) > 0 {
		d.Sensors = instrument.NewSimArray(bath, instrument.DefaultThermistor, step, instrument.WithTimeConstant(simProbeTau), instrument.WithNoise(1, seedOf(2)))
	}
	return d
}
