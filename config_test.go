package bathctl

import (
	"testing"
	"time"

	"github.com/BTBurke/bathctl/pkg/instrument"
	"github.com/BTBurke/bathctl/pkg/logging"
	"github.com/BTBurke/bathctl/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg, errs := NewConfig(Simulate())
	require.Empty(t, errs)
	assert.Equal(t, 5*time.Second, cfg.SampleInterval)
	assert.Equal(t, 30, cfg.BufferSize)
	assert.Equal(t, program.Limits{Min: -25, Max: 50}, cfg.Limits)
	assert.Equal(t, 0.001, cfg.RampTolerance)
	assert.Equal(t, 250*time.Millisecond, cfg.ReadRetryDelay)
	assert.Equal(t, logging.Info, cfg.LogLevel)
}

func TestConfigValidation(t *testing.T) {
	tt := []struct {
		Name    string
		Options []ConfigOption
		Errors  int
	}{
		{Name: "hardware ok", Options: []ConfigOption{BathPort("COM5"), ProbePort("COM7")}, Errors: 0},
		{Name: "hardware missing ports", Options: nil, Errors: 2},
		{Name: "validate only needs no ports", Options: []ConfigOption{ValidateOnly()}, Errors: 0},
		{Name: "channels need daq", Options: []ConfigOption{BathPort("COM5"), ProbePort("COM7"), Channels("101")}, Errors: 1},
		{Name: "sim bath", Options: []ConfigOption{Bath("SIM")}, Errors: 0},
		{Name: "unknown bath", Options: []ConfigOption{Simulate(), Bath("julabo")}, Errors: 1},
		{Name: "zero buffer", Options: []ConfigOption{Simulate(), BufferSize("0")}, Errors: 1},
		{Name: "bad buffer", Options: []ConfigOption{Simulate(), BufferSize("ten")}, Errors: 1},
		{Name: "bad interval", Options: []ConfigOption{Simulate(), SampleInterval("-1")}, Errors: 1},
		{Name: "inverted limits", Options: []ConfigOption{Simulate(), TempMin("10"), TempMax("0")}, Errors: 1},
		{Name: "zero tolerance", Options: []ConfigOption{Simulate(), RampTolerance("0")}, Errors: 1},
		{Name: "duplicate channel", Options: []ConfigOption{Simulate(), Channels("101,101")}, Errors: 1},
		{Name: "bad channel", Options: []ConfigOption{Simulate(), Channels("101,abc")}, Errors: 1},
		{Name: "equalize on unknown", Options: []ConfigOption{Simulate(), EqualizeOn("ch105")}, Errors: 1},
		{Name: "equalize on sensors without channels", Options: []ConfigOption{Simulate(), EqualizeOn("sensors")}, Errors: 1},
		{Name: "several errors", Options: []ConfigOption{Simulate(), BufferSize("0"), LogLevel("loud"), ReadRetryDelay("soon")}, Errors: 3},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			cfg, errs := NewConfig(tc.Options...)
			assert.Len(t, errs, tc.Errors)
			if tc.Errors == 0 {
				assert.NotNil(t, cfg)
			} else {
				assert.Nil(t, cfg)
			}
		})
	}
}

func TestSampleIntervalFormats(t *testing.T) {
	for in, expect := range map[string]time.Duration{
		"5":     5 * time.Second,
		"2.5":   2500 * time.Millisecond,
		"1m":    time.Minute,
		"750ms": 750 * time.Millisecond,
	} {
		cfg, errs := NewConfig(Simulate(), SampleInterval(in))
		require.Empty(t, errs, in)
		assert.Equal(t, expect, cfg.SampleInterval, in)
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv(EnvRollbarToken, "abc123")
	t.Setenv(EnvMQTTPassword, "hunter2")
	cfg, errs := NewConfig(Simulate(), Environment())
	require.Empty(t, errs)
	assert.Equal(t, "abc123", cfg.RollbarToken)
	assert.Equal(t, "hunter2", cfg.MQTTPassword)

	// a flag applied later wins
	cfg, errs = NewConfig(Simulate(), Environment(), RollbarToken("override"))
	require.Empty(t, errs)
	assert.Equal(t, "override", cfg.RollbarToken)
}

func TestNewDevices(t *testing.T) {
	cfg, errs := NewConfig(BathPort("COM5"), ProbePort("COM7"), Bath("lauda"), Channels("101"), DAQAddress("10.0.0.2"))
	require.Empty(t, errs)
	d := NewDevices(cfg)
	assert.IsType(t, &instrument.LaudaRP845{}, d.Bath)
	assert.NotNil(t, d.Probe)
	assert.NotNil(t, d.Sensors)

	sim := NewDevices(testConfig(t))
	assert.NotNil(t, sim.Bath)
	assert.Nil(t, sim.Sensors)
}
