package instrument

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimBathApproachesSetpoint(t *testing.T) {
	bath := NewSimBath(LaudaLimits, WithInitial(20), WithTimeConstant(10*time.Second), WithStep(5*time.Second))
	require.NoError(t, bath.Connect())
	require.NoError(t, bath.SetSetpoint(0))

	last := 20.0
	for i := 0; i < 20; i++ {
		v, err := bath.ReadTemperature()
		require.NoError(t, err)
		assert.Less(t, v, last)
		last = v
	}
	assert.InDelta(t, 0, last, 0.01)

	err := bath.SetSetpoint(60)
	assert.True(t, errors.Is(err, ErrSetpointRange))
}

func TestSimBathInstant(t *testing.T) {
	bath := NewSimBath(LaudaLimits, WithTimeConstant(0))
	_, err := bath.ReadTemperature()
	assert.Equal(t, ErrNotConnected, err)

	require.NoError(t, bath.Connect())
	require.NoError(t, bath.SetSetpoint(-10))
	v, err := bath.ReadTemperature()
	require.NoError(t, err)
	assert.Equal(t, -10.0, v)
}

func TestSimProbeAndArray(t *testing.T) {
	bath := NewSimBath(LaudaLimits, WithInitial(25), WithTimeConstant(0))
	probe := NewSimProbe(bath, WithTimeConstant(0))
	array := NewSimArray(bath, DefaultThermistor, WithTimeConstant(0))
	require.NoError(t, bath.Connect())
	require.NoError(t, probe.Connect())
	require.NoError(t, array.Connect([]int{101, 102}))

	v, err := probe.ReadTemperature()
	require.NoError(t, err)
	assert.Equal(t, 25.0, v)

	values, err := array.ReadValues()
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.InDelta(t, 10000, values[0], 1e-6)
}

func TestSimNoiseSeeded(t *testing.T) {
	a := NewSimBath(LaudaLimits, WithTimeConstant(0), WithNoise(0.1, 3))
	b := NewSimBath(LaudaLimits, WithTimeConstant(0), WithNoise(0.1, 3))
	require.NoError(t, a.Connect())
	require.NoError(t, b.Connect())
	for i := 0; i < 5; i++ {
		va, _ := a.ReadTemperature()
		vb, _ := b.ReadTemperature()
		assert.Equal(t, va, vb)
		assert.False(t, math.IsNaN(va))
	}
}

func TestSimArrayNoisePerChannel(t *testing.T) {
	newArray := func() *SimArray {
		bath := NewSimBath(LaudaLimits, WithInitial(25), WithTimeConstant(0))
		require.NoError(t, bath.Connect())
		array := NewSimArray(bath, DefaultThermistor, WithTimeConstant(0), WithNoise(5, 7))
		require.NoError(t, array.Connect([]int{101, 102, 103}))
		return array
	}
	a, b := newArray(), newArray()
	for i := 0; i < 10; i++ {
		va, err := a.ReadValues()
		require.NoError(t, err)
		vb, err := b.ReadValues()
		require.NoError(t, err)
		// same seed, same streams
		assert.Equal(t, va, vb)
		assert.NotEqual(t, va[0], va[1])
		assert.NotEqual(t, va[1], va[2])
		for _, v := range va {
			// 5 ohms of noise on 10k, not 5 degrees
			assert.InDelta(t, 10000, v, 40)
		}
	}
}

func TestThermistor(t *testing.T) {
	assert.InDelta(t, 10000, DefaultThermistor.Resistance(25), 1e-6)
	assert.Greater(t, DefaultThermistor.Resistance(0), DefaultThermistor.Resistance(25))
}
