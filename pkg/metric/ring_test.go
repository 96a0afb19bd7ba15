package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingUpdate(t *testing.T) {
	tt := []struct {
		name     string
		capacity int
		obs      []float64
		avg      float64
		fill     float64
	}{
		{name: "underfill", capacity: 5, obs: []float64{1, 2, 3}, avg: 1.2, fill: 0.6},
		{name: "fill", capacity: 5, obs: []float64{1, 2, 3, 4, 5}, avg: 3, fill: 1},
		{name: "overfill", capacity: 3, obs: []float64{1, 2, 3, 4, 5}, avg: 4, fill: 1},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewRingBuffer(tc.capacity)
			require.NoError(t, err)
			for _, o := range tc.obs {
				r.Update(o)
			}
			assert.InDelta(t, tc.avg, r.Average(), 1e-12)
			assert.InDelta(t, tc.fill, r.FillRatio(), 1e-12)
			assert.Equal(t, len(tc.obs), r.Count())
		})
	}
}

func TestRingCapacity(t *testing.T) {
	_, err := NewRingBuffer(0)
	assert.Error(t, err)
	_, err = NewRingBuffer(-3)
	assert.Error(t, err)
}

// the average of an underfilled buffer is divided by capacity, not by the number of writes
func TestRingAverageZeroPadded(t *testing.T) {
	tt := []struct {
		name     string
		capacity int
		obs      []float64
		exp      float64
	}{
		{name: "empty", capacity: 4, obs: nil, exp: 0.0},
		{name: "one", capacity: 4, obs: []float64{8}, exp: 2.0},
		{name: "three", capacity: 4, obs: []float64{1, 2, 3}, exp: 1.5},
		{name: "full", capacity: 4, obs: []float64{1, 2, 3, 6}, exp: 3.0},
		{name: "wrapped", capacity: 2, obs: []float64{100, 1, 3}, exp: 2.0},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := NewRingBuffer(tc.capacity)
			for _, o := range tc.obs {
				r.Update(o)
			}
			assert.InDelta(t, tc.exp, r.Average(), 1e-12)
		})
	}
}

func TestRingStandardDeviation(t *testing.T) {
	r, _ := NewRingBuffer(4)
	for _, o := range []float64{2, 4, 4, 6} {
		r.Update(o)
	}
	// population: mean 4, squared deviations 4+0+0+4 over 4
	assert.InDelta(t, math.Sqrt(2), r.StandardDeviation(), 1e-12)

	flat, _ := NewRingBuffer(3)
	for i := 0; i < 3; i++ {
		flat.Update(10.0)
	}
	assert.Equal(t, 0.0, flat.StandardDeviation())
}

func TestRingResetKeepsValues(t *testing.T) {
	r, _ := NewRingBuffer(3)
	for _, o := range []float64{1, 2, 3} {
		r.Update(o)
	}
	assert.True(t, r.IsWarm())
	r.Reset()
	assert.Equal(t, 0, r.Count())
	assert.False(t, r.IsWarm())
	assert.Equal(t, 0.0, r.FillRatio())
	// stale values still contribute
	assert.InDelta(t, 2.0, r.Average(), 1e-12)

	r.Update(9)
	// cursor was not moved by the reset so the oldest value is replaced: 9, 2, 3
	assert.InDelta(t, 14.0/3.0, r.Average(), 1e-12)
	assert.InDelta(t, 1.0/3.0, r.FillRatio(), 1e-12)
}

func TestRingUnderfillWarning(t *testing.T) {
	var warnings []int
	r, err := NewRingBuffer(2, WithRingName(NewName("probe", nil)), WithUnderfillWarning(func(n Name, count int, capacity int) {
		assert.Equal(t, "probe", n.String())
		assert.Equal(t, 2, capacity)
		warnings = append(warnings, count)
	}))
	require.NoError(t, err)

	_ = r.Average()
	r.Update(1)
	_ = r.StandardDeviation()
	r.Update(1)
	_ = r.Average()
	_ = r.StandardDeviation()
	assert.Equal(t, []int{0, 1}, warnings)

	r.Reset()
	_ = r.StandardDeviation()
	assert.Equal(t, []int{0, 1, 0}, warnings)
}
