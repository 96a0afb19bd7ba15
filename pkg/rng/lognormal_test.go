package rng

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleStats(r RNG, n int, f func(float64) float64) (mean, stdev float64) {
	val := make([]float64, n)
	sum := 0.0
	for i := range val {
		val[i] = f(r.Rand())
		sum += val[i]
	}
	mean = sum / float64(n)

	variance := 0.0
	for _, v := range val {
		variance += math.Pow(v-mean, 2.0)
	}
	return mean, math.Sqrt(variance / float64(n-1))
}

func TestLogNormalRNG(t *testing.T) {
	mean, stdev := sampleStats(NewLogNormalRNG(5.0, 1.0, 0), 10000, math.Log)
	assert.InDelta(t, 5.0, mean, 0.05)
	assert.InDelta(t, 1.0, stdev, 0.05)
}

func TestNormalRNG(t *testing.T) {
	identity := func(v float64) float64 { return v }
	mean, stdev := sampleStats(NewNormalRNG(20.0, 0.5, 0), 10000, identity)
	assert.InDelta(t, 20.0, mean, 0.05)
	assert.InDelta(t, 0.5, stdev, 0.05)
}

func TestSeeded(t *testing.T) {
	a := NewNormalRNG(0, 1, 7)
	b := NewNormalRNG(0, 1, 7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Rand(), b.Rand())
	}
}

func TestSplit(t *testing.T) {
	tt := []struct {
		name string
		seed int64
		n    int
	}{
		{name: "seeded", seed: 42, n: 8},
		{name: "clock", seed: 0, n: 4},
		{name: "none", seed: 3, n: 0},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			seeds := Split(tc.seed, tc.n)
			assert.Len(t, seeds, tc.n)
			seen := map[int64]bool{}
			for _, s := range seeds {
				assert.NotZero(t, s)
				assert.False(t, seen[s])
				seen[s] = true
			}
		})
	}
	assert.Equal(t, Split(42, 3), Split(42, 3))
}
