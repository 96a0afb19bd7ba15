package rng

import (
	"math"
	"math/rand"
)

var _ RNG = &LogNormalRNG{}

// LogNormalRNG generates Log Normal random numbers.  The simulator uses it for instrument time
// constants, which are positive and skewed toward slow.
type LogNormalRNG struct {
	mean  float64
	stdev float64
	r     *rand.Rand
}

func (r *LogNormalRNG) Rand() float64 {
	return math.Exp(r.r.NormFloat64()*r.stdev + r.mean)
}

// NewLogNormalRNG returns a generator whose log has the given mean and stdev
func NewLogNormalRNG(mean float64, stdev float64, seed int64) *LogNormalRNG {
	return &LogNormalRNG{
		mean:  mean,
		stdev: stdev,
		r:     source(seed),
	}
}
