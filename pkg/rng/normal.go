package rng

var _ RNG = &NormalRNG{}

// NormalRNG generates normally distributed noise around a mean
type NormalRNG struct {
	mean  float64
	stdev float64
	r     interface{ NormFloat64() float64 }
}

func (r *NormalRNG) Rand() float64 {
	return r.r.NormFloat64()*r.stdev + r.mean
}

// NewNormalRNG returns a generator seeded with seed, or with the clock when seed is zero
func NewNormalRNG(mean float64, stdev float64, seed int64) *NormalRNG {
	return &NormalRNG{
		mean:  mean,
		stdev: stdev,
		r:     source(seed),
	}
}
