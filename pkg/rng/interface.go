package rng

import (
	"math/rand"
	"time"
)

// RNG is a random number generator
type RNG interface {
	Rand() float64
}

func source(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Split derives n distinct nonzero seeds from seed, so related generators do not share a
// stream.  A zero seed seeds from the clock.
func Split(seed int64, n int) []int64 {
	r := source(seed)
	out := make([]int64, 0, n)
	seen := make(map[int64]bool, n)
	for len(out) < n {
		s := r.Int63()
		if s == 0 || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
