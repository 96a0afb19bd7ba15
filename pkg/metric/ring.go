package metric

import (
	"fmt"
	"math"
)

// RingBuffer is a fixed-capacity circular buffer of observations with running
// statistics over every slot.  Slots that have never been written hold zero and
// take part in the statistics, so a buffer is only meaningful once it is warm
// (see IsWarm).
type RingBuffer struct {
	name      Name
	values    []float64
	cursor    int
	count     int
	underfill func(name Name, count int, capacity int)
}

// RingOption configures a RingBuffer at creation
type RingOption func(r *RingBuffer) error

// NewRingBuffer creates a zero-filled ring buffer holding the most recent capacity observations
func NewRingBuffer(capacity int, opts ...RingOption) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring buffer must be initialized with a capacity >= 1")
	}
	r := &RingBuffer{
		values: make([]float64, capacity),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithRingName sets the name reported with underfill warnings
func WithRingName(n Name) RingOption {
	return func(r *RingBuffer) error {
		r.name = n
		return nil
	}
}

// WithUnderfillWarning registers a callback that is invoked whenever Average (and so
// StandardDeviation) is requested before the buffer has received capacity observations
// since its last reset.
func WithUnderfillWarning(f func(name Name, count int, capacity int)) RingOption {
	return func(r *RingBuffer) error {
		r.underfill = f
		return nil
	}
}

// Update overwrites the slot at the write cursor and advances the cursor
func (r *RingBuffer) Update(v float64) {
	r.values[r.cursor] = v
	r.cursor = (r.cursor + 1) % len(r.values)
	r.count++
}

// Reset sets the write count back to zero.  Stored values and the cursor are left
// untouched and continue to contribute to the statistics until they are overwritten.
func (r *RingBuffer) Reset() {
	r.count = 0
}

// Count returns the number of writes since creation or the last reset
func (r *RingBuffer) Count() int {
	return r.count
}

// Capacity returns the number of slots in the buffer
func (r *RingBuffer) Capacity() int {
	return len(r.values)
}

// IsWarm is true once capacity observations have been written since the last reset
func (r *RingBuffer) IsWarm() bool {
	return r.count >= len(r.values)
}

// FillRatio returns count/capacity, saturating at 1
func (r *RingBuffer) FillRatio() float64 {
	if r.IsWarm() {
		return 1.0
	}
	return float64(r.count) / float64(len(r.values))
}

// Name returns the diagnostic name of the buffer
func (r *RingBuffer) Name() string {
	return r.name.String()
}

// Average is the arithmetic mean over every slot, including stale or zero slots
// when the buffer is not yet warm.
func (r *RingBuffer) Average() float64 {
	if !r.IsWarm() && r.underfill != nil {
		r.underfill(r.name, r.count, len(r.values))
	}
	return mean(r.values)
}

// StandardDeviation is the population standard deviation (divided by capacity) over every
// slot around Average
func (r *RingBuffer) StandardDeviation() float64 {
	return math.Sqrt(populationVariance(r.values, r.Average()))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s / float64(len(values))
}

func populationVariance(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	s := 0.0
	for _, v := range values {
		s += (v - m) * (v - m)
	}
	return s / float64(len(values))
}
