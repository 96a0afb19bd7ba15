package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	tt := []struct {
		name   string
		incs   int
		expect int
	}{
		{name: "zero", expect: 0},
		{name: "one", incs: 1, expect: 1},
		{name: "several", incs: 4, expect: 4},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCounter()
			for i := 0; i < tc.incs; i++ {
				c.Inc()
			}
			assert.Equal(t, tc.expect, c.Value())
			c.Reset()
			assert.Equal(t, 0, c.Value())
		})
	}
}
