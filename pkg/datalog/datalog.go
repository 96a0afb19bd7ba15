// Package datalog persists one row per sample tick.  Every recorder writes synchronously so a run
// that dies part way leaves a truncated but consistent log.
package datalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Row is one sample tick.  Readings that could not be taken are NaN.
type Row struct {
	Time     time.Time
	Elapsed  time.Duration
	Setpoint float64
	Bath     float64
	Probe    float64
	Sensors  []float64
}

// Recorder durably appends rows
type Recorder interface {
	Record(row Row) error
	Close() error
}

// FormatElapsed renders a duration as H:MM:SS
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// formatValue renders a reading, leaving missing values empty
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Multi fans every row out to several recorders
type Multi []Recorder

func (m Multi) Record(row Row) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
