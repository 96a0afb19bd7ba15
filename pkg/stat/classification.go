// Package stat decides when a sampled temperature signal has settled
package stat

// Classification describes how the spread of a monitored signal moved on the latest sample
type Classification string

const (
	// Idle is reported before the first sample and after a reset
	Idle Classification = "idle"
	// Converging means the spread dropped below every spread in the trailing window
	Converging Classification = "converging"
	// Stabilizing means the spread stayed within the band of the trailing window
	Stabilizing Classification = "stabilizing"
	// Diverging means the spread rose above the trailing window by more than the divergence margin
	Diverging Classification = "diverging"
	// Missing means no reading was available for the sample
	Missing Classification = "missing"
)

// DivergenceMargin is the multiplier applied to the largest trailing spread before a
// new spread counts as diverging.
const DivergenceMargin = 1.025

// Resets reports whether the classification restarts the count of consecutive stable samples
func (c Classification) Resets() bool {
	switch c {
	case Stabilizing:
		return false
	default:
		return true
	}
}
