// Package metrics - Per-sample system metrics collection strategies.
package metrics

import (
	"fmt"
	"math"
)

// Sample holds the metrics collected around one inference call.
//
// Iteration is the 1-based insertion order of successfully processed
// samples. PowerWatts is NaN when power was not measured or the measurement
// failed.
type Sample struct {
	Iteration     int
	Latency       float64
	CPUPercent    float64
	MemoryPercent float64
	PowerWatts    float64
}

// HasPower reports whether the sample carries a real power reading.
func (s Sample) HasPower() bool {
	return !math.IsNaN(s.PowerWatts)
}

// NoPower is the missing-value sentinel for power readings.
func NoPower() float64 {
	return math.NaN()
}

// Sampler measures instantaneous CPU and memory usage around an inference
// call. Begin is called immediately before the call and End immediately
// after; End returns the usage attributed to the call.
//
// The simulated and system implementations represent genuinely different
// fidelity levels and are kept as separate strategies rather than unified.
type Sampler interface {
	Begin()
	End() (cpuPercent, memoryPercent float64)
}

// Mode selects a Sampler implementation.
type Mode string

const (
	// ModeSimulated emits placeholder values in fixed ranges with no real
	// measurement.
	ModeSimulated Mode = "simulated"
	// ModeSystem samples the OS before and after each call and averages.
	ModeSystem Mode = "system"
)

// NewSampler builds the Sampler for the given mode.
func NewSampler(mode Mode) (Sampler, error) {
	switch mode {
	case ModeSimulated:
		return NewSimulatedSampler(0), nil
	case ModeSystem:
		return NewSystemSampler(), nil
	default:
		return nil, fmt.Errorf("unknown metrics mode: %q", mode)
	}
}
