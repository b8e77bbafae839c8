package metrics

import (
	"math/rand"
	"time"
)

// Placeholder ranges used when no real measurement is wanted. These match
// the simulated fidelity level of the original benchmark runs.
const (
	simulatedCPUMin = 5.0
	simulatedCPUMax = 15.0
	simulatedMemMin = 1.0
	simulatedMemMax = 10.0
)

// SimulatedSampler emits uniform random CPU and memory percentages in fixed
// ranges. It performs no OS calls.
type SimulatedSampler struct {
	rng *rand.Rand
}

// NewSimulatedSampler creates a simulated sampler. A zero seed derives one
// from the clock.
func NewSimulatedSampler(seed int64) *SimulatedSampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedSampler{rng: rand.New(rand.NewSource(seed))}
}

// Begin is a no-op for the simulated sampler.
func (s *SimulatedSampler) Begin() {}

// End returns placeholder CPU and memory percentages.
func (s *SimulatedSampler) End() (float64, float64) {
	cpu := simulatedCPUMin + s.rng.Float64()*(simulatedCPUMax-simulatedCPUMin)
	mem := simulatedMemMin + s.rng.Float64()*(simulatedMemMax-simulatedMemMin)
	return cpu, mem
}
