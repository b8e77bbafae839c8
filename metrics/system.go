package metrics

import (
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSampler measures real CPU and memory usage via the OS, taking one
// reading before and one after the inference call and averaging the pair.
//
// A failed OS read degrades to NaN for that field rather than aborting the
// run.
type SystemSampler struct {
	beforeCPU float64
	beforeMem float64
}

// NewSystemSampler creates a system sampler.
func NewSystemSampler() *SystemSampler {
	return &SystemSampler{}
}

// Begin records the pre-inference reading.
func (s *SystemSampler) Begin() {
	s.beforeCPU = readCPUPercent()
	s.beforeMem = readMemoryPercent()
}

// End records the post-inference reading and returns the before/after
// average of each field.
func (s *SystemSampler) End() (float64, float64) {
	return average(s.beforeCPU, readCPUPercent()), average(s.beforeMem, readMemoryPercent())
}

func readCPUPercent() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return math.NaN()
	}
	return percents[0]
}

func readMemoryPercent() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return math.NaN()
	}
	return vm.UsedPercent
}

func average(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	default:
		return (a + b) / 2
	}
}
