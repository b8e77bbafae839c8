package metrics

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// PowerMeter measures instantaneous power draw in watts. Implementations
// must map every failure to the NoPower sentinel instead of returning an
// error; power is a degraded-optional measurement.
type PowerMeter interface {
	Measure(ctx context.Context) float64
}

// PowertopMeter shells out to the powertop utility in CSV mode for a fixed
// sampling window and extracts the last CSV field of the report's final
// line.
type PowertopMeter struct {
	// Window is the powertop sampling duration.
	Window time.Duration
	// Binary is the powertop executable name; overridable for tests.
	Binary string
}

// NewPowertopMeter creates a powertop-backed meter with the given sampling
// window.
func NewPowertopMeter(window time.Duration) *PowertopMeter {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &PowertopMeter{Window: window, Binary: "powertop"}
}

// Measure runs powertop once and parses its CSV report. Missing binary,
// permission denial, or a malformed report all yield the NoPower sentinel.
func (m *PowertopMeter) Measure(ctx context.Context) float64 {
	binary := m.Binary
	if binary == "" {
		binary = "powertop"
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return NoPower()
	}

	tmp, err := os.CreateTemp("", "powertop-*.csv")
	if err != nil {
		return NoPower()
	}
	report := tmp.Name()
	tmp.Close()
	defer os.Remove(report)

	seconds := int(m.Window.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	cmd := exec.CommandContext(ctx, path,
		fmt.Sprintf("--time=%d", seconds),
		fmt.Sprintf("--csv=%s", report),
	)
	if err := cmd.Run(); err != nil {
		return NoPower()
	}

	data, err := os.ReadFile(report)
	if err != nil {
		return NoPower()
	}
	return parsePowerReport(string(data))
}

// parsePowerReport extracts the watt value from the last CSV field of the
// report's last non-empty line.
func parsePowerReport(report string) float64 {
	lines := strings.Split(strings.TrimSpace(report), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		last := strings.TrimSpace(fields[len(fields)-1])
		last = strings.TrimSuffix(last, "W")
		last = strings.TrimSpace(last)
		if watts, err := strconv.ParseFloat(last, 64); err == nil {
			return watts
		}
		return NoPower()
	}
	return NoPower()
}
