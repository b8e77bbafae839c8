// Package report - Tabular and chart output for completed benchmark runs.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/nvr-ai/edgebench/inference"
	"github.com/nvr-ai/edgebench/metrics"
)

// ResultsFileName is the tabular report written into the output directory.
const ResultsFileName = "benchmark_results.csv"

// Options selects which optional columns and charts a report carries.
type Options struct {
	// IncludePower adds the power column and chart.
	IncludePower bool
	// IncludePredictions adds the predicted label and confidence columns
	// and charts.
	IncludePredictions bool
}

// WriteCSV writes one row per processed sample, in processing order, with
// floats at full precision.
//
// Arguments:
// - path: Destination file path, overwritten if present.
// - samples: Collected metric samples.
// - results: Inference results parallel to samples; only read when
//   opts.IncludePredictions is set.
// - opts: Column selection.
//
// Returns:
// - error: An error if the file cannot be written.
func WriteCSV(path string, samples []metrics.Sample, results []inference.Result, opts Options) error {
	if opts.IncludePredictions && len(results) != len(samples) {
		return fmt.Errorf("results count %d does not match samples count %d", len(results), len(samples))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(header(opts)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i, s := range samples {
		row := []string{
			strconv.Itoa(s.Iteration),
			formatFloat(s.Latency),
			formatFloat(s.CPUPercent),
			formatFloat(s.MemoryPercent),
		}
		if opts.IncludePower {
			row = append(row, formatFloat(s.PowerWatts))
		}
		if opts.IncludePredictions {
			row = append(row,
				strconv.Itoa(results[i].Label),
				strconv.FormatFloat(float64(results[i].Confidence), 'g', -1, 32),
			)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func header(opts Options) []string {
	fields := []string{
		"Iteration",
		"Inference Time (s)",
		"CPU Usage (%)",
		"Memory Usage (%)",
	}
	if opts.IncludePower {
		fields = append(fields, "Power Consumption (W)")
	}
	if opts.IncludePredictions {
		fields = append(fields, "Predicted Label", "Confidence")
	}
	return fields
}

// formatFloat writes the value at full precision; NaN renders as "NaN",
// the missing-value sentinel.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
