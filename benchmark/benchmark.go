package benchmark

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nvr-ai/edgebench/dataset"
	"github.com/nvr-ai/edgebench/inference"
	"github.com/nvr-ai/edgebench/metrics"
	"github.com/nvr-ai/edgebench/preprocess"
	"github.com/nvr-ai/edgebench/report"
)

// Suite runs the benchmark loop: enumerate the dataset, preprocess each
// file, time one forward pass per file, collect metrics, and write the
// report once at the end.
//
// Per-sample preprocessing or inference failures are logged with the
// failing path and skipped; only startup-class failures (empty dataset,
// unwritable output directory) or context cancellation abort the run.
type Suite struct {
	config       *Config
	engine       inference.Engine
	preprocessor preprocess.Preprocessor
	sampler      metrics.Sampler
	power        metrics.PowerMeter

	samples []metrics.Sample
	results []inference.Result
}

// NewSuite assembles a benchmark suite from its collaborators. power may be
// nil when power measurement is disabled.
func NewSuite(
	config *Config,
	engine inference.Engine,
	preprocessor preprocess.Preprocessor,
	sampler metrics.Sampler,
	power metrics.PowerMeter,
) *Suite {
	return &Suite{
		config:       config,
		engine:       engine,
		preprocessor: preprocessor,
		sampler:      sampler,
		power:        power,
	}
}

// Report is the immutable outcome of one completed run.
type Report struct {
	// Samples holds one entry per successfully processed file, in
	// encounter order.
	Samples []metrics.Sample
	// Results holds the inference results parallel to Samples.
	Results []inference.Result
	// Skipped counts files dropped by preprocessing or inference failures.
	Skipped int
	// CSVPath is the written tabular report.
	CSVPath string
	// OutputDir holds the CSV and chart files.
	OutputDir string
}

// Run executes the full benchmark and writes the report files.
//
// The returned error is nil when at least one sample was processed and the
// tabular report was written; chart rendering failures are logged but do
// not fail the run.
func (s *Suite) Run(ctx context.Context) (*Report, error) {
	s.samples = nil
	s.results = nil

	paths, err := dataset.Enumerate(s.config.DatasetOptions())
	if err != nil {
		return nil, err
	}

	fmt.Printf("Benchmarking %d files from %s\n", len(paths), s.config.DatasetDir)

	if s.config.WarmupRuns > 0 {
		s.warmup(ctx, paths[0])
	}

	skipped := 0
	for _, path := range paths {
		input, err := s.preprocessor.Preprocess(path)
		if err != nil {
			fmt.Printf("Error processing %s: %v\n", path, err)
			skipped++
			continue
		}

		s.sampler.Begin()

		start := time.Now()
		output, err := s.engine.Run(ctx, input)
		latency := time.Since(start).Seconds()

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			fmt.Printf("Error processing %s: %v\n", path, err)
			skipped++
			continue
		}

		cpuPercent, memPercent := s.sampler.End()

		power := metrics.NoPower()
		if s.power != nil {
			power = s.power.Measure(ctx)
		}

		s.samples = append(s.samples, metrics.Sample{
			Iteration:     len(s.samples) + 1,
			Latency:       latency,
			CPUPercent:    cpuPercent,
			MemoryPercent: memPercent,
			PowerWatts:    power,
		})
		s.results = append(s.results, inference.NewResult(output))
	}

	if len(s.samples) == 0 {
		return nil, fmt.Errorf("no samples processed successfully (%d of %d files failed)",
			skipped, len(paths))
	}

	csvPath, err := s.writeReport()
	if err != nil {
		return nil, err
	}

	return &Report{
		Samples:   s.samples,
		Results:   s.results,
		Skipped:   skipped,
		CSVPath:   csvPath,
		OutputDir: s.config.OutputDir,
	}, nil
}

// warmup runs unrecorded inferences over the first usable file so session
// setup cost does not land in the first measured latency.
func (s *Suite) warmup(ctx context.Context, path string) {
	input, err := s.preprocessor.Preprocess(path)
	if err != nil {
		return
	}
	for i := 0; i < s.config.WarmupRuns; i++ {
		if _, err := s.engine.Run(ctx, input); err != nil {
			return
		}
	}
}

func (s *Suite) writeReport() (string, error) {
	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	opts := report.Options{
		IncludePower:       s.config.MeasurePower,
		IncludePredictions: s.config.IncludePredictions,
	}

	csvPath := filepath.Join(s.config.OutputDir, report.ResultsFileName)
	if err := report.WriteCSV(csvPath, s.samples, s.results, opts); err != nil {
		return "", err
	}
	fmt.Printf("Benchmark results saved to %s\n", csvPath)

	if err := report.WriteCharts(s.config.OutputDir, s.samples, s.results, opts); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	return csvPath, nil
}

// Samples returns the collected metric samples.
func (s *Suite) Samples() []metrics.Sample {
	out := make([]metrics.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}
