// Package benchmark - The benchmark-and-report loop over a local dataset.
package benchmark

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvr-ai/edgebench/dataset"
	"github.com/nvr-ai/edgebench/metrics"
)

// Modality selects the dataset kind and its preprocessing pipeline.
type Modality string

const (
	// ModalityAudio benchmarks WAV clips; the dataset walk is recursive.
	ModalityAudio Modality = "audio"
	// ModalityImage benchmarks image files from a flat directory listing.
	ModalityImage Modality = "image"
)

// Config is the explicit run configuration passed into the benchmark entry
// point. There is no module-level state.
type Config struct {
	// DatasetDir is the directory holding the input files.
	DatasetDir string `json:"dataset_dir"`
	// ModelPath is the quantized ONNX model file.
	ModelPath string `json:"model_path"`
	// OutputDir receives the CSV and chart files; created if absent.
	OutputDir string `json:"output_dir"`
	// Modality selects audio or image preprocessing.
	Modality Modality `json:"modality"`
	// MaxInferences caps the number of dataset files. Zero means no cap.
	MaxInferences int `json:"max_inferences"`
	// MetricsMode selects simulated or real CPU/memory sampling.
	MetricsMode metrics.Mode `json:"metrics_mode"`
	// MeasurePower enables the powertop power meter per sample.
	MeasurePower bool `json:"measure_power"`
	// PowerWindowSeconds is the powertop sampling window.
	PowerWindowSeconds int `json:"power_window_seconds"`
	// IncludePredictions adds predicted label and confidence to the report.
	IncludePredictions bool `json:"include_predictions"`
	// WarmupRuns executes unrecorded inferences before measuring.
	WarmupRuns int `json:"warmup_runs"`
}

// DefaultConfig returns the default benchmark configuration.
func DefaultConfig() *Config {
	return &Config{
		DatasetDir:         "./dataset",
		ModelPath:          "./models/model.onnx",
		OutputDir:          "./visualizations",
		Modality:           ModalityImage,
		MaxInferences:      100,
		MetricsMode:        metrics.ModeSystem,
		PowerWindowSeconds: 5,
		IncludePredictions: true,
	}
}

// LoadConfig reads a JSON configuration file, overlaying it on the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}

// Validate checks the configuration before a run starts.
func (c *Config) Validate() error {
	if c.DatasetDir == "" {
		return fmt.Errorf("dataset directory is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	switch c.Modality {
	case ModalityAudio, ModalityImage:
	default:
		return fmt.Errorf("unknown modality: %q", c.Modality)
	}
	switch c.MetricsMode {
	case metrics.ModeSimulated, metrics.ModeSystem:
	default:
		return fmt.Errorf("unknown metrics mode: %q", c.MetricsMode)
	}
	if c.MaxInferences < 0 {
		return fmt.Errorf("max inferences must not be negative")
	}
	if c.WarmupRuns < 0 {
		return fmt.Errorf("warmup runs must not be negative")
	}
	return nil
}

// DatasetOptions derives the enumeration options for the configured
// modality: audio datasets are walked recursively, image datasets are a
// flat listing.
func (c *Config) DatasetOptions() dataset.Options {
	opts := dataset.Options{
		Root:     c.DatasetDir,
		MaxFiles: c.MaxInferences,
	}
	switch c.Modality {
	case ModalityAudio:
		opts.Extensions = dataset.AudioExtensions
		opts.Recursive = true
	case ModalityImage:
		opts.Extensions = dataset.ImageExtensions
	}
	return opts
}
