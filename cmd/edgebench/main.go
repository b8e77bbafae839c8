package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/nvr-ai/edgebench/benchmark"
	"github.com/nvr-ai/edgebench/inference"
	"github.com/nvr-ai/edgebench/metrics"
	"github.com/nvr-ai/edgebench/preprocess"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Path to JSON benchmark configuration file")
		datasetDir   = flag.String("dataset", "", "Path to the dataset directory")
		modelPath    = flag.String("model", "", "Path to the quantized ONNX model file")
		outputDir    = flag.String("output", "", "Output directory for the CSV and charts")
		modality     = flag.String("modality", "", "Dataset modality: audio or image")
		maxFiles     = flag.Int("max", 0, "Maximum number of dataset files to benchmark")
		metricsMode  = flag.String("metrics", "", "CPU/memory sampling mode: simulated or system")
		measurePower = flag.Bool("power", false, "Measure power draw via powertop per sample")
		powerWindow  = flag.Int("power-window", 0, "Powertop sampling window in seconds")
		warmupRuns   = flag.Int("warmup", 0, "Unrecorded warmup inferences before measuring")
		timeout      = flag.Duration("timeout", 30*time.Minute, "Benchmark timeout duration")
	)
	flag.Parse()

	config := benchmark.DefaultConfig()
	if *configFile != "" {
		loaded, err := benchmark.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		config = loaded
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dataset":
			config.DatasetDir = *datasetDir
		case "model":
			config.ModelPath = *modelPath
		case "output":
			config.OutputDir = *outputDir
		case "modality":
			config.Modality = benchmark.Modality(*modality)
		case "max":
			config.MaxInferences = *maxFiles
		case "metrics":
			config.MetricsMode = metrics.Mode(*metricsMode)
		case "power":
			config.MeasurePower = *measurePower
		case "power-window":
			config.PowerWindowSeconds = *powerWindow
		case "warmup":
			config.WarmupRuns = *warmupRuns
		}
	})

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	engine, err := inference.NewONNXEngine(config.ModelPath)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	defer engine.Close()

	preprocessor, err := newPreprocessor(config.Modality, engine)
	if err != nil {
		log.Fatalf("Failed to build preprocessor: %v", err)
	}

	sampler, err := metrics.NewSampler(config.MetricsMode)
	if err != nil {
		log.Fatalf("Failed to build metrics sampler: %v", err)
	}

	var power metrics.PowerMeter
	if config.MeasurePower {
		power = metrics.NewPowertopMeter(time.Duration(config.PowerWindowSeconds) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Println("Running Benchmark...")
	suite := benchmark.NewSuite(config, engine, preprocessor, sampler, power)

	result, err := suite.Run(ctx)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	printSummary(result)
	fmt.Println("Benchmark complete!")
}

func newPreprocessor(modality benchmark.Modality, engine inference.Engine) (preprocess.Preprocessor, error) {
	switch modality {
	case benchmark.ModalityAudio:
		return preprocess.NewAudioPreprocessor(engine.InputShape())
	case benchmark.ModalityImage:
		return preprocess.NewImagePreprocessor(engine.InputShape())
	default:
		return nil, fmt.Errorf("unknown modality: %q", modality)
	}
}

func printSummary(result *benchmark.Report) {
	latencies := make([]float64, len(result.Samples))
	for i, s := range result.Samples {
		latencies[i] = s.Latency
	}

	fmt.Printf("\n=== BENCHMARK SUMMARY ===\n")
	fmt.Printf("Samples processed: %d\n", len(result.Samples))
	fmt.Printf("Samples skipped:   %d\n", result.Skipped)
	fmt.Printf("Mean latency:      %.6f s\n", stat.Mean(latencies, nil))
	fmt.Printf("Results saved to:  %s\n", result.OutputDir)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "Benchmark tool for on-device quantized model inference.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(
			os.Stderr,
			"  %s -dataset ./dataset -model ./models/keyword_spotting.onnx -modality audio\n",
			filepath.Base(os.Args[0]),
		)
		fmt.Fprintf(
			os.Stderr,
			"  %s -dataset ./dataset -model ./quantized_model.onnx -modality image -power\n",
			filepath.Base(os.Args[0]),
		)
		fmt.Fprintf(
			os.Stderr,
			"  %s -config ./benchmark_config.json\n",
			filepath.Base(os.Args[0]),
		)
	}
}
