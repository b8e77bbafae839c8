package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/nvr-ai/edgebench/inference"
	"github.com/nvr-ai/edgebench/metrics"
)

// Chart file names, fixed per run and overwritten on each invocation.
const (
	LatencyChartName    = "inference_time_distribution.png"
	CPUChartName        = "cpu_usage_plot.png"
	MemoryChartName     = "memory_usage_plot.png"
	PowerChartName      = "power_consumption_plot.png"
	ConfidenceChartName = "confidence_plot.png"
	LabelChartName      = "predicted_label_plot.png"
)

const (
	chartWidth     = 8 * vg.Inch
	chartHeight    = 6 * vg.Inch
	histogramBins  = 20
	latencyMinBins = 1
)

var (
	latencyColor    = color.RGBA{R: 66, G: 133, B: 244, A: 255}
	cpuColor        = color.RGBA{R: 244, G: 180, B: 0, A: 255}
	memoryColor     = color.RGBA{R: 15, G: 157, B: 88, A: 255}
	powerColor      = color.RGBA{R: 219, G: 68, B: 55, A: 255}
	confidenceColor = color.RGBA{R: 171, G: 71, B: 188, A: 255}
	labelColor      = color.RGBA{R: 102, G: 102, B: 102, A: 255}
)

// WriteCharts renders the fixed chart set into dir. Every chart is an
// independent render; one failure never blocks the others. The returned
// error joins all individual failures.
func WriteCharts(dir string, samples []metrics.Sample, results []inference.Result, opts Options) error {
	latencies := make(plotter.Values, len(samples))
	cpuSeries := make(plotter.XYs, len(samples))
	memSeries := make(plotter.XYs, len(samples))
	for i, s := range samples {
		latencies[i] = s.Latency
		cpuSeries[i].X, cpuSeries[i].Y = float64(s.Iteration), s.CPUPercent
		memSeries[i].X, memSeries[i].Y = float64(s.Iteration), s.MemoryPercent
	}

	var errs []error
	fail := func(name string, err error) {
		errs = append(errs, fmt.Errorf("chart %s: %w", name, err))
	}

	if err := saveHistogram(filepath.Join(dir, LatencyChartName), latencies,
		"Inference Time Distribution", "Time (s)", "Frequency", latencyColor); err != nil {
		fail(LatencyChartName, err)
	}

	if err := saveLine(filepath.Join(dir, CPUChartName), cpuSeries,
		"CPU Usage Over Time", "Iteration", "CPU Usage (%)", cpuColor); err != nil {
		fail(CPUChartName, err)
	}

	if err := saveLine(filepath.Join(dir, MemoryChartName), memSeries,
		"Memory Usage Over Time", "Iteration", "Memory Usage (%)", memoryColor); err != nil {
		fail(MemoryChartName, err)
	}

	if opts.IncludePower {
		var powerSeries plotter.XYs
		for _, s := range samples {
			if !s.HasPower() {
				continue
			}
			powerSeries = append(powerSeries, plotter.XY{X: float64(s.Iteration), Y: s.PowerWatts})
		}
		if err := saveLine(filepath.Join(dir, PowerChartName), powerSeries,
			"Power Consumption Over Time", "Iteration", "Power Consumption (W)", powerColor); err != nil {
			fail(PowerChartName, err)
		}
	}

	if opts.IncludePredictions && len(results) == len(samples) {
		confSeries := make(plotter.XYs, len(samples))
		labelSeries := make(plotter.XYs, len(samples))
		for i, s := range samples {
			confSeries[i].X, confSeries[i].Y = float64(s.Iteration), float64(results[i].Confidence)
			labelSeries[i].X, labelSeries[i].Y = float64(s.Iteration), float64(results[i].Label)
		}
		if err := saveLine(filepath.Join(dir, ConfidenceChartName), confSeries,
			"Prediction Confidence Over Time", "Iteration", "Confidence", confidenceColor); err != nil {
			fail(ConfidenceChartName, err)
		}
		if err := saveLine(filepath.Join(dir, LabelChartName), labelSeries,
			"Predicted Label Over Time", "Iteration", "Label Index", labelColor); err != nil {
			fail(LabelChartName, err)
		}
	}

	return errors.Join(errs...)
}

func saveHistogram(path string, values plotter.Values, title, xLabel, yLabel string, c color.Color) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	bins := histogramBins
	if len(values) < bins {
		bins = len(values)
	}
	if bins < latencyMinBins {
		bins = latencyMinBins
	}

	h, err := plotter.NewHist(finiteValues(values), bins)
	if err != nil {
		return err
	}
	h.FillColor = c

	p.Add(h, plotter.NewGrid())
	return p.Save(chartWidth, chartHeight, path)
}

func saveLine(path string, points plotter.XYs, title, xLabel, yLabel string, c color.Color) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	l, err := plotter.NewLine(points)
	if err != nil {
		return err
	}
	l.Color = c

	p.Add(l, plotter.NewGrid())
	return p.Save(chartWidth, chartHeight, path)
}

// finiteValues drops NaN and infinite entries; the histogram plotter
// rejects them.
func finiteValues(values plotter.Values) plotter.Values {
	out := make(plotter.Values, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
