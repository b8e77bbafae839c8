package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/edgebench/dataset"
	"github.com/nvr-ai/edgebench/metrics"
	"github.com/nvr-ai/edgebench/report"
)

// mockPreprocessor returns zero tensors, optionally failing for specific
// file names or sleeping to simulate expensive preprocessing.
type mockPreprocessor struct {
	shape  tensor.Shape
	failOn map[string]bool
	delay  time.Duration
}

func (m *mockPreprocessor) Preprocess(path string) (*tensor.Dense, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.failOn[filepath.Base(path)] {
		return nil, fmt.Errorf("corrupt file: %s", path)
	}
	backing := make([]float32, m.shape.TotalSize())
	return tensor.New(tensor.WithShape(m.shape...), tensor.WithBacking(backing)), nil
}

func (m *mockPreprocessor) InputShape() tensor.Shape {
	return m.shape.Clone()
}

// mockEngine counts Run calls and fails on configured call numbers.
type mockEngine struct {
	calls      int
	failOnCall map[int]bool
	output     []float32
	closed     bool
}

func (m *mockEngine) InputShape() tensor.Shape {
	return tensor.Shape{1, 49, 40, 1}
}

func (m *mockEngine) OutputShape() tensor.Shape {
	return tensor.Shape{1, len(m.output)}
}

func (m *mockEngine) Run(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	m.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.failOnCall[m.calls] {
		return nil, fmt.Errorf("engine failure on call %d", m.calls)
	}
	out := make([]float32, len(m.output))
	copy(out, m.output)
	return tensor.New(tensor.WithShape(1, len(out)), tensor.WithBacking(out)), nil
}

func (m *mockEngine) Close() error {
	m.closed = true
	return nil
}

func newTestEngine() *mockEngine {
	return &mockEngine{
		output:     []float32{0.1, 0.8, 0.1},
		failOnCall: map[int]bool{},
	}
}

func testConfig(t *testing.T, fileNames ...string) *Config {
	t.Helper()

	datasetDir := t.TempDir()
	for _, name := range fileNames {
		require.NoError(t, os.WriteFile(filepath.Join(datasetDir, name), []byte("x"), 0o644))
	}

	config := DefaultConfig()
	config.DatasetDir = datasetDir
	config.OutputDir = filepath.Join(t.TempDir(), "visualizations")
	config.Modality = ModalityAudio
	config.MetricsMode = metrics.ModeSimulated
	return config
}

func newTestSuite(config *Config, engine *mockEngine, pre *mockPreprocessor) *Suite {
	return NewSuite(config, engine, pre, metrics.NewSimulatedSampler(1), nil)
}

func TestRunProcessesAllFiles(t *testing.T) {
	config := testConfig(t, "a.wav", "b.wav", "c.wav")
	engine := newTestEngine()
	pre := &mockPreprocessor{shape: engine.InputShape()}

	suite := newTestSuite(config, engine, pre)
	result, err := suite.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Samples, 3)
	assert.Len(t, suite.Samples(), 3)
	assert.Zero(t, result.Skipped)
	for i, s := range result.Samples {
		assert.Equal(t, i+1, s.Iteration)
		assert.GreaterOrEqual(t, s.Latency, 0.0)
		assert.False(t, s.HasPower())
	}

	// Every result is the arg-max of the mock output.
	for _, r := range result.Results {
		assert.Equal(t, 1, r.Label)
		assert.InDelta(t, 0.8, float64(r.Confidence), 1e-6)
	}

	assert.FileExists(t, result.CSVPath)
	assert.FileExists(t, filepath.Join(config.OutputDir, report.LatencyChartName))
	assert.FileExists(t, filepath.Join(config.OutputDir, report.CPUChartName))
	assert.FileExists(t, filepath.Join(config.OutputDir, report.MemoryChartName))
}

func TestRunSkipsFailedPreprocessing(t *testing.T) {
	config := testConfig(t, "a.wav", "corrupt.wav", "c.wav")
	engine := newTestEngine()
	pre := &mockPreprocessor{
		shape:  engine.InputShape(),
		failOn: map[string]bool{"corrupt.wav": true},
	}

	result, err := newTestSuite(config, engine, pre).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Samples, 2)
	assert.Equal(t, 1, result.Skipped)

	// Iterations stay consecutive; skipped files are not zero-filled.
	assert.Equal(t, 1, result.Samples[0].Iteration)
	assert.Equal(t, 2, result.Samples[1].Iteration)
}

func TestRunSkipsInferenceFailure(t *testing.T) {
	config := testConfig(t, "a.wav", "b.wav", "c.wav")
	engine := newTestEngine()
	engine.failOnCall[2] = true
	pre := &mockPreprocessor{shape: engine.InputShape()}

	result, err := newTestSuite(config, engine, pre).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Samples, 2)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 3, engine.calls)
}

func TestRunEmptyDatasetFails(t *testing.T) {
	config := testConfig(t)
	engine := newTestEngine()
	pre := &mockPreprocessor{shape: engine.InputShape()}

	_, err := newTestSuite(config, engine, pre).Run(context.Background())
	assert.ErrorIs(t, err, dataset.ErrNoFiles)

	// No report files on a failed run.
	assert.NoDirExists(t, config.OutputDir)
}

func TestRunAllSamplesFailing(t *testing.T) {
	config := testConfig(t, "a.wav", "b.wav")
	engine := newTestEngine()
	pre := &mockPreprocessor{
		shape:  engine.InputShape(),
		failOn: map[string]bool{"a.wav": true, "b.wav": true},
	}

	_, err := newTestSuite(config, engine, pre).Run(context.Background())
	assert.Error(t, err)
	assert.NoDirExists(t, config.OutputDir)
}

func TestLatencyExcludesPreprocessing(t *testing.T) {
	config := testConfig(t, "a.wav", "b.wav")
	engine := newTestEngine()
	pre := &mockPreprocessor{
		shape: engine.InputShape(),
		delay: 100 * time.Millisecond,
	}

	result, err := newTestSuite(config, engine, pre).Run(context.Background())
	require.NoError(t, err)

	// The mock engine returns immediately, so the recorded latency must
	// not absorb the artificial preprocessing delay.
	for _, s := range result.Samples {
		assert.Less(t, s.Latency, 0.05)
	}
}

func TestRunWarmupNotRecorded(t *testing.T) {
	config := testConfig(t, "a.wav", "b.wav")
	config.WarmupRuns = 2
	engine := newTestEngine()
	pre := &mockPreprocessor{shape: engine.InputShape()}

	result, err := newTestSuite(config, engine, pre).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Samples, 2)
	assert.Equal(t, 4, engine.calls) // 2 warmup + 2 measured
}

func TestRunTwiceDoesNotAccumulate(t *testing.T) {
	config := testConfig(t, "a.wav", "b.wav", "c.wav")
	engine := newTestEngine()
	pre := &mockPreprocessor{shape: engine.InputShape()}
	suite := newTestSuite(config, engine, pre)

	first, err := suite.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Samples, 3)

	// A fresh run starts from an empty sample set instead of appending to
	// the previous run's.
	second, err := suite.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, second.Samples, 3)
	assert.Len(t, suite.Samples(), 3)
	assert.Equal(t, 1, second.Samples[0].Iteration)
}

func TestRunCancelledContext(t *testing.T) {
	config := testConfig(t, "a.wav")
	engine := newTestEngine()
	pre := &mockPreprocessor{shape: engine.InputShape()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSuite(config, engine, pre).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
