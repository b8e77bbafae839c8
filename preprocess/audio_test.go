package preprocess

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// writeWAV encodes PCM16 samples into a WAV file under dir.
func writeWAV(t *testing.T, dir, name string, channels int, samples []int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: 16000},
		Data:           samples,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func kwsShape() tensor.Shape {
	return tensor.Shape{1, 49, 40, 1}
}

func TestNewAudioPreprocessorRejectsBadShapes(t *testing.T) {
	_, err := NewAudioPreprocessor(tensor.Shape{49, 40, 1})
	assert.Error(t, err)

	_, err = NewAudioPreprocessor(tensor.Shape{2, 49, 40, 1})
	assert.Error(t, err)

	_, err = NewAudioPreprocessor(tensor.Shape{1, 49, 40, 3})
	assert.Error(t, err)
}

func TestNewAudioPreprocessorFFTSizedToFeatureDim(t *testing.T) {
	pre, err := NewAudioPreprocessor(kwsShape())
	require.NoError(t, err)

	// The transform length is the feature dimension, not the trailing
	// channel axis: a one-point FFT would collapse every clip to a single
	// tiled |sample[0]| value.
	assert.Equal(t, 40, pre.fftSize)
	mags := pre.spectrum(make([]float32, 40))
	assert.Len(t, mags, 40/2+1)
}

func TestAudioPreprocessShapeMatchesModelInput(t *testing.T) {
	dir := t.TempDir()
	samples := make([]int, 1600)
	for i := range samples {
		samples[i] = int(10000 * math.Sin(float64(i)/10))
	}
	path := writeWAV(t, dir, "tone.wav", 1, samples)

	pre, err := NewAudioPreprocessor(kwsShape())
	require.NoError(t, err)

	out, err := pre.Preprocess(path)
	require.NoError(t, err)
	assert.True(t, kwsShape().Eq(out.Shape()))
	assert.True(t, pre.InputShape().Eq(out.Shape()))

	data := out.Data().([]float32)
	assert.Len(t, data, 49*40)
	for _, v := range data {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestAudioPreprocessCollapsesStereoToMono(t *testing.T) {
	dir := t.TempDir()

	// Opposite-phase channels cancel: the mono waveform is silence, so
	// every FFT magnitude is zero.
	samples := make([]int, 800)
	for i := 0; i < len(samples); i += 2 {
		samples[i] = 5000
		samples[i+1] = -5000
	}
	path := writeWAV(t, dir, "stereo.wav", 2, samples)

	pre, err := NewAudioPreprocessor(kwsShape())
	require.NoError(t, err)

	out, err := pre.Preprocess(path)
	require.NoError(t, err)
	for _, v := range out.Data().([]float32) {
		assert.Zero(t, v)
	}
}

func TestAudioPreprocessSilenceDoesNotDivideByZero(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, "silence.wav", 1, make([]int, 400))

	pre, err := NewAudioPreprocessor(kwsShape())
	require.NoError(t, err)

	out, err := pre.Preprocess(path)
	require.NoError(t, err)
	for _, v := range out.Data().([]float32) {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestAudioPreprocessRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0o644))

	pre, err := NewAudioPreprocessor(kwsShape())
	require.NoError(t, err)

	_, err = pre.Preprocess(path)
	assert.Error(t, err)
}

func TestAudioPreprocessMissingFile(t *testing.T) {
	pre, err := NewAudioPreprocessor(kwsShape())
	require.NoError(t, err)

	_, err = pre.Preprocess(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}
