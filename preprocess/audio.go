package preprocess

import (
	"math/cmplx"
	"os"

	"github.com/chewxy/math32"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
	"gorgonia.org/tensor"
)

// AudioPreprocessor converts WAV clips into spectrogram tensors.
//
// The pipeline mirrors the keyword-spotting preprocessing: collapse to mono
// by channel averaging, peak-normalize to [-1, 1], take the magnitude of a
// real FFT sized to the model's feature dimension, then tile-or-truncate the
// magnitudes across the model's time x feature grid.
type AudioPreprocessor struct {
	shape   tensor.Shape
	rows    int
	cols    int
	fftSize int
	fft     *fourier.FFT
}

// NewAudioPreprocessor creates an audio preprocessor for the given model
// input shape.
//
// Arguments:
// - shape: The model's declared input shape, [1, time, features, 1].
//
// Returns:
// - *AudioPreprocessor: The configured preprocessor.
// - error: An error if the shape is not a batch-1, single-channel rank-4 shape.
func NewAudioPreprocessor(shape tensor.Shape) (*AudioPreprocessor, error) {
	if len(shape) != 4 {
		return nil, errors.Errorf("audio input shape must be rank 4, got %v", shape)
	}
	if shape[0] != 1 {
		return nil, errors.Errorf("audio input shape must have batch size 1, got %v", shape)
	}
	if shape[3] != 1 {
		return nil, errors.Errorf("audio input shape must have a single trailing channel, got %v", shape)
	}

	cols := shape[2]
	return &AudioPreprocessor{
		shape:   shape.Clone(),
		rows:    shape[1],
		cols:    cols,
		fftSize: cols,
		fft:     fourier.NewFFT(cols),
	}, nil
}

// InputShape returns the tensor shape produced by Preprocess.
func (a *AudioPreprocessor) InputShape() tensor.Shape {
	return a.shape.Clone()
}

// Preprocess reads a WAV file and returns its spectrogram tensor.
func (a *AudioPreprocessor) Preprocess(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open audio file %s", path)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, errors.Errorf("not a valid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode WAV file %s", path)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.Errorf("empty audio file: %s", path)
	}

	mono := monoSamples(buf)
	peakNormalize(mono)

	magnitudes := a.spectrum(mono)
	backing := tile(magnitudes, a.rows*a.cols)

	return tensor.New(tensor.WithShape(a.shape...), tensor.WithBacking(backing)), nil
}

// spectrum returns the magnitude of the real FFT over the waveform,
// zero-padded or truncated to the transform length.
func (a *AudioPreprocessor) spectrum(samples []float32) []float32 {
	padded := make([]float64, a.fftSize)
	for i := 0; i < len(padded) && i < len(samples); i++ {
		padded[i] = float64(samples[i])
	}

	coeffs := a.fft.Coefficients(nil, padded)
	magnitudes := make([]float32, len(coeffs))
	for i, c := range coeffs {
		magnitudes[i] = float32(cmplx.Abs(c))
	}
	return magnitudes
}

// monoSamples collapses an interleaved PCM buffer to a mono float32 waveform
// by averaging channels per frame.
func monoSamples(buf *audio.IntBuffer) []float32 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c])
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// peakNormalize scales the waveform in place so the largest magnitude is 1.
// Silent input is left untouched.
func peakNormalize(samples []float32) {
	var peak float32
	for _, s := range samples {
		if abs := math32.Abs(s); abs > peak {
			peak = abs
		}
	}
	if peak == 0 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}
