// Package preprocess - Converts raw dataset files into model input tensors.
package preprocess

import (
	"gorgonia.org/tensor"
)

// Preprocessor converts one raw dataset file into a tensor matching the
// model's declared input shape. Implementations are modality-specific.
type Preprocessor interface {
	// Preprocess reads the file at path and returns a rank-4, batch-1
	// float32 tensor with the model's declared input shape.
	Preprocess(path string) (*tensor.Dense, error)
	// InputShape returns the tensor shape every Preprocess call produces.
	InputShape() tensor.Shape
}

// tile fills a slice of length n by repeating src, matching numpy's
// np.resize semantics. A nil or empty src yields zeros.
func tile(src []float32, n int) []float32 {
	out := make([]float32, n)
	if len(src) == 0 {
		return out
	}
	for i := range out {
		out[i] = src[i%len(src)]
	}
	return out
}
