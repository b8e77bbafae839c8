// Package inference - Inference engine contract and the ONNX implementation.
package inference

import (
	"context"

	"gorgonia.org/tensor"
)

// Engine wraps a loaded model and executes synchronous forward passes.
//
// Implementations expose the model's declared tensor shapes so callers can
// build matching preprocessors, and run exactly one batch-1 inference per
// Run call. Engines are not safe for concurrent use; the benchmark loop is
// strictly sequential.
type Engine interface {
	// InputShape returns the model's declared input tensor shape.
	InputShape() tensor.Shape
	// OutputShape returns the model's declared output tensor shape.
	OutputShape() tensor.Shape
	// Run binds the input tensor, executes one forward pass, and returns
	// the output tensor.
	Run(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)
	// Close releases the model session and its tensors.
	Close() error
}

// Result captures one inference output together with its derived
// classification: the arg-max index and the maximum value as a confidence
// proxy.
type Result struct {
	Output     *tensor.Dense
	Label      int
	Confidence float32
}

// NewResult derives the predicted label and confidence from an output
// tensor. A nil or non-float32 output yields a zero Result.
func NewResult(output *tensor.Dense) Result {
	result := Result{Output: output}
	if output == nil {
		return result
	}

	data, ok := output.Data().([]float32)
	if !ok || len(data) == 0 {
		return result
	}

	result.Confidence = data[0]
	for i, v := range data {
		if v > result.Confidence {
			result.Confidence = v
			result.Label = i
		}
	}
	return result
}
