package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

var (
	runtimeInit    sync.Once
	runtimeInitErr error
)

// initRuntime initializes the shared onnxruntime environment once per
// process. ONNXRUNTIME_SHARED_LIBRARY_PATH overrides the library location
// when the default loader cannot find it.
func initRuntime() error {
	runtimeInit.Do(func() {
		if path := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); path != "" {
			ort.SetSharedLibraryPath(path)
		}
		runtimeInitErr = ort.InitializeEnvironment()
	})
	return runtimeInitErr
}

// ONNXEngine implements Engine on top of the onnxruntime library.
//
// The engine introspects the model's declared input and output tensors at
// load time and binds one reusable tensor pair to an AdvancedSession, so a
// Run call only copies data and invokes the session.
type ONNXEngine struct {
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	inputShape  tensor.Shape
	outputShape tensor.Shape
	modelPath   string
}

// NewONNXEngine loads a quantized ONNX model and prepares a session for
// batch-1 inference.
//
// Arguments:
// - modelPath: Path to the .onnx model file.
//
// Returns:
// - *ONNXEngine: The loaded engine.
// - error: An error if the model is missing or the session cannot be built.
func NewONNXEngine(modelPath string) (*ONNXEngine, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", modelPath, err)
	}

	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model %s: %w", modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no input or output tensors", modelPath)
	}

	inputShape := concreteShape(inputs[0].Dimensions)
	outputShape := concreteShape(outputs[0].Dimensions)

	inputTensor, err := ort.NewEmptyTensor[float32](ortShape(inputShape))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ortShape(outputShape))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}

	return &ONNXEngine{
		session:     session,
		input:       inputTensor,
		output:      outputTensor,
		inputShape:  inputShape,
		outputShape: outputShape,
		modelPath:   modelPath,
	}, nil
}

// InputShape returns the model's declared input tensor shape.
func (e *ONNXEngine) InputShape() tensor.Shape {
	return e.inputShape.Clone()
}

// OutputShape returns the model's declared output tensor shape.
func (e *ONNXEngine) OutputShape() tensor.Shape {
	return e.outputShape.Clone()
}

// Run executes one forward pass over the given input tensor.
func (e *ONNXEngine) Run(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	if e.session == nil {
		return nil, fmt.Errorf("model not loaded")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, ok := input.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("input tensor must hold float32 data, got %T", input.Data())
	}

	dst := e.input.GetData()
	if len(data) != len(dst) {
		return nil, fmt.Errorf("input tensor holds %d floats, model expects %d (shape %v)",
			len(data), len(dst), e.inputShape)
	}
	copy(dst, data)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	src := e.output.GetData()
	out := make([]float32, len(src))
	copy(out, src)

	return tensor.New(tensor.WithShape(e.outputShape...), tensor.WithBacking(out)), nil
}

// Close releases the session and its bound tensors.
func (e *ONNXEngine) Close() error {
	if e.input != nil {
		e.input.Destroy()
		e.input = nil
	}
	if e.output != nil {
		e.output.Destroy()
		e.output = nil
	}
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}

// concreteShape converts the declared ONNX dimensions to a tensor shape,
// treating dynamic axes (-1) as size 1 since the harness runs batch-1 only.
func concreteShape(dims ort.Shape) tensor.Shape {
	shape := make(tensor.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			shape[i] = 1
			continue
		}
		shape[i] = int(d)
	}
	return shape
}

func ortShape(shape tensor.Shape) ort.Shape {
	dims := make([]int64, len(shape))
	for i, d := range shape {
		dims[i] = int64(d)
	}
	return ort.NewShape(dims...)
}
