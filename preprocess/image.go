package preprocess

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	// Register decoders for the dataset extension allow-list.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// ChannelOrder defines the axis ordering of the model input tensor.
type ChannelOrder int

const (
	// ChannelOrderCHW is Channel-Height-Width ordering (common for ONNX).
	ChannelOrderCHW ChannelOrder = iota
	// ChannelOrderHWC is Height-Width-Channel ordering.
	ChannelOrderHWC
)

// ImagePreprocessor converts image files into RGB tensors scaled to [0, 1].
//
// The channel layout (NCHW vs NHWC) is derived from the model's declared
// input shape, so callers never configure it by hand.
type ImagePreprocessor struct {
	shape  tensor.Shape
	order  ChannelOrder
	width  int
	height int
}

// NewImagePreprocessor creates an image preprocessor for the given model
// input shape.
//
// Arguments:
// - shape: The model's declared input shape, [1, 3, H, W] or [1, H, W, 3].
//
// Returns:
// - *ImagePreprocessor: The configured preprocessor.
// - error: An error if the shape is not a batch-1, 3-channel rank-4 shape.
func NewImagePreprocessor(shape tensor.Shape) (*ImagePreprocessor, error) {
	if len(shape) != 4 {
		return nil, errors.Errorf("image input shape must be rank 4, got %v", shape)
	}
	if shape[0] != 1 {
		return nil, errors.Errorf("image input shape must have batch size 1, got %v", shape)
	}

	switch {
	case shape[1] == 3:
		return &ImagePreprocessor{
			shape:  shape.Clone(),
			order:  ChannelOrderCHW,
			height: shape[2],
			width:  shape[3],
		}, nil
	case shape[3] == 3:
		return &ImagePreprocessor{
			shape:  shape.Clone(),
			order:  ChannelOrderHWC,
			height: shape[1],
			width:  shape[2],
		}, nil
	default:
		return nil, errors.Errorf("image input shape must carry 3 channels, got %v", shape)
	}
}

// InputShape returns the tensor shape produced by Preprocess.
func (p *ImagePreprocessor) InputShape() tensor.Shape {
	return p.shape.Clone()
}

// Order returns the channel layout derived from the model input shape.
func (p *ImagePreprocessor) Order() ChannelOrder {
	return p.order
}

// Preprocess reads an image file and returns its normalized RGB tensor.
func (p *ImagePreprocessor) Preprocess(path string) (*tensor.Dense, error) {
	img, err := decodeImageFile(path)
	if err != nil {
		return nil, err
	}

	// Lanczos3 matches the high-quality resampling the models were
	// calibrated against.
	img = resize.Resize(uint(p.width), uint(p.height), img, resize.Lanczos3)

	data := make([]float32, p.shape.TotalSize())
	switch p.order {
	case ChannelOrderCHW:
		p.fillCHW(img, data)
	case ChannelOrderHWC:
		p.fillHWC(img, data)
	}

	return tensor.New(tensor.WithShape(p.shape...), tensor.WithBacking(data)), nil
}

func (p *ImagePreprocessor) fillCHW(img image.Image, data []float32) {
	plane := p.width * p.height
	red := data[0:plane]
	green := data[plane : plane*2]
	blue := data[plane*2 : plane*3]

	i := 0
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
}

func (p *ImagePreprocessor) fillHWC(img image.Image, data []float32) {
	i := 0
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			data[i] = float32(r>>8) / 255.0
			data[i+1] = float32(g>>8) / 255.0
			data[i+2] = float32(b>>8) / 255.0
			i += 3
		}
	}
}

// decodeImageFile decodes one image file, forcing RGB interpretation at the
// tensor-fill stage. WebP is decoded explicitly since it does not register
// with the stdlib image package.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image file %s", path)
	}
	defer f.Close()

	if strings.ToLower(filepath.Ext(path)) == ".webp" {
		img, err := webp.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode WebP image %s", path)
		}
		return img, nil
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", path)
	}
	return img, nil
}
