package preprocess

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"

	mperrors "github.com/modelport/modelport/internal/errors"
)

// ImageNet preprocessing constants for 224x224 classification models.
const (
	ResizeShortestSide = 256
	CropSize           = 224
	Channels           = 3
)

var (
	imagenetMean = [Channels]float32{0.485, 0.456, 0.406}
	imagenetStd  = [Channels]float32{0.229, 0.224, 0.225}
)

// Tensor is a dense float32 array in NCHW layout.
type Tensor struct {
	Data  []float32 `json:"data"`
	Shape []int64   `json:"shape"`
}

// ImageToTensor runs the fixed transform expected by ImageNet-trained
// classifiers: resize the shortest side to 256 preserving aspect ratio,
// center-crop 224x224, scale to [0,1], normalize per channel and prepend a
// batch dimension. Output shape is always (1,3,224,224).
func ImageToTensor(img image.Image) (Tensor, error) {
	if isGrayscale(img) {
		return Tensor{}, mperrors.ErrUnsupportedImage
	}

	resized := resizeShortestSide(img, ResizeShortestSide)
	bounds := resized.Bounds()
	if bounds.Dx() < CropSize || bounds.Dy() < CropSize {
		return Tensor{}, mperrors.ErrImageTooSmall
	}

	x0 := bounds.Min.X + (bounds.Dx()-CropSize)/2
	y0 := bounds.Min.Y + (bounds.Dy()-CropSize)/2

	data := make([]float32, Channels*CropSize*CropSize)
	plane := CropSize * CropSize
	for y := 0; y < CropSize; y++ {
		for x := 0; x < CropSize; x++ {
			r, g, b, _ := resized.At(x0+x, y0+y).RGBA()
			idx := y*CropSize + x
			data[idx] = (float32(r)/65535.0 - imagenetMean[0]) / imagenetStd[0]
			data[plane+idx] = (float32(g)/65535.0 - imagenetMean[1]) / imagenetStd[1]
			data[2*plane+idx] = (float32(b)/65535.0 - imagenetMean[2]) / imagenetStd[2]
		}
	}

	return Tensor{
		Data:  data,
		Shape: []int64{1, Channels, CropSize, CropSize},
	}, nil
}

// Denormalize undoes the per-channel normalization, returning values in
// [0,1]. Used to verify the transform is invertible within float precision.
func Denormalize(t Tensor) []float32 {
	plane := CropSize * CropSize
	out := make([]float32, len(t.Data))
	for c := 0; c < Channels; c++ {
		for i := 0; i < plane; i++ {
			out[c*plane+i] = t.Data[c*plane+i]*imagenetStd[c] + imagenetMean[c]
		}
	}
	return out
}

// Mean and Std expose the normalization constants for callers that need to
// reconstruct pixel space (tests, debugging endpoints).
func Mean() [Channels]float32 { return imagenetMean }
func Std() [Channels]float32  { return imagenetStd }

func resizeShortestSide(img image.Image, target int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return img
	}
	// resize.Resize keeps aspect ratio when one dimension is 0.
	if w < h {
		return resize.Resize(uint(target), 0, img, resize.Bilinear)
	}
	return resize.Resize(0, uint(target), img, resize.Bilinear)
}

func isGrayscale(img image.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return true
	}
	if _, ok := img.(*image.Paletted); ok {
		return palettedIsGray(img.(*image.Paletted))
	}
	return false
}

func palettedIsGray(img *image.Paletted) bool {
	for _, c := range img.Palette {
		r, g, b, _ := c.RGBA()
		if r != g || g != b {
			return false
		}
	}
	return true
}
