package serving

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"

	mperrors "github.com/modelport/modelport/internal/errors"
	"github.com/modelport/modelport/internal/preprocess"
)

const (
	inputName  = "input"
	outputName = "output"
)

// ONNXEngine runs a classification model through onnxruntime with pinned
// input/output tensors. Run is serialized because the session reuses those
// tensors across calls.
type ONNXEngine struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	classCount   int
}

// NewONNXEngine loads the model at modelPath expecting the fixed
// (1,3,224,224) image input and a (1,classCount) score output.
func NewONNXEngine(modelPath string, classCount int) (*ONNXEngine, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputShape := ort.NewShape(1, preprocess.Channels, preprocess.CropSize, preprocess.CropSize)
	outputShape := ort.NewShape(1, int64(classCount))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create onnx session for %s: %w", modelPath, err)
	}

	log.Info().Str("model_path", modelPath).Int("class_count", classCount).Msg("onnx session ready")
	return &ONNXEngine{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		classCount:   classCount,
	}, nil
}

func (e *ONNXEngine) Run(input preprocess.Tensor) ([]float32, error) {
	if err := checkInputShape(input); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputTensor.GetData(), input.Data)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	scores := make([]float32, e.classCount)
	copy(scores, e.outputTensor.GetData())
	return scores, nil
}

func (e *ONNXEngine) Close() {
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
	if e.session != nil {
		e.session.Destroy()
	}
	ort.DestroyEnvironment()
}

// checkInputShape enforces the (1,3,224,224) contract shared by every
// engine implementation.
func checkInputShape(input preprocess.Tensor) error {
	want := []int64{1, preprocess.Channels, preprocess.CropSize, preprocess.CropSize}
	if len(input.Shape) != len(want) {
		return fmt.Errorf("%w: got rank %d, want %d", mperrors.ErrShapeMismatch, len(input.Shape), len(want))
	}
	var elements int64 = 1
	for i, dim := range input.Shape {
		if dim != want[i] {
			return fmt.Errorf("%w: got %v, want %v", mperrors.ErrShapeMismatch, input.Shape, want)
		}
		elements *= dim
	}
	if int64(len(input.Data)) != elements {
		return fmt.Errorf("%w: %d values for shape %v", mperrors.ErrShapeMismatch, len(input.Data), input.Shape)
	}
	return nil
}
