package serving

import (
	"math"

	"github.com/modelport/modelport/internal/preprocess"
)

// InferenceEngine scores a preprocessed input tensor. Implementations must
// be safe for concurrent use or serialize internally.
type InferenceEngine interface {
	Run(input preprocess.Tensor) ([]float32, error)
	Close()
}

// StubEngine is a deterministic engine for local runs and tests. It derives
// every class score from the input data alone, so the same tensor always
// produces the same ranking.
type StubEngine struct {
	classCount int
}

func NewStubEngine(classCount int) *StubEngine {
	return &StubEngine{classCount: classCount}
}

func (e *StubEngine) Run(input preprocess.Tensor) ([]float32, error) {
	if err := checkInputShape(input); err != nil {
		return nil, err
	}

	var sum float64
	for _, v := range input.Data {
		sum += float64(v)
	}

	// A softmax over per-class pseudo-logits seeded by the input sum.
	logits := make([]float64, e.classCount)
	var maxLogit float64 = math.Inf(-1)
	for i := range logits {
		logits[i] = math.Sin(sum + float64(i))
		if logits[i] > maxLogit {
			maxLogit = logits[i]
		}
	}
	var denom float64
	scores := make([]float32, e.classCount)
	for i := range logits {
		logits[i] = math.Exp(logits[i] - maxLogit)
		denom += logits[i]
	}
	for i := range logits {
		scores[i] = float32(logits[i] / denom)
	}
	return scores, nil
}

func (e *StubEngine) Close() {}
