package ranker

import (
	"sort"

	mperrors "github.com/modelport/modelport/internal/errors"
	"github.com/modelport/modelport/internal/labels"
)

// Prediction pairs a class label with its score.
type Prediction struct {
	ClassIndex int     `json:"class_index"`
	Label      string  `json:"label"`
	Score      float32 `json:"score"`
}

// TopK ranks a score vector against a label table and returns the k highest
// scoring classes in descending order. Ties keep the lower class index
// first. The score vector length must match the table size.
func TopK(scores []float32, table *labels.Table, k int) ([]Prediction, error) {
	if len(scores) != table.Len() {
		return nil, mperrors.ErrClassCountMismatch
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(scores) {
		k = len(scores)
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	out := make([]Prediction, 0, k)
	for _, idx := range indices[:k] {
		label, err := table.Label(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, Prediction{
			ClassIndex: idx,
			Label:      label,
			Score:      scores[idx],
		})
	}
	return out, nil
}
