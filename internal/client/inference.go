package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelport/modelport/internal/preprocess"
	"github.com/modelport/modelport/internal/serving"
)

// Inference talks to a single serving node.
type Inference struct {
	baseURL    string
	httpClient *http.Client
}

func NewInference(address string) *Inference {
	baseURL := address
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Inference{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Predict sends the preprocessed tensor and returns the raw class scores.
func (c *Inference) Predict(ctx context.Context, input preprocess.Tensor) ([]float32, error) {
	body, err := json.Marshal(serving.PredictRequest{Data: input.Data, Shape: input.Shape})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed serving.PredictResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return parsed.Scores, nil
}
