package serving

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelport/modelport/internal/preprocess"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func tensorBody(t *testing.T) []byte {
	t.Helper()
	size := preprocess.Channels * preprocess.CropSize * preprocess.CropSize
	raw, err := json.Marshal(PredictRequest{
		Data:  make([]float32, size),
		Shape: []int64{1, preprocess.Channels, preprocess.CropSize, preprocess.CropSize},
	})
	require.NoError(t, err)
	return raw
}

func TestPredictRoute(t *testing.T) {
	router := NewRouter("resnet152", NewStubEngine(1000))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(tensorBody(t)))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "resnet152", resp.Model)
	assert.Len(t, resp.Scores, 1000)

	var sum float64
	for _, s := range resp.Scores {
		sum += float64(s)
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestPredictRouteIsDeterministic(t *testing.T) {
	router := NewRouter("resnet152", NewStubEngine(1000))
	body := tensorBody(t)

	run := func() []byte {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body))
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.Bytes()
	}
	assert.Equal(t, run(), run())
}

func TestPredictRejectsWrongShape(t *testing.T) {
	router := NewRouter("resnet152", NewStubEngine(1000))

	raw, err := json.Marshal(PredictRequest{
		Data:  make([]float32, 10),
		Shape: []int64{1, 10},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(raw))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthRoute(t *testing.T) {
	router := NewRouter("resnet152", NewStubEngine(1000))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/self", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
