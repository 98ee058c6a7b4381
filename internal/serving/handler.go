package serving

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	mperrors "github.com/modelport/modelport/internal/errors"
	"github.com/modelport/modelport/internal/preprocess"
	"github.com/modelport/modelport/pkg/metric"
)

type PredictRequest struct {
	Data  []float32 `json:"data" binding:"required"`
	Shape []int64   `json:"shape" binding:"required"`
}

type PredictResponse struct {
	Model  string    `json:"model"`
	Scores []float32 `json:"scores"`
}

// NewRouter builds the serving node's gin router: a health probe and the
// predict route backed by the given engine.
func NewRouter(modelName string, engine InferenceEngine) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health/self", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "model": modelName})
	})

	router.POST("/predict", func(c *gin.Context) {
		start := time.Now()

		var req PredictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metric.ObservePredict(modelName, http.StatusBadRequest, time.Since(start))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		scores, err := engine.Run(preprocess.Tensor{Data: req.Data, Shape: req.Shape})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, mperrors.ErrShapeMismatch) {
				status = http.StatusBadRequest
			}
			metric.ObservePredict(modelName, status, time.Since(start))
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		metric.ObservePredict(modelName, http.StatusOK, time.Since(start))
		c.JSON(http.StatusOK, PredictResponse{Model: modelName, Scores: scores})
	})

	return router
}
