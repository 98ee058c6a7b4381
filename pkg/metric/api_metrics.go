package metric

import (
	"strconv"
	"time"
)

const (
	APIRequestCount   = "api_request_count"
	APIRequestLatency = "api_request_latency"
	PredictCount      = "predict_request_count"
	PredictLatency    = "predict_request_latency"
)

func ObserveAPIRequest(path, method string, statusCode int, latency time.Duration) {
	tags := []string{
		"path:" + path,
		"method:" + method,
		"status_code:" + strconv.Itoa(statusCode),
	}
	Incr(APIRequestCount, tags)
	Timing(APIRequestLatency, latency, tags)
}

func ObservePredict(modelName string, statusCode int, latency time.Duration) {
	tags := []string{
		"model:" + modelName,
		"status_code:" + strconv.Itoa(statusCode),
	}
	Incr(PredictCount, tags)
	Timing(PredictLatency, latency, tags)
}
