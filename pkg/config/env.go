package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Env struct {
	AppPort               int
	AppName               string
	AppLogLevel           string
	AppEnv                string
	APIAuthToken          string
	IdempotencyTTLSeconds int64

	EtcdEndpoints []string
	EtcdUsername  string
	EtcdPassword  string
	EtcdTimeout   time.Duration

	UseMockAdapters bool

	ObjectStoreProvider string
	ObjectStoreBucket   string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpoint         string
	GCPCredentialsJSON  string

	ServingImage    string
	ServingBasePort int

	StatsdAddress       string
	MetricsSamplingRate float64
}

var (
	initialized bool
	once        sync.Once
	instance    Env
	initError   error
)

func Load() (Env, error) {
	port := 8080
	if raw := strings.TrimSpace(os.Getenv("APP_PORT")); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 {
			return Env{}, fmt.Errorf("invalid APP_PORT: %q", raw)
		}
		port = p
	}

	timeout := 5 * time.Second
	if raw := strings.TrimSpace(os.Getenv("ETCD_TIMEOUT_SECONDS")); raw != "" {
		sec, err := strconv.Atoi(raw)
		if err != nil || sec <= 0 {
			return Env{}, fmt.Errorf("invalid ETCD_TIMEOUT_SECONDS: %q", raw)
		}
		timeout = time.Duration(sec) * time.Second
	}

	useMock := true
	if raw := strings.TrimSpace(os.Getenv("USE_MOCK_ADAPTERS")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Env{}, fmt.Errorf("invalid USE_MOCK_ADAPTERS: %q", raw)
		}
		useMock = v
	}

	endpoints := []string{"127.0.0.1:2379"}
	if raw := strings.TrimSpace(os.Getenv("ETCD_ENDPOINTS")); raw != "" {
		endpoints = parseEtcdEndpoints(raw)
	} else if raw := strings.TrimSpace(os.Getenv("ETCD_SERVER")); raw != "" {
		endpoints = parseEtcdEndpoints(raw)
	}

	apiAuthToken := strings.TrimSpace(os.Getenv("API_AUTH_TOKEN"))

	idempotencyTTLSeconds := int64(24 * 60 * 60)
	if raw := strings.TrimSpace(os.Getenv("IDEMPOTENCY_TTL_SECONDS")); raw != "" {
		ttl, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ttl <= 0 {
			return Env{}, fmt.Errorf("invalid IDEMPOTENCY_TTL_SECONDS: %q", raw)
		}
		idempotencyTTLSeconds = ttl
	}

	provider := strings.ToLower(strings.TrimSpace(os.Getenv("OBJECT_STORE_PROVIDER")))
	if provider == "" {
		provider = "memory"
	}
	switch provider {
	case "s3", "gcs", "memory":
	default:
		return Env{}, fmt.Errorf("invalid OBJECT_STORE_PROVIDER: %q", provider)
	}

	servingBasePort := 9000
	if raw := strings.TrimSpace(os.Getenv("SERVING_BASE_PORT")); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 {
			return Env{}, fmt.Errorf("invalid SERVING_BASE_PORT: %q", raw)
		}
		servingBasePort = p
	}

	samplingRate := 1.0
	if raw := strings.TrimSpace(os.Getenv("METRICS_SAMPLING_RATE")); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r < 0 || r > 1 {
			return Env{}, fmt.Errorf("invalid METRICS_SAMPLING_RATE: %q", raw)
		}
		samplingRate = r
	}

	statsdAddress := strings.TrimSpace(os.Getenv("STATSD_ADDRESS"))
	if statsdAddress == "" {
		statsdAddress = "localhost:8125"
	}

	servingImage := strings.TrimSpace(os.Getenv("SERVING_IMAGE"))
	if servingImage == "" {
		servingImage = "modelport/serving-node:latest"
	}

	return Env{
		AppPort:               port,
		AppName:               strings.TrimSpace(os.Getenv("APP_NAME")),
		AppLogLevel:           strings.TrimSpace(os.Getenv("APP_LOG_LEVEL")),
		AppEnv:                strings.TrimSpace(os.Getenv("APP_ENV")),
		APIAuthToken:          apiAuthToken,
		IdempotencyTTLSeconds: idempotencyTTLSeconds,
		EtcdEndpoints:         endpoints,
		EtcdUsername:          strings.TrimSpace(os.Getenv("ETCD_USERNAME")),
		EtcdPassword:          os.Getenv("ETCD_PASSWORD"),
		EtcdTimeout:           timeout,
		UseMockAdapters:       useMock,
		ObjectStoreProvider:   provider,
		ObjectStoreBucket:     strings.TrimSpace(os.Getenv("OBJECT_STORE_BUCKET")),
		AWSRegion:             strings.TrimSpace(os.Getenv("AWS_REGION")),
		AWSAccessKeyID:        strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID")),
		AWSSecretAccessKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSEndpoint:           strings.TrimSpace(os.Getenv("AWS_ENDPOINT")),
		GCPCredentialsJSON:    os.Getenv("GCP_CREDENTIALS_JSON"),
		ServingImage:          servingImage,
		ServingBasePort:       servingBasePort,
		StatsdAddress:         statsdAddress,
		MetricsSamplingRate:   samplingRate,
	}, nil
}

func parseEtcdEndpoints(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func InitEnv() {
	if initialized {
		log.Debug().Msg("Env already initialized!")
		return
	}
	once.Do(func() {
		viper.AutomaticEnv()
		instance, initError = Load()
		if initError != nil {
			log.Panic().Err(initError).Msg("failed to load env")
		}
		initialized = true
		log.Info().Msg("Env initialized!")
	})
}

func Instance() Env {
	InitEnv()
	if initError != nil {
		panic(initError)
	}
	return instance
}
