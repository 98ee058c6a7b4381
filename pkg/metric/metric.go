package metric

import (
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/pkg/config"
)

// It is safe to use one Client from multiple goroutines simultaneously.
var (
	client       statsd.ClientInterface = &statsd.NoOpClient{}
	samplingRate                        = 1.0
	once         sync.Once
)

func Init() {
	once.Do(func() {
		env := config.Instance()
		samplingRate = env.MetricsSamplingRate
		tags := []string{
			"env:" + env.AppEnv,
			"service:" + env.AppName,
		}
		c, err := statsd.New(env.StatsdAddress, statsd.WithTags(tags))
		if err != nil {
			// In local/dev environments the agent may not be running; keep the
			// no-op client instead of crashing the service.
			log.Error().Err(err).Msg("statsd client initialization failed, metrics will be unavailable")
			return
		}
		client = c
		log.Info().
			Str("address", env.StatsdAddress).
			Float64("sampling_rate", samplingRate).
			Msg("Metrics client initialized")
	})
}

func Incr(name string, tags []string) {
	if err := client.Incr(name, tags, samplingRate); err != nil {
		log.Debug().Err(err).Str("metric", name).Msg("failed to emit counter")
	}
}

func Timing(name string, value time.Duration, tags []string) {
	if err := client.Timing(name, value, tags, samplingRate); err != nil {
		log.Debug().Err(err).Str("metric", name).Msg("failed to emit timing")
	}
}

func Gauge(name string, value float64, tags []string) {
	if err := client.Gauge(name, value, tags, samplingRate); err != nil {
		log.Debug().Err(err).Str("metric", name).Msg("failed to emit gauge")
	}
}
