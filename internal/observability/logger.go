package observability

import (
	"time"

	"github.com/danmuck/dectctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const samplePeriod = time.Second

// InitLogger configures runtime logging once and returns the process logger
// tagged with app.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// Sampled wraps logger for paths that can fire once per received word: a
// burst of events per period passes, the rest are dropped.
func Sampled(logger zerolog.Logger, burst uint32) zerolog.Logger {
	return logger.Sample(&zerolog.BurstSampler{
		Burst:       burst,
		Period:      samplePeriod,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}
