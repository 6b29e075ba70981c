package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// unmatchedRoute keeps 404 scans from minting one metric series per URL.
const unmatchedRoute = "unmatched"

func route(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}

// RequestLogger logs one line per request. Successful requests are sampled
// since trace replay hits the receive route in tight loops; failures are
// always logged with the cluster they addressed.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	quiet := Sampled(logger, 10)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = quiet.Debug()
		}
		if name := c.Param("name"); name != "" {
			event = event.Str("cluster", name)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route(c)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	}
}

func RequestMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(service, c.Request.Method, route(c), c.Writer.Status(), time.Since(start))
	}
}
