// Package server exposes the running clusters over HTTP: health, metrics,
// per cluster status and a word injection endpoint for traces.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/dectctl/internal/cluster"
	"github.com/danmuck/dectctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	requestTimeout  = 5 * time.Second
	shutdownTimeout = 5 * time.Second

	// Injected words per second accepted by the receive endpoint.
	receiveRate  = 200
	receiveBurst = 400
)

type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	runtime *cluster.Runtime
	router  *gin.Engine
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New builds the status API. corsOrigins lists the dashboards allowed to
// call it from a browser.
func New(name, addr string, corsOrigins []string, rt *cluster.Runtime, logger zerolog.Logger) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:     name,
		Addr:     addr,
		Appeared: time.Now(),
		runtime:  rt,
		router:   r,
		limiter:  rate.NewLimiter(rate.Limit(receiveRate), receiveBurst),
		log:      logger.With().Str("component", "server").Logger(),
	}
	s.RegisterRoutes()
	return s
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Serve listens on Addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: requestTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.Addr).Msg("status_api_listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
