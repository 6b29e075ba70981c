// Package testlog bootstraps logging for package tests.
package testlog

import (
	"testing"

	"github.com/danmuck/dectctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("test_start")
}

// Logger starts the test and returns a logger tagged with its name, for
// components that take a zerolog.Logger.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	Start(t)
	return log.Logger.With().Str("test", t.Name()).Logger()
}
