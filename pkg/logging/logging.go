// Package logging configures the process-global zerolog logger for the
// demo CLI and adapts it into a riverpool/pkg/pool.ErrorHandler, so the
// same structured-logging setup that drives command output also receives
// the pool's connect/validate failure reports.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riverpool/riverpool/pkg/pool"
)

// Config controls the global logger's level and output format.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // human-readable console output instead of JSON
	TimeFormat string // defaults to time.RFC3339
}

// Setup installs cfg as the process-global zerolog logger. Subsequent
// calls to Get, and any ErrorHandler built with NewErrorHandler(nil),
// observe the new configuration.
func Setup(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	var w io.Writer = os.Stderr
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// Get returns the process-global logger.
func Get() *zerolog.Logger {
	return &log.Logger
}

// NewErrorHandler returns a pool.ErrorHandler that logs through logger, or
// through the process-global logger if logger is nil. Library callers
// that want per-pool logging should pass an explicit *zerolog.Logger
// instead of relying on global state.
func NewErrorHandler(logger *zerolog.Logger) pool.ErrorHandler {
	return &pool.LoggingErrorHandler{Logger: logger}
}
