package pool

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorHandler consumes errors reported by a ConnectionManager's Connect
// and IsValid calls. It is never called with a nil error, must tolerate
// concurrent calls, and must not block for long; it runs on the
// executor's worker goroutines and on checkout callers' goroutines.
type ErrorHandler interface {
	HandleError(err error)
}

// NoopErrorHandler discards every error. It is the zero-configuration
// default used when New is given a nil handler.
type NoopErrorHandler struct{}

// HandleError implements ErrorHandler.
func (NoopErrorHandler) HandleError(error) {}

// LoggingErrorHandler emits each error at error severity via zerolog. A
// nil Logger falls back to zerolog's global logger, the same default the
// rest of this module's ambient logging uses.
type LoggingErrorHandler struct {
	Logger *zerolog.Logger
}

// HandleError implements ErrorHandler.
func (h LoggingErrorHandler) HandleError(err error) {
	if h.Logger != nil {
		h.Logger.Error().Err(err).Msg("connection manager reported an error")
		return
	}
	log.Error().Err(err).Msg("connection manager reported an error")
}
