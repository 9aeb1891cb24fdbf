package pool

import "errors"

// Sentinel errors surfaced across pool API boundaries. Manager errors
// (connect/validate failures) are never surfaced this way; they go to
// the configured ErrorHandler instead (see errorhandler.go).
var (
	// ErrInvalidConfig is returned by New when Config fails validation.
	ErrInvalidConfig = errors.New("riverpool: invalid pool configuration")
	// ErrInitialization is returned by New when InitializationFailFast is
	// set and the pool does not reach its target population before
	// ConnectionTimeout elapses.
	ErrInitialization = errors.New("riverpool: unable to initialize connections")
	// ErrGetTimeout is returned by Get when no connection becomes
	// available before ConnectionTimeout elapses.
	ErrGetTimeout = errors.New("riverpool: timed out waiting for a connection")
	// ErrPoolClosed is returned by Get (and ignored by Release) once the
	// pool has been closed.
	ErrPoolClosed = errors.New("riverpool: connection pool is closed")
)
