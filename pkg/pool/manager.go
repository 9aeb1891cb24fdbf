package pool

import "context"

// Connection is the minimal capability every pooled value must provide.
// Go has no destructors, so unlike the connections r2d2 pools (destroyed
// implicitly when dropped), a riverpool connection must know how to close
// itself when the pool decides to discard it: on a broken return, a
// failed validation, or pool teardown.
type Connection interface {
	Close() error
}

// ConnectionManager knows how to open, validate, and fast-diagnose
// connections for one specific backend. The pool itself never interprets
// C; it only moves values of this type between its idle queue and
// checked-out Handles.
//
// Implementations must be safe for concurrent use: Connect and IsValid
// may be called concurrently from multiple executor workers and checkout
// callers, and HasBroken is called from every Handle release.
type ConnectionManager[C Connection] interface {
	// Connect attempts to create a new connection. May block arbitrarily
	// long; called only from scheduled-executor workers, never while
	// holding the pool's internal lock.
	Connect(ctx context.Context) (C, error)

	// IsValid determines whether conn is still usable, e.g. by running a
	// cheap round trip against the backend. May block. Called from the
	// checkout path only when Config.TestOnCheckOut is set.
	IsValid(ctx context.Context, conn C) error

	// HasBroken quickly determines whether conn is no longer usable. It
	// must not block; it runs synchronously on every Handle release,
	// before the pool's lock is acquired. Implementations with no fast
	// health check should simply return false.
	HasBroken(conn C) bool
}
