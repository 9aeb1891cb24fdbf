// Package pool implements a generic, concurrent connection pool.
//
// It amortizes the cost of establishing expensive stateful connections by
// keeping a bounded set of already-open connections live, handing them
// out to callers via Get, and recycling them when the returned Handle is
// released. The pool is parametric over a pluggable ConnectionManager
// that knows how to open, validate, and fast-diagnose connections for one
// specific backend (see riverpool/pkg/managers for concrete managers); the
// pool itself never interprets a connection's contents.
//
// The design is a direct Go translation of sfackler/r2d2: one mutex plus
// one condition variable guards the idle queue and the live-connection
// count together, a small scheduled executor (riverpool/pkg/executor)
// drives asynchronous connection opens with indefinite retry, and a
// Handle guarantees its connection returns to the pool exactly once.
package pool
