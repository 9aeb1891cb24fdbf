package pool

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// Handle is a scoped wrapper over a checked-out connection. It exposes
// the underlying connection transparently via Conn and runs the Return
// protocol exactly once when Release is called, however that call is
// triggered, including from a deferred call during a panicking unwind.
//
// r2d2 gets this for free from Rust's destructors; Go has none, so a
// Handle that is dropped without an explicit Release leaks its connection
// until garbage collection runs the finalizer below, which also reports
// the leak through the pool's ErrorHandler. Callers should still always
// `defer handle.Release()`; the finalizer is a backstop, not a substitute.
type Handle[C Connection] struct {
	pool     *Pool[C]
	conn     C
	released atomic.Bool
}

func newHandle[C Connection](p *Pool[C], conn C) *Handle[C] {
	h := &Handle[C]{pool: p, conn: conn}
	runtime.SetFinalizer(h, finalizeHandle[C])
	return h
}

func finalizeHandle[C Connection](h *Handle[C]) {
	if h.released.CompareAndSwap(false, true) {
		h.pool.shared.errorHandler.HandleError(
			fmt.Errorf("riverpool: handle garbage-collected without Release; returning connection"))
		h.pool.shared.putBack(h.conn)
	}
}

// Conn returns the underlying connection for read and write use. The
// returned value must not be used after Release.
func (h *Handle[C]) Conn() C {
	return h.conn
}

// Release returns the connection to the pool (or destroys it, if broken
// or the pool has since closed). Idempotent: a released Handle is inert
// on every subsequent call.
func (h *Handle[C]) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(h, nil)
	h.pool.shared.putBack(h.conn)
}
