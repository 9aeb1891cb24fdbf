package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riverpool/riverpool/pkg/executor"
)

// replenishBackoff is the fixed delay between retries of a failed
// connection open. It is a constant, not a Config field, on the theory
// that the failure is a transient peer condition: exponential backoff
// would risk delaying recovery past ConnectionTimeout, making the pool
// look permanently empty.
const replenishBackoff = 1 * time.Second

// sharedPool is the medium through which Pool, every Handle, and every
// pending replenishment task communicate. It holds Config, the manager,
// the error handler, and the executor, plus the mutex-guarded (idle,
// numConns) pair and its condition variable. It has no exported surface;
// Pool and Handle are the API.
type sharedPool[C Connection] struct {
	config       Config
	manager      ConnectionManager[C]
	errorHandler ErrorHandler
	executor     *executor.Executor

	mu       sync.Mutex
	cond     *sync.Cond
	idle     []C
	numConns int
	closed   bool
}

// Pool is a generic connection pool over connections of type C.
type Pool[C Connection] struct {
	shared    *sharedPool[C]
	closeOnce sync.Once
}

// Stats is a point-in-time snapshot of pool occupancy.
type Stats struct {
	Idle     int
	NumConns int
	PoolSize int
}

// New constructs a pool, submits PoolSize immediate replenishment tasks
// on a HelperThreads-worker executor, and, if
// Config.InitializationFailFast is set, blocks until the population
// reaches PoolSize or ConnectionTimeout elapses, returning
// ErrInitialization in the latter case. Connections opened before a
// fail-fast timeout are discarded along with the rest of the pool: New
// rejects the pool even if some connections opened successfully. New does
// not wait for opens still in flight at the deadline; each is destroyed
// when it completes.
func New[C Connection](ctx context.Context, cfg Config, manager ConnectionManager[C], errorHandler ErrorHandler) (*Pool[C], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if manager == nil {
		return nil, fmt.Errorf("%w: ConnectionManager must not be nil", ErrInvalidConfig)
	}
	if errorHandler == nil {
		errorHandler = NoopErrorHandler{}
	}

	sp := &sharedPool[C]{
		config:       cfg,
		manager:      manager,
		errorHandler: errorHandler,
		executor:     executor.New(cfg.HelperThreads),
	}
	sp.cond = sync.NewCond(&sp.mu)

	for i := 0; i < cfg.PoolSize; i++ {
		sp.addConnection(0)
	}

	p := &Pool[C]{shared: sp}

	if cfg.InitializationFailFast {
		deadline := time.Now().Add(cfg.ConnectionTimeout)

		sp.mu.Lock()
		for sp.numConns < cfg.PoolSize {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				sp.mu.Unlock()
				// Close blocks on in-flight opens; run it in the background
				// so New returns at the deadline. Each late open sees the
				// closed pool and destroys its connection.
				go p.Close()
				return nil, ErrInitialization
			}
			waitWithDeadline(sp.cond, deadline)
		}
		sp.mu.Unlock()
	}

	return p, nil
}

// Get retrieves a Handle from the pool, waiting up to
// Config.ConnectionTimeout (using a monotonic clock, recomputed on every
// wait cycle so spurious wakeups cannot extend the deadline) for a
// connection to become available. It also honors ctx cancellation as a
// Go-idiomatic supplement to the configured timeout.
func (p *Pool[C]) Get(ctx context.Context) (*Handle[C], error) {
	sp := p.shared
	end := time.Now().Add(sp.config.ConnectionTimeout)

	// Bridge ctx cancellation into the condition variable: cond.Wait has
	// no native way to observe a context, so a watcher goroutine
	// broadcasts on cancellation. It exits via cancelWatch as soon as Get
	// returns by any path.
	var cancelWatch chan struct{}
	if d := ctx.Done(); d != nil {
		cancelWatch = make(chan struct{})
		go func() {
			select {
			case <-d:
				sp.mu.Lock()
				sp.cond.Broadcast()
				sp.mu.Unlock()
			case <-cancelWatch:
			}
		}()
		defer close(cancelWatch)
	}

	sp.mu.Lock()
	for {
		if sp.closed {
			sp.mu.Unlock()
			return nil, ErrPoolClosed
		}

		if len(sp.idle) > 0 {
			conn := sp.idle[0]
			sp.idle = sp.idle[1:]
			sp.mu.Unlock()

			if sp.config.TestOnCheckOut {
				if err := sp.manager.IsValid(ctx, conn); err != nil {
					sp.errorHandler.HandleError(err)
					sp.destroy(conn)

					sp.mu.Lock()
					sp.numConns--
					sp.mu.Unlock()

					sp.addConnection(0)

					sp.mu.Lock()
					continue
				}
			}

			return newHandle(p, conn), nil
		}

		if err := ctx.Err(); err != nil {
			sp.mu.Unlock()
			return nil, err
		}

		remaining := time.Until(end)
		if remaining <= 0 {
			sp.mu.Unlock()
			return nil, ErrGetTimeout
		}

		waitWithDeadline(sp.cond, end)
	}
}

// Close cancels all pending scheduled replenishment tasks, waits for any
// in-flight one to finish, and destroys every connection the pool still
// holds (idle, or opened by an in-flight task that raced with Close).
// Handles already checked out are unaffected by Close; their Release
// still runs, discovers the pool closed, and destroys their connection
// rather than returning it to the idle queue. Close is idempotent.
func (p *Pool[C]) Close() error {
	sp := p.shared
	p.closeOnce.Do(func() {
		sp.mu.Lock()
		sp.closed = true
		idle := sp.idle
		sp.idle = nil
		sp.cond.Broadcast()
		sp.mu.Unlock()

		for _, conn := range idle {
			sp.destroy(conn)
		}

		sp.executor.Clear()
		sp.executor.Close()
	})
	return nil
}

// Stats returns a snapshot of the pool's current occupancy.
func (p *Pool[C]) Stats() Stats {
	sp := p.shared
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return Stats{Idle: len(sp.idle), NumConns: sp.numConns, PoolSize: sp.config.PoolSize}
}

// String renders a short debug summary, mirroring r2d2's Pool Debug impl.
func (p *Pool[C]) String() string {
	s := p.Stats()
	return fmt.Sprintf("Pool{idle: %d, num_conns: %d, pool_size: %d}", s.Idle, s.NumConns, s.PoolSize)
}

// addConnection schedules an asynchronous connect attempt after delay. On
// success the connection enters the idle queue and numConns is
// incremented; on failure the error goes to the ErrorHandler and the
// attempt reschedules itself after replenishBackoff, indefinitely; the
// pool never gives up opening connections.
func (sp *sharedPool[C]) addConnection(delay time.Duration) {
	sp.executor.RunAfter(delay, func() {
		conn, err := sp.manager.Connect(context.Background())
		if err != nil {
			sp.errorHandler.HandleError(err)
			sp.addConnection(replenishBackoff)
			return
		}

		sp.mu.Lock()
		if sp.closed {
			sp.mu.Unlock()
			sp.destroy(conn)
			return
		}
		sp.idle = append(sp.idle, conn)
		sp.numConns++
		sp.cond.Broadcast()
		sp.mu.Unlock()
	})
}

// putBack implements the Return protocol: HasBroken is checked before
// the lock is acquired, since it is contracted to be fast and
// non-blocking. A broken connection (or a pool already closed) is
// destroyed and numConns decremented. This path deliberately does not
// itself schedule a replenishment; only a checkout-time validation
// failure does that. See DESIGN.md for the rationale.
func (sp *sharedPool[C]) putBack(conn C) {
	broken := sp.manager.HasBroken(conn)

	sp.mu.Lock()
	if broken || sp.closed {
		sp.numConns--
		sp.mu.Unlock()
		sp.destroy(conn)
		return
	}

	sp.idle = append(sp.idle, conn)
	sp.cond.Signal()
	sp.mu.Unlock()
}

// destroy closes conn and reports any close error; it never touches
// numConns or idle, callers own that bookkeeping.
func (sp *sharedPool[C]) destroy(conn C) {
	if err := conn.Close(); err != nil {
		sp.errorHandler.HandleError(err)
	}
}

// waitWithDeadline waits on cond (caller holds its lock) until either
// broadcast/signal or deadline, whichever comes first. Callers must
// re-check their own predicate against time.Now() afterward; this
// never claims to know *why* it returned.
func waitWithDeadline(cond *sync.Cond, deadline time.Time) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return
	}
	timer := time.AfterFunc(remaining, cond.Broadcast)
	defer timer.Stop()
	cond.Wait()
}
