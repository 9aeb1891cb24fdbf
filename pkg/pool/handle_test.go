package pool

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseIsIdempotent(t *testing.T) {
	mgr := newFakeManager()
	p, err := New[*fakeConn](context.Background(), defaultConfig(), mgr, nil)
	require.NoError(t, err)
	defer p.Close()

	h, err := p.Get(context.Background())
	require.NoError(t, err)

	h.Release()
	assert.NotPanics(t, func() { h.Release() })

	// A single release must produce exactly one idle re-entry: draining
	// PoolSize Gets should succeed without ever exceeding the original
	// population.
	got := 0
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := p.Get(ctx)
		cancel()
		if err != nil {
			break
		}
		got++
	}
	assert.LessOrEqual(t, got, defaultConfig().PoolSize)
}

func TestHandleFinalizerReturnsConnection(t *testing.T) {
	mgr := newFakeManager()
	handler := &countingErrorHandler{}
	cfg := Config{PoolSize: 1, HelperThreads: 1, ConnectionTimeout: time.Second}
	p, err := New[*fakeConn](context.Background(), cfg, mgr, handler)
	require.NoError(t, err)
	defer p.Close()

	func() {
		h, err := p.Get(context.Background())
		require.NoError(t, err)
		_ = h // dropped without Release
	}()

	runtime.GC()
	runtime.GC()

	require.Eventually(t, func() bool {
		return p.Stats().Idle == 1 && handler.count.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
