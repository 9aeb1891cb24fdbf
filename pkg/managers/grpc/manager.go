// Package grpc provides a riverpool ConnectionManager over
// *grpc.ClientConn, configuring keepalive enforcement and transport
// credentials on the client side before handing the connection to the
// pool.
package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Config describes how to dial the target and how long IsValid may wait
// for the connection to report itself ready.
type Config struct {
	Target               string
	TransportCredentials credentials.TransportCredentials // nil uses insecure.NewCredentials()
	KeepaliveTime        time.Duration
	KeepaliveTimeout     time.Duration
	ReadyTimeout         time.Duration
}

// Conn wraps a dialed *grpc.ClientConn.
type Conn struct {
	*grpc.ClientConn
}

// Manager implements pool.ConnectionManager[*Conn].
type Manager struct {
	cfg Config
}

// New returns a Manager dialing cfg.Target on every Connect.
func New(cfg Config) *Manager {
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = 30 * time.Second
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = 10 * time.Second
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 5 * time.Second
	}
	if cfg.TransportCredentials == nil {
		cfg.TransportCredentials = insecure.NewCredentials()
	}
	return &Manager{cfg: cfg}
}

// Connect implements pool.ConnectionManager.
func (m *Manager) Connect(ctx context.Context) (*Conn, error) {
	cc, err := grpc.NewClient(
		m.cfg.Target,
		grpc.WithTransportCredentials(m.cfg.TransportCredentials),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                m.cfg.KeepaliveTime,
			Timeout:             m.cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("managers/grpc: dial %s: %w", m.cfg.Target, err)
	}

	cc.Connect()

	readyCtx, cancel := context.WithTimeout(ctx, m.cfg.ReadyTimeout)
	defer cancel()
	for {
		state := cc.GetState()
		if state == connectivity.Ready {
			break
		}
		if !cc.WaitForStateChange(readyCtx, state) {
			_ = cc.Close()
			return nil, fmt.Errorf("managers/grpc: %s never became ready: %w", m.cfg.Target, readyCtx.Err())
		}
	}

	return &Conn{ClientConn: cc}, nil
}

// IsValid implements pool.ConnectionManager: it waits (briefly) for the
// connection to leave a transient-failure state, giving gRPC's own
// reconnect logic a chance before the pool gives up on the connection.
func (m *Manager) IsValid(ctx context.Context, conn *Conn) error {
	state := conn.GetState()
	if state == connectivity.Ready || state == connectivity.Idle {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.ReadyTimeout)
	defer cancel()
	if !conn.WaitForStateChange(waitCtx, state) {
		return fmt.Errorf("managers/grpc: validate: still %s after %s", state, m.cfg.ReadyTimeout)
	}
	if s := conn.GetState(); s == connectivity.TransientFailure || s == connectivity.Shutdown {
		return fmt.Errorf("managers/grpc: validate: connection is %s", s)
	}
	return nil
}

// HasBroken implements pool.ConnectionManager. GetState is a
// non-blocking read of cached connectivity state, satisfying the fast,
// non-blocking contract.
func (m *Manager) HasBroken(conn *Conn) bool {
	switch conn.GetState() {
	case connectivity.TransientFailure, connectivity.Shutdown:
		return true
	default:
		return false
	}
}
