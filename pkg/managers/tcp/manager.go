// Package tcp provides a riverpool ConnectionManager over net.Conn. Its
// health check is a short read-deadline probe that distinguishes a live
// idle socket from a dead one. It assumes pooled connections sit idle
// between checkouts; if the peer ever does have data pending, that byte
// is consumed by the probe.
package tcp

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Dialer opens a new connection to the backend. Most callers pass
// net.Dialer.DialContext or a value wrapping it with TLS.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// Config describes the backend address and dial behavior.
type Config struct {
	Network string // "tcp", "tcp4", "tcp6", "unix"
	Address string
	Dial    Dialer // defaults to (&net.Dialer{}).DialContext
	// ProbeTimeout bounds the read-deadline probe IsValid uses to detect
	// a dead socket without blocking indefinitely.
	ProbeTimeout time.Duration
}

func (c Config) dial(ctx context.Context, network, address string) (net.Conn, error) {
	if c.Dial != nil {
		return c.Dial(ctx, network, address)
	}
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

// Conn wraps a dialed net.Conn with the bookkeeping Manager needs.
type Conn struct {
	net.Conn
	cfg Config
}

// Manager implements pool.ConnectionManager[*Conn].
type Manager struct {
	cfg Config
}

// New returns a Manager dialing cfg.Network/cfg.Address on every Connect.
func New(cfg Config) *Manager {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = time.Millisecond
	}
	return &Manager{cfg: cfg}
}

// Connect implements pool.ConnectionManager.
func (m *Manager) Connect(ctx context.Context) (*Conn, error) {
	c, err := m.cfg.dial(ctx, m.cfg.Network, m.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("managers/tcp: dial %s: %w", m.cfg.Address, err)
	}
	return &Conn{Conn: c, cfg: m.cfg}, nil
}

// IsValid implements pool.ConnectionManager by attempting a short read: a
// timeout means the socket is alive with nothing to read (the expected
// state for an idle pooled connection); any other error means the peer
// has gone away. A successful read consumes the byte, which is why this
// is only safe to call on a connection the pool believes is idle.
func (m *Manager) IsValid(ctx context.Context, conn *Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(conn.cfg.ProbeTimeout)); err != nil {
		return fmt.Errorf("managers/tcp: set probe deadline: %w", err)
	}
	defer conn.SetReadDeadline(time.Time{})

	one := make([]byte, 1)
	_, err := conn.Read(one)
	if err == nil {
		return nil
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return nil
	}
	return fmt.Errorf("managers/tcp: validate: %w", err)
}

// HasBroken implements pool.ConnectionManager with the same probe as
// IsValid; a read bounded by ProbeTimeout (1ms by default) is fast enough
// to run synchronously on every Handle release, which is the contract here.
func (m *Manager) HasBroken(conn *Conn) bool {
	return m.IsValid(context.Background(), conn) != nil
}
