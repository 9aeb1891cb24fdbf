// Package sql provides a riverpool ConnectionManager over *gorm.DB
// connections, dialing Postgres or SQLite from a single driver string.
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config describes how to dial the database backing each pooled
// connection. Driver selects the dialector: "sqlite" or "postgres".
type Config struct {
	Driver   string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

func (c Config) dialector() (gorm.Dialector, error) {
	switch strings.ToLower(c.Driver) {
	case "sqlite":
		return sqlite.Open(c.Database + "?_time_format=sqlite"), nil
	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
		)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("managers/sql: unsupported driver %q (supported: sqlite, postgres)", c.Driver)
	}
}

// Conn wraps a single *gorm.DB connection managed by the pool. has_broken
// cannot itself probe the network without blocking, so it reports
// whatever the last observed query error set via MarkBroken: the
// idiomatic Go substitute for a synchronous "is the socket still there"
// check.
type Conn struct {
	gormDB *gorm.DB
	sqlDB  *sql.DB
	broken atomic.Bool
}

// DB returns the underlying *gorm.DB for queries.
func (c *Conn) DB() *gorm.DB { return c.gormDB }

// MarkBroken flags the connection as unusable; the next return to the
// pool will discard it instead of recycling it. Call this when a caller
// observes a fatal error (e.g. driver.ErrBadConn) using DB().
func (c *Conn) MarkBroken() { c.broken.Store(true) }

// Close implements pool.Connection.
func (c *Conn) Close() error {
	return c.sqlDB.Close()
}

// Manager implements pool.ConnectionManager[*Conn].
type Manager struct {
	cfg Config
}

// New returns a Manager dialing cfg on every Connect call.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Connect implements pool.ConnectionManager.
func (m *Manager) Connect(ctx context.Context) (*Conn, error) {
	dialector, err := m.cfg.dialector()
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("managers/sql: connect: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("managers/sql: unwrap sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("managers/sql: ping: %w", err)
	}

	return &Conn{gormDB: gdb, sqlDB: sqlDB}, nil
}

// IsValid implements pool.ConnectionManager. It runs a real round trip, so
// it is only ever called from the checkout path, never from HasBroken.
func (m *Manager) IsValid(ctx context.Context, conn *Conn) error {
	if err := conn.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("managers/sql: validate: %w", err)
	}
	return nil
}

// HasBroken implements pool.ConnectionManager. It must not block, so it
// reports the connection's own broken flag rather than pinging.
func (m *Manager) HasBroken(conn *Conn) bool {
	return conn.broken.Load()
}
