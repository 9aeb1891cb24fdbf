package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (*net.TCPListener, string, chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	accepted := make(chan net.Conn, 8)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- c
			go func() {
				buf := make([]byte, 1024)
				for {
					if _, err := c.Read(buf); err != nil {
						return
					}
				}
			}()
		}
	}()
	return ln.(*net.TCPListener), ln.Addr().String(), accepted
}

func TestConnectAndValidate(t *testing.T) {
	ln, addr, _ := listen(t)
	defer ln.Close()

	m := New(Config{Network: "tcp", Address: addr, ProbeTimeout: 5 * time.Millisecond})

	conn, err := m.Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, m.IsValid(context.Background(), conn))
	assert.False(t, m.HasBroken(conn))
}

func TestHasBrokenAfterPeerCloses(t *testing.T) {
	ln, addr, accepted := listen(t)
	defer ln.Close()

	m := New(Config{Network: "tcp", Address: addr, ProbeTimeout: 5 * time.Millisecond})
	conn, err := m.Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	server := <-accepted
	require.NoError(t, server.Close()) // simulate the peer disconnecting

	require.Eventually(t, func() bool {
		return m.HasBroken(conn)
	}, time.Second, 10*time.Millisecond)
}
