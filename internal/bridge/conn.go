// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/relabs-tech/orientation_bridge/internal/metrics"
)

// ConnState is the Connection Manager's view of the transport.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ConnManager owns the single live transport of a bridge session.
//
// The mutex guards the conn pointer and state only; it is never held
// across a dial or a read.
type ConnManager struct {
	endpoint    Endpoint
	dialer      Dialer
	dialTimeout time.Duration
	log         *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	state  ConnState
	closed bool
}

// NewConnManager creates a manager for ep. Nothing is dialed until Connect.
// A positive dialTimeout bounds every connect attempt.
func NewConnManager(ep Endpoint, dialer Dialer, dialTimeout time.Duration, logger *slog.Logger) *ConnManager {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnManager{
		endpoint:    ep,
		dialer:      dialer,
		dialTimeout: dialTimeout,
		log:         logger,
	}
}

// Endpoint returns the address this manager connects to.
func (m *ConnManager) Endpoint() Endpoint { return m.endpoint }

// State reports the current connection state.
func (m *ConnManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens one stream connection to the endpoint, releasing any
// connection held before. Failures are returned as *ConnectError; after
// Interrupt or Close it returns net.ErrClosed without dialing.
func (m *ConnManager) Connect(ctx context.Context) error {
	if err := m.endpoint.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return net.ErrClosed
	}
	prev := m.conn
	m.conn = nil
	m.state = Connecting
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	metrics.LinkConnected.Set(0)

	if m.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.dialTimeout)
		defer cancel()
	}
	conn, err := m.dialer.DialContext(ctx, "tcp", m.endpoint.String())

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.state = Disconnected
		return classifyDialError(m.endpoint, err)
	}
	if m.closed {
		// stopped while dialing
		m.state = Disconnected
		_ = conn.Close()
		return net.ErrClosed
	}

	m.conn = conn
	m.state = Connected
	metrics.LinkConnected.Set(1)
	m.log.Info("bridge: connected", "endpoint", m.endpoint.String(), "local", conn.LocalAddr().String())
	return nil
}

// Disconnect releases the transport. Safe to call repeatedly.
func (m *ConnManager) Disconnect() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.state = Disconnected
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	metrics.LinkConnected.Set(0)
	return conn.Close()
}

// Reconnect drops the current connection and dials a new one.
func (m *ConnManager) Reconnect(ctx context.Context) error {
	if err := m.Disconnect(); err != nil {
		m.log.Debug("bridge: close before reconnect", "error", err)
	}
	return m.Connect(ctx)
}

// Read reads from the live connection. The connection is looked up under
// the lock and read outside it, so Interrupt can always get in.
func (m *ConnManager) Read(p []byte) (int, error) {
	m.mu.Lock()
	conn, closed := m.conn, m.closed
	m.mu.Unlock()

	if closed {
		return 0, net.ErrClosed
	}
	if conn == nil {
		return 0, ErrNotConnected
	}
	return conn.Read(p)
}

// Interrupt marks the manager closed and forces any blocked Read to return
// by setting an immediate read deadline. The transport stays allocated
// until Close or Disconnect.
func (m *ConnManager) Interrupt() {
	m.mu.Lock()
	m.closed = true
	conn := m.conn
	m.mu.Unlock()

	if conn != nil {
		_ = conn.SetReadDeadline(time.Now())
	}
}

// Close interrupts and then releases the transport.
func (m *ConnManager) Close() error {
	m.Interrupt()
	return m.Disconnect()
}
