// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bridge connects to an orientation source over TCP, keeps the
// newest rotation it reports, and hands it out to a frame-rate poller.
//
// One session at a time: Start dials and launches the receive loop, Stop
// tears it down within a bounded time, Sample never blocks on I/O.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/relabs-tech/orientation_bridge/internal/metrics"
	"github.com/relabs-tech/orientation_bridge/internal/orientation"
)

// Options configures a Bridge. Zero fields take the DefaultOptions value.
type Options struct {
	// Threshold is the consecutive short read count tolerated before a reconnect.
	Threshold   int
	DialTimeout time.Duration
	Backoff     Backoff
	// StopGrace bounds how long Stop waits for the receive loop.
	StopGrace time.Duration
	// ReportLinkHealth makes Sample report the live connection state
	// instead of always reporting connected while a session runs.
	ReportLinkHealth bool

	Dialer Dialer
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Threshold:   DefaultThreshold,
		DialTimeout: 5 * time.Second,
		Backoff:     DefaultBackoff(),
		StopGrace:   time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Threshold < 1 {
		o.Threshold = def.Threshold
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = def.DialTimeout
	}
	if o.Backoff.Initial <= 0 {
		o.Backoff = def.Backoff
	}
	if o.StopGrace <= 0 {
		o.StopGrace = def.StopGrace
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Stats describes the bridge and its current session.
type Stats struct {
	Running bool
	Session string
	Link    ConnState
	Polls   uint64
	ReceiverStats
}

// Bridge owns at most one running session.
type Bridge struct {
	opts Options

	// lifecycle serializes Start and Stop. Sample never takes it.
	lifecycle sync.Mutex
	current   atomic.Pointer[session]
	polls     atomic.Uint64
}

type session struct {
	id     uuid.UUID
	log    *slog.Logger
	conns  *ConnManager
	latest *Latest
	recv   *Receiver
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle bridge.
func New(opts Options) *Bridge {
	return &Bridge{opts: opts.withDefaults()}
}

// Start connects to ep and launches the receive loop. ctx bounds the
// initial connect only; the session lives until Stop. A failed initial
// connect leaves the bridge idle and returns a *ConnectError.
func (b *Bridge) Start(ctx context.Context, ep Endpoint) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.current.Load() != nil {
		return ErrAlreadyRunning
	}

	id := uuid.New()
	log := b.opts.Logger.With("session", id.String(), "endpoint", ep.String())

	conns := NewConnManager(ep, b.opts.Dialer, b.opts.DialTimeout, log)
	if err := conns.Connect(ctx); err != nil {
		log.Error("bridge: initial connect failed", "error", err)
		return fmt.Errorf("bridge start: %w", err)
	}

	latest := NewLatest()
	recv := NewReceiver(conns, latest, b.opts.Threshold, b.opts.Backoff, b.opts.Clock, log)

	runCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     id,
		log:    log,
		conns:  conns,
		latest: latest,
		recv:   recv,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		recv.Run(runCtx)
	}()

	b.current.Store(s)
	log.Info("bridge: started", "threshold", b.opts.Threshold, "link_health", b.opts.ReportLinkHealth)
	return nil
}

// Stop ends the running session. It flags the loop, interrupts any blocked
// read, waits up to StopGrace for the loop to exit and then releases the
// transport. Stopping an idle bridge is a no-op.
func (b *Bridge) Stop() error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	s := b.current.Swap(nil)
	if s == nil {
		return nil
	}

	s.recv.Stop()
	s.cancel()
	s.conns.Interrupt()

	var err error
	timer := time.NewTimer(b.opts.StopGrace)
	defer timer.Stop()

	select {
	case <-s.done:
	case <-timer.C:
		err = ErrStopTimeout
		s.log.Error("bridge: receive loop still running after grace period", "grace", b.opts.StopGrace)
	}

	if cerr := s.conns.Close(); cerr != nil {
		s.log.Debug("bridge: close transport", "error", cerr)
	}

	st := s.recv.Stats()
	s.log.Info("bridge: stopped", "frames", st.Frames, "reconnects", st.ReconnectAttempts)
	return err
}

// Sample returns the newest rotation. Outside a session it returns identity
// with Valid and Connected false.
func (b *Bridge) Sample() orientation.Sample {
	b.polls.Add(1)
	metrics.Polls.Inc()

	s := b.current.Load()
	if s == nil {
		return orientation.Sample{Rotation: orientation.Identity()}
	}

	sample := orientation.Sample{
		Rotation:  s.latest.Read(),
		Valid:     true,
		Connected: true,
	}
	if b.opts.ReportLinkHealth {
		sample.Connected = s.conns.State() == Connected
	}
	return sample
}

// Running reports whether a session is active.
func (b *Bridge) Running() bool {
	return b.current.Load() != nil
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	st := Stats{Polls: b.polls.Load()}

	s := b.current.Load()
	if s == nil {
		return st
	}
	st.Running = true
	st.Session = s.id.String()
	st.Link = s.conns.State()
	st.ReceiverStats = s.recv.Stats()
	return st
}
