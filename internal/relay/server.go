// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package relay is the sensor side of the link: it pulls rotations from a
// Source and streams them as wire frames to every connected TCP consumer.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/relabs-tech/orientation_bridge/internal/metrics"
	"github.com/relabs-tech/orientation_bridge/internal/orientation"
	"github.com/relabs-tech/orientation_bridge/internal/wire"
)

const writeTimeout = time.Second

// Option configures a Server.
type Option func(*Server)

// WithInterval paces the source. Zero lets the source set the pace,
// which is what a blocking device reader wants.
func WithInterval(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.interval = d
		}
	}
}

// WithClientBuffer sets how many frames a consumer may fall behind before
// frames are dropped for it.
func WithClientBuffer(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.clientBuf = size
		}
	}
}

// WithLogger sets the logger. Nil keeps slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

type client struct {
	conn   net.Conn
	frames chan wire.Frame
}

// Server fans frames out to consumers. A slow consumer loses frames; it
// never stalls the source or the other consumers.
type Server struct {
	src       orientation.Source
	interval  time.Duration
	clientBuf int
	log       *slog.Logger

	broadcast  chan wire.Frame
	register   chan *client
	unregister chan *client
	clients    map[*client]struct{}
}

// NewServer returns a Server that streams frames pulled from src.
func NewServer(src orientation.Source, opts ...Option) *Server {
	s := &Server{
		src:        src,
		interval:   10 * time.Millisecond,
		clientBuf:  32,
		log:        slog.Default(),
		broadcast:  make(chan wire.Frame),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts consumers on ln until ctx is done or the source fails.
// ln is closed on return. A source error is returned; a cancelled ctx is not.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(ctx)
	}()

	// The producer is not waited for: a device read may block until the
	// caller closes the device after Serve returns.
	srcErr := make(chan error, 1)
	go func() {
		if err := s.produce(ctx); err != nil {
			srcErr <- err
			cancel()
		}
	}()

	s.log.Info("relay: listening", "addr", ln.Addr().String(), "interval", s.interval)

	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				acceptErr = fmt.Errorf("relay accept: %w", err)
			}
			cancel()
			break
		}

		c := &client{conn: conn, frames: make(chan wire.Frame, s.clientBuf)}
		select {
		case s.register <- c:
		case <-ctx.Done():
			_ = conn.Close()
			continue
		}
		s.log.Info("relay: consumer connected", "remote", conn.RemoteAddr().String())

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.writeLoop(ctx, c)
		}()
	}

	wg.Wait()
	s.log.Info("relay: stopped")

	select {
	case err := <-srcErr:
		return err
	default:
		return acceptErr
	}
}

// run owns the client set.
func (s *Server) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range s.clients {
				delete(s.clients, c)
				close(c.frames)
			}
			metrics.RelayClients.Set(0)
			return
		case c := <-s.register:
			s.clients[c] = struct{}{}
			metrics.RelayClients.Set(float64(len(s.clients)))
		case c := <-s.unregister:
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.frames)
				metrics.RelayClients.Set(float64(len(s.clients)))
			}
		case f := <-s.broadcast:
			for c := range s.clients {
				select {
				case c.frames <- f:
				default:
					metrics.RelayFramesDropped.Inc()
				}
			}
		}
	}
}

func (s *Server) produce(ctx context.Context) error {
	var tick <-chan time.Time
	if s.interval > 0 {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		q, err := s.src.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("relay: source failed", "error", err)
			return fmt.Errorf("relay source: %w", err)
		}

		select {
		case s.broadcast <- wire.Encode(q):
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *client) {
	defer c.conn.Close()

	for f := range c.frames {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(f[:]); err != nil {
			s.log.Info("relay: consumer gone", "remote", c.conn.RemoteAddr().String(), "error", err)
			select {
			case s.unregister <- c:
			case <-ctx.Done():
			}
			// run closes the channel either way
			for range c.frames {
			}
			return
		}
		metrics.RelayFramesSent.Inc()
	}
}
