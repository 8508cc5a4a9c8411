// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/relabs-tech/orientation_bridge/internal/metrics"
	"github.com/relabs-tech/orientation_bridge/internal/wire"
)

// DefaultThreshold is the number of consecutive short reads tolerated
// before the receiver forces a reconnect.
const DefaultThreshold = 10

// FrameSource is what the receive loop reads from. *ConnManager satisfies it.
type FrameSource interface {
	io.Reader
	Reconnect(ctx context.Context) error
}

// ReceiverStats is a snapshot of receive loop counters.
type ReceiverStats struct {
	Frames            uint64
	ShortReads        uint64
	ReadErrors        uint64
	ReconnectAttempts uint64
	ReconnectFailures uint64
	// Malformed is the current consecutive short read count.
	Malformed int64
}

// Receiver reads fixed-size frames from a FrameSource and publishes each
// decoded rotation into a Latest store. It is the only writer of that store.
type Receiver struct {
	src       FrameSource
	latest    *Latest
	threshold int
	backoff   Backoff
	clock     clockwork.Clock
	log       *slog.Logger

	stopping  atomic.Bool
	malformed atomic.Int64

	frames            atomic.Uint64
	shortReads        atomic.Uint64
	readErrors        atomic.Uint64
	reconnects        atomic.Uint64
	reconnectFailures atomic.Uint64

	shortReadLog rate.Sometimes
	readErrLog   rate.Sometimes
}

// NewReceiver wires a receive loop. A threshold below 1 falls back to
// DefaultThreshold; a nil clock uses the real clock.
func NewReceiver(src FrameSource, latest *Latest, threshold int, backoff Backoff, clock clockwork.Clock, logger *slog.Logger) *Receiver {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		src:          src,
		latest:       latest,
		threshold:    threshold,
		backoff:      backoff,
		clock:        clock,
		log:          logger,
		shortReadLog: rate.Sometimes{Interval: time.Second},
		readErrLog:   rate.Sometimes{Interval: time.Second},
	}
}

// Stop asks the loop to exit at its next check. It does not unblock a read
// in progress; the owner interrupts the transport for that.
func (r *Receiver) Stop() {
	r.stopping.Store(true)
}

// Stats returns a snapshot of the loop counters.
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		Frames:            r.frames.Load(),
		ShortReads:        r.shortReads.Load(),
		ReadErrors:        r.readErrors.Load(),
		ReconnectAttempts: r.reconnects.Load(),
		ReconnectFailures: r.reconnectFailures.Load(),
		Malformed:         r.malformed.Load(),
	}
}

// Run is the receive loop. It returns once Stop was called or ctx is done
// and the pending read has returned.
func (r *Receiver) Run(ctx context.Context) {
	var frame wire.Frame
	errStreak := 0

	r.log.Debug("bridge: receive loop running", "threshold", r.threshold)
	defer r.log.Debug("bridge: receive loop stopped")

	for r.running(ctx) {
		n, err := io.ReadFull(r.src, frame[:])

		switch {
		case err == nil:
			r.latest.Write(wire.Decode(frame))
			r.frames.Add(1)
			metrics.FramesDecoded.Inc()
			r.malformed.Store(0)
			errStreak = 0

		case isShortRead(err):
			if !r.running(ctx) {
				return
			}
			attempted, rerr := r.handleShortRead(ctx, n)
			switch {
			case rerr != nil:
				errStreak++
				r.wait(ctx, r.backoff.Delay(errStreak))
			case attempted:
				errStreak = 0
			}

		default:
			if !r.running(ctx) {
				return
			}
			r.readErrors.Add(1)
			metrics.ReadErrors.Inc()
			errStreak++
			delay := r.backoff.Delay(errStreak)
			r.readErrLog.Do(func() {
				r.log.Warn("bridge: receive failed", "error", err, "retry_in", delay)
			})
			r.wait(ctx, delay)
		}
	}
}

// handleShortRead counts one malformed frame and reconnects once the count
// exceeds the threshold. The count restarts after every attempt, failed or not.
func (r *Receiver) handleShortRead(ctx context.Context, n int) (attempted bool, err error) {
	r.shortReads.Add(1)
	metrics.ShortReads.Inc()
	count := r.malformed.Add(1)

	r.shortReadLog.Do(func() {
		r.log.Warn("bridge: unexpected data size", "bytes", n, "want", wire.FrameSize, "consecutive", count)
	})
	if count <= int64(r.threshold) {
		return false, nil
	}

	r.log.Warn("bridge: too many malformed frames, reconnecting", "consecutive", count, "threshold", r.threshold)
	r.reconnects.Add(1)
	err = r.src.Reconnect(ctx)
	r.malformed.Store(0)

	if err != nil {
		r.reconnectFailures.Add(1)
		metrics.ReconnectAttempts.WithLabelValues(metrics.ResultFailure).Inc()
		if r.running(ctx) {
			r.log.Error("bridge: reconnect failed", "error", err)
		}
		return true, err
	}
	metrics.ReconnectAttempts.WithLabelValues(metrics.ResultSuccess).Inc()
	return true, nil
}

func (r *Receiver) running(ctx context.Context) bool {
	return !r.stopping.Load() && ctx.Err() == nil
}

func (r *Receiver) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-r.clock.After(d):
	}
}

// isShortRead reports a read that ended before a full frame: the peer closed
// (EOF), closed mid-frame, or there is no connection to read from.
func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, ErrNotConnected)
}
