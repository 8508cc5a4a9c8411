// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import "time"

// Backoff is a capped exponential delay schedule.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff returns 10ms doubling up to 1s.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: 10 * time.Millisecond,
		Max:     time.Second,
	}
}

// Delay returns the wait before retry number attempt (1-based):
// Initial * 2^(attempt-1), capped at Max. Attempt < 1 or a zero Initial
// means no wait.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 || b.Initial <= 0 {
		return 0
	}

	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	delay := b.Initial * time.Duration(1<<uint(shift))

	if b.Max > 0 && (delay > b.Max || delay <= 0) {
		delay = b.Max
	}
	return delay
}
