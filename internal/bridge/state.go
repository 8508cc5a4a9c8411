// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"sync"

	"github.com/relabs-tech/orientation_bridge/internal/orientation"
)

// Latest is the single-slot store between the receive loop (writer) and
// the frame poll (reader). The lock covers one value copy, never I/O.
type Latest struct {
	mu sync.Mutex
	q  orientation.Quaternion
}

// NewLatest returns a store holding the identity rotation.
func NewLatest() *Latest {
	return &Latest{q: orientation.Identity()}
}

// Write replaces the stored rotation.
func (l *Latest) Write(q orientation.Quaternion) {
	l.mu.Lock()
	l.q = q
	l.mu.Unlock()
}

// Read returns the last written rotation, or identity if none was written.
func (l *Latest) Read() orientation.Quaternion {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q
}
