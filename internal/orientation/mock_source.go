// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that
// generates smoothly changing rotations.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Quaternion, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	// yaw sweeps the full circle; wrap into (-180, 180] so Pose() gives it back
	yaw := math.Mod(elapsed*30, 360)
	if yaw > 180 {
		yaw -= 360
	}

	return FromEuler(
		20*math.Sin(elapsed),
		15*math.Cos(elapsed*0.7),
		yaw,
	), nil
}
