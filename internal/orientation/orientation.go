// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

// Pose is the human-facing representation of orientation, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Sample is what a frame poll hands to the consumer.
//
// Connected is true for every sample taken during a bridge session unless
// link-health reporting is enabled on the bridge.
type Sample struct {
	Rotation  Quaternion `json:"rotation"`
	Valid     bool       `json:"valid"`
	Connected bool       `json:"connected"`
}

// Source is anything that can provide rotations over time: the mock source,
// a serial-attached sensor, a replay file.
type Source interface {
	Next() (Quaternion, error)
}

// SourceFunc adapts a plain function to a Source.
type SourceFunc func() (Quaternion, error)

func (f SourceFunc) Next() (Quaternion, error) { return f() }
