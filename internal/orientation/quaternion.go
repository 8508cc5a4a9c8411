// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "math"

const degPerRad = 180.0 / math.Pi

// Quaternion is a rotation stored in (x, y, z, w) order, the same order the
// components travel on the wire.
type Quaternion struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// Identity returns the no-rotation quaternion (0, 0, 0, 1).
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// Norm returns the Euclidean length of q.
func (q Quaternion) Norm() float64 {
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)
	return math.Sqrt(x*x + y*y + z*z + w*w)
}

// Normalized returns q scaled to unit length. A zero or non-finite
// quaternion normalizes to Identity.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Identity()
	}
	return Quaternion{
		X: float32(float64(q.X) / n),
		Y: float32(float64(q.Y) / n),
		Z: float32(float64(q.Z) / n),
		W: float32(float64(q.W) / n),
	}
}

// FromEuler builds a quaternion from roll, pitch and yaw in degrees,
// applied in yaw-pitch-roll (ZYX) order.
func FromEuler(rollDeg, pitchDeg, yawDeg float64) Quaternion {
	cr, sr := math.Cos(rollDeg/degPerRad/2), math.Sin(rollDeg/degPerRad/2)
	cp, sp := math.Cos(pitchDeg/degPerRad/2), math.Sin(pitchDeg/degPerRad/2)
	cy, sy := math.Cos(yawDeg/degPerRad/2), math.Sin(yawDeg/degPerRad/2)

	return Quaternion{
		X: float32(sr*cp*cy - cr*sp*sy),
		Y: float32(cr*sp*cy + sr*cp*sy),
		Z: float32(cr*cp*sy - sr*sp*cy),
		W: float32(cr*cp*cy + sr*sp*sy),
	}
}

// Pose converts q to roll/pitch/yaw in degrees (ZYX convention).
// Pitch stays within ±90° at the gimbal-lock singularity.
func (q Quaternion) Pose() Pose {
	n := q.Normalized()
	x, y, z, w := float64(n.X), float64(n.Y), float64(n.Z), float64(n.W)

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	// atan2 keeps pitch accurate near ±90°, where asin loses precision
	// on float32 input.
	sinp := 2 * (w*y - z*x)
	cosp := math.Hypot(1-2*(y*y+z*z), 2*(x*y+w*z))
	pitch := math.Atan2(sinp, cosp)

	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Pose{
		Roll:  roll * degPerRad,
		Pitch: pitch * degPerRad,
		Yaw:   yaw * degPerRad,
	}
}
