// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	q := Identity()
	assert.Equal(t, Quaternion{X: 0, Y: 0, Z: 0, W: 1}, q)
	assert.Equal(t, Pose{}, q.Pose())
}

func TestNormalized(t *testing.T) {
	q := Quaternion{X: 0, Y: 0, Z: 0, W: 2}.Normalized()
	assert.Equal(t, Identity(), q)

	q = Quaternion{X: 1, Y: 1, Z: 1, W: 1}.Normalized()
	assert.InDelta(t, 1.0, q.Norm(), 1e-6)
	assert.InDelta(t, 0.5, q.X, 1e-6)
}

func TestNormalized_DegenerateIsIdentity(t *testing.T) {
	assert.Equal(t, Identity(), Quaternion{}.Normalized())

	nan := float32(math.NaN())
	assert.Equal(t, Identity(), Quaternion{X: nan, W: 1}.Normalized())
}

func TestFromEuler_PoseRoundTrip(t *testing.T) {
	tests := []struct {
		name             string
		roll, pitch, yaw float64
	}{
		{"roll only", 30, 0, 0},
		{"pitch only", 0, -45, 0},
		{"yaw only", 0, 0, 120},
		{"combined", 20, 15, -75},
		{"negative yaw", -10, 5, -170},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromEuler(tt.roll, tt.pitch, tt.yaw).Pose()
			assert.InDelta(t, tt.roll, p.Roll, 1e-3)
			assert.InDelta(t, tt.pitch, p.Pitch, 1e-3)
			assert.InDelta(t, tt.yaw, p.Yaw, 1e-3)
		})
	}
}

func TestPose_GimbalLockClampsPitch(t *testing.T) {
	// 90° pitch: y = w = sqrt(0.5)
	h := float32(math.Sqrt(0.5))
	p := Quaternion{Y: h, W: h}.Pose()
	assert.InDelta(t, 90.0, p.Pitch, 1e-3)

	p = Quaternion{Y: -h, W: h}.Pose()
	assert.InDelta(t, -90.0, p.Pitch, 1e-3)
}

func TestFromEuler_VerticalPitch(t *testing.T) {
	for _, pitch := range []float64{90, -90, 89.9, -89.9} {
		p := FromEuler(0, pitch, 0).Pose()
		assert.InDelta(t, pitch, p.Pitch, 1e-3, "pitch %v", pitch)
		assert.LessOrEqual(t, math.Abs(p.Pitch), 90.0)
	}
}

func TestMockSource_UnitQuaternions(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	now := start
	src := &mockSource{start: start, now: func() time.Time { return now }}

	for i := 0; i < 50; i++ {
		now = start.Add(time.Duration(i) * 370 * time.Millisecond)
		q, err := src.Next()
		require.NoError(t, err)
		assert.InDelta(t, 1.0, q.Norm(), 1e-5)

		yaw := q.Pose().Yaw
		assert.LessOrEqual(t, yaw, 180.0+1e-3)
		assert.GreaterOrEqual(t, yaw, -180.0-1e-3)
	}
}

func TestSourceFunc(t *testing.T) {
	want := FromEuler(1, 2, 3)
	var src Source = SourceFunc(func() (Quaternion, error) { return want, nil })

	got, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
