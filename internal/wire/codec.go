// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package wire encodes orientation frames for the TCP link.
//
// A frame is exactly FrameSize bytes: four little-endian IEEE-754 float32
// values in x, y, z, w order. There is no header, length prefix or delimiter;
// every FrameSize bytes on the stream is one frame.
package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/relabs-tech/orientation_bridge/internal/orientation"
)

// FrameSize is the length of one frame on the wire.
const FrameSize = 16

// Frame is one encoded quaternion.
type Frame [FrameSize]byte

// Decode reinterprets f as a quaternion. Any 16 bytes decode to some
// quaternion; whether it is a sensible rotation is up to the caller.
func Decode(f Frame) orientation.Quaternion {
	return orientation.Quaternion{
		X: math.Float32frombits(binary.LittleEndian.Uint32(f[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(f[4:8])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(f[8:12])),
		W: math.Float32frombits(binary.LittleEndian.Uint32(f[12:16])),
	}
}

// Encode is the inverse of Decode.
func Encode(q orientation.Quaternion) Frame {
	var f Frame
	binary.LittleEndian.PutUint32(f[0:4], math.Float32bits(q.X))
	binary.LittleEndian.PutUint32(f[4:8], math.Float32bits(q.Y))
	binary.LittleEndian.PutUint32(f[8:12], math.Float32bits(q.Z))
	binary.LittleEndian.PutUint32(f[12:16], math.Float32bits(q.W))
	return f
}

// WriteFrame encodes q and writes it to w in a single Write call.
func WriteFrame(w io.Writer, q orientation.Quaternion) error {
	f := Encode(q)
	_, err := w.Write(f[:])
	return err
}
