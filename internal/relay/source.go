// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package relay

import (
	"io"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/orientation_bridge/internal/orientation"
	"github.com/relabs-tech/orientation_bridge/internal/wire"
)

// StreamSource reads rotations from a byte stream that already carries wire
// frames, such as a sensor board on a serial line.
type StreamSource struct {
	r   io.Reader
	buf wire.Frame
}

func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: r}
}

// Next blocks until a whole frame has been read.
func (s *StreamSource) Next() (orientation.Quaternion, error) {
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return orientation.Quaternion{}, err
	}
	return wire.Decode(s.buf), nil
}

// OpenSerial opens a serial port at 8N1 that returns reads in whole frames.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: wire.FrameSize,
		ParityMode:      serial.PARITY_NONE,
	}
	return serial.Open(opts)
}
