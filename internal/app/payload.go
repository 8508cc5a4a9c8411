// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/relabs-tech/orientation_bridge/internal/config"
	"github.com/relabs-tech/orientation_bridge/internal/orientation"
)

// SamplePayload is one polled sample as published on the sample topic.
type SamplePayload struct {
	Device    string                 `json:"device" msgpack:"device"`
	Seq       uint64                 `json:"seq" msgpack:"seq"`
	Time      time.Time              `json:"time" msgpack:"time"`
	Rotation  orientation.Quaternion `json:"rotation" msgpack:"rotation"`
	Euler     orientation.Pose       `json:"euler" msgpack:"euler"`
	Valid     bool                   `json:"valid" msgpack:"valid"`
	Connected bool                   `json:"connected" msgpack:"connected"`
}

func NewSamplePayload(device string, seq uint64, now time.Time, s orientation.Sample) SamplePayload {
	return SamplePayload{
		Device:    device,
		Seq:       seq,
		Time:      now.UTC(),
		Rotation:  s.Rotation,
		Euler:     s.Rotation.Pose(),
		Valid:     s.Valid,
		Connected: s.Connected,
	}
}

// EncodePayload serializes p as JSON or MessagePack.
func EncodePayload(encoding string, p SamplePayload) ([]byte, error) {
	switch encoding {
	case config.EncodingJSON, "":
		return json.Marshal(p)
	case config.EncodingMsgpack:
		return msgpack.Marshal(p)
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(encoding string, data []byte) (SamplePayload, error) {
	var p SamplePayload
	var err error

	switch encoding {
	case config.EncodingJSON, "":
		err = json.Unmarshal(data, &p)
	case config.EncodingMsgpack:
		err = msgpack.Unmarshal(data, &p)
	default:
		err = fmt.Errorf("unknown payload encoding %q", encoding)
	}
	return p, err
}

// formatSample is the console line for one sample.
func formatSample(p SamplePayload) string {
	link := "up"
	switch {
	case !p.Valid:
		link = "idle"
	case !p.Connected:
		link = "down"
	}
	q := p.Rotation
	return fmt.Sprintf(
		"[QUAT] x=%7.4f y=%7.4f z=%7.4f w=%7.4f | ROLL=%7.2f PITCH=%7.2f YAW=%7.2f | link=%s",
		q.X, q.Y, q.Z, q.W, p.Euler.Roll, p.Euler.Pitch, p.Euler.Yaw, link,
	)
}
