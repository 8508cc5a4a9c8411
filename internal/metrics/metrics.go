// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconnect attempt results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Sample publish statuses.
const (
	StatusPublished = "published"
	StatusDropped   = "dropped"
	StatusError     = "error"
)

// Bridge receive loop metrics
var (
	// FramesDecoded counts full 16-byte frames decoded and published
	FramesDecoded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_frames_decoded_total",
			Help: "Total orientation frames fully read and decoded",
		},
	)

	// ShortReads counts reads that ended before a full frame arrived
	ShortReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_short_reads_total",
			Help: "Total reads that returned fewer than 16 bytes",
		},
	)

	// ReadErrors counts transport-level read failures
	ReadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_read_errors_total",
			Help: "Total transient transport read errors",
		},
	)

	// ReconnectAttempts counts threshold-triggered reconnects by result
	ReconnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_reconnect_attempts_total",
			Help: "Reconnect attempts after the malformed-frame threshold, by result",
		},
		[]string{"result"},
	)

	// LinkConnected is 1 while the bridge holds a live connection
	LinkConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_link_connected",
			Help: "1 while the bridge transport is connected, 0 otherwise",
		},
	)
)

// Poll side metrics
var (
	// Polls counts Sample calls
	Polls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_polls_total",
			Help: "Total frame polls served",
		},
	)

	// SamplesPublished counts payloads handed to MQTT by status
	SamplesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_samples_published_total",
			Help: "Orientation samples published to MQTT, by status",
		},
		[]string{"status"},
	)
)

// Relay metrics
var (
	RelayClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connected_clients",
			Help: "Number of TCP consumers attached to the relay",
		},
	)

	RelayFramesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_frames_sent_total",
			Help: "Frames written to relay consumers",
		},
	)

	// RelayFramesDropped counts frames skipped because a consumer was behind
	RelayFramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Frames dropped for slow relay consumers",
		},
	)
)
