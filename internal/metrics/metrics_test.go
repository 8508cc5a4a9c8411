// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters_Increment(t *testing.T) {
	tests := []struct {
		name   string
		metric prometheus.Counter
	}{
		{"frames decoded", FramesDecoded},
		{"short reads", ShortReads},
		{"read errors", ReadErrors},
		{"polls", Polls},
		{"relay frames sent", RelayFramesSent},
		{"relay frames dropped", RelayFramesDropped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(tt.metric)
			tt.metric.Inc()
			assert.Equal(t, before+1, testutil.ToFloat64(tt.metric))
		})
	}
}

func TestReconnectAttempts_Labels(t *testing.T) {
	success := ReconnectAttempts.WithLabelValues(ResultSuccess)
	failure := ReconnectAttempts.WithLabelValues(ResultFailure)
	s0, f0 := testutil.ToFloat64(success), testutil.ToFloat64(failure)

	success.Inc()
	failure.Add(2)

	assert.Equal(t, s0+1, testutil.ToFloat64(success))
	assert.Equal(t, f0+2, testutil.ToFloat64(failure))
}

func TestGauges(t *testing.T) {
	LinkConnected.Set(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(LinkConnected))
	LinkConnected.Set(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(LinkConnected))

	RelayClients.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(RelayClients))
	RelayClients.Set(0)
}
