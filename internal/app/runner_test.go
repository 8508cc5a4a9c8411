// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/orientation_bridge/internal/bridge"
	"github.com/relabs-tech/orientation_bridge/internal/config"
	"github.com/relabs-tech/orientation_bridge/internal/logging"
	"github.com/relabs-tech/orientation_bridge/internal/orientation"
)

type fixedSampler orientation.Sample

func (f fixedSampler) Sample() orientation.Sample { return orientation.Sample(f) }

func TestPollLoop_NumbersSamples(t *testing.T) {
	want := orientation.Sample{Rotation: orientation.FromEuler(0, 0, 45), Valid: true, Connected: true}

	var (
		mu  sync.Mutex
		got []SamplePayload
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pollLoop(ctx, fixedSampler(want), "dev", time.Millisecond, time.Hour, func(p SamplePayload) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 3
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	for i, p := range got {
		assert.Equal(t, uint64(i+1), p.Seq)
		assert.Equal(t, "dev", p.Device)
		assert.Equal(t, want.Rotation, p.Rotation)
	}
}

func TestBridgeOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MalformedFrameThreshold = 3
	cfg.ReadBackoffInitial = 20
	cfg.ReadBackoffMax = 400
	cfg.StopGrace = 250
	cfg.ReportLinkHealth = true

	opts := bridgeOptions(cfg, logging.Discard())
	assert.Equal(t, 3, opts.Threshold)
	assert.Equal(t, bridge.Backoff{Initial: 20 * time.Millisecond, Max: 400 * time.Millisecond}, opts.Backoff)
	assert.Equal(t, 250*time.Millisecond, opts.StopGrace)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.True(t, opts.ReportLinkHealth)

	assert.Equal(t, bridge.Endpoint{Host: "127.0.0.1", Port: 31000}, bridgeEndpoint(cfg))
}

func TestOpenRelaySource_Mock(t *testing.T) {
	src, interval, closer, err := openRelaySource(config.Default())
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, 10*time.Millisecond, interval)

	q, err := src.Next()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q.Norm(), 1e-5)
}

// syncBuffer guards a bytes.Buffer shared with the console loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunLoopback(t *testing.T) {
	want := orientation.FromEuler(12, -8, 90)
	src := orientation.SourceFunc(func() (orientation.Quaternion, error) { return want, nil })

	opts := bridge.DefaultOptions()
	opts.Logger = logging.Discard()

	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- runLoopback(ctx, src, opts, 5*time.Millisecond, &out) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "YAW=  90.00")
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console loop did not stop")
	}
	assert.Contains(t, out.String(), "link=up")
}
