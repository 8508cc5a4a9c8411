// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/orientation_bridge/internal/logging"
	"github.com/relabs-tech/orientation_bridge/internal/orientation"
	"github.com/relabs-tech/orientation_bridge/internal/wire"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.DialTimeout = time.Second
	opts.Backoff = testBackoff
	opts.Logger = logging.Discard()
	return opts
}

func startBridge(t *testing.T, opts Options, ep Endpoint) *Bridge {
	t.Helper()
	b := New(opts)
	require.NoError(t, b.Start(context.Background(), ep))
	t.Cleanup(func() { _ = b.Stop() })
	return b
}

func TestBridge_SampleWhenIdle(t *testing.T) {
	b := New(testOptions())

	s := b.Sample()
	assert.Equal(t, orientation.Identity(), s.Rotation)
	assert.False(t, s.Valid)
	assert.False(t, s.Connected)
	assert.False(t, b.Running())
	assert.Equal(t, uint64(1), b.Stats().Polls)
}

func TestBridge_StartFailures(t *testing.T) {
	b := New(testOptions())

	err := b.Start(context.Background(), Endpoint{Host: "sensor.local", Port: 31000})
	assert.ErrorIs(t, err, ErrAddressInvalid)
	assert.False(t, b.Running())

	err = b.Start(context.Background(), closedPort(t))
	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.False(t, b.Running())

	assert.NoError(t, b.Stop())
}

func TestBridge_StreamsLatestRotation(t *testing.T) {
	ln := listen(t)
	conns := acceptAll(t, ln)
	b := startBridge(t, testOptions(), endpointOf(ln))
	peer := nextConn(t, conns)

	s := b.Sample()
	assert.True(t, s.Valid)
	assert.True(t, s.Connected)
	assert.Equal(t, orientation.Identity(), s.Rotation)

	want := orientation.FromEuler(10, -20, 30)
	require.NoError(t, wire.WriteFrame(peer, orientation.Quaternion{X: 1, Y: 0, Z: 0, W: 0}))
	require.NoError(t, wire.WriteFrame(peer, want))

	require.Eventually(t, func() bool { return b.Sample().Rotation == want }, 2*time.Second, time.Millisecond)

	st := b.Stats()
	assert.True(t, st.Running)
	assert.NotEmpty(t, st.Session)
	assert.Equal(t, Connected, st.Link)
	assert.Equal(t, uint64(2), st.Frames)
}

func TestBridge_StartTwice(t *testing.T) {
	ln := listen(t)
	acceptAll(t, ln)
	b := startBridge(t, testOptions(), endpointOf(ln))

	assert.ErrorIs(t, b.Start(context.Background(), endpointOf(ln)), ErrAlreadyRunning)
}

func TestBridge_StopIsBoundedWhileReadBlocks(t *testing.T) {
	ln := listen(t)
	conns := acceptAll(t, ln)

	b := New(testOptions())
	require.NoError(t, b.Start(context.Background(), endpointOf(ln)))
	peer := nextConn(t, conns)

	// peer stays silent so the receiver sits in Read
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, b.Stop())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, b.Running())

	s := b.Sample()
	assert.False(t, s.Valid)
	assert.Equal(t, orientation.Identity(), s.Rotation)

	// transport released
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := peer.Read(make([]byte, 1))
	assert.Error(t, err)

	assert.NoError(t, b.Stop())
}

func TestBridge_RestartAfterStop(t *testing.T) {
	ln := listen(t)
	conns := acceptAll(t, ln)

	b := New(testOptions())
	require.NoError(t, b.Start(context.Background(), endpointOf(ln)))
	nextConn(t, conns)
	first := b.Stats().Session
	require.NoError(t, b.Stop())

	require.NoError(t, b.Start(context.Background(), endpointOf(ln)))
	t.Cleanup(func() { _ = b.Stop() })
	nextConn(t, conns)
	assert.NotEqual(t, first, b.Stats().Session)
}

func TestBridge_SelfHealsAfterPeerDrop(t *testing.T) {
	ln := listen(t)
	conns := acceptAll(t, ln)
	b := startBridge(t, testOptions(), endpointOf(ln))

	// half a frame, then hang up
	first := nextConn(t, conns)
	half := wire.Encode(orientation.Quaternion{X: 9, Y: 9, Z: 9, W: 9})
	_, err := first.Write(half[:8])
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := nextConn(t, conns)
	want := orientation.FromEuler(0, 45, 90)
	require.NoError(t, wire.WriteFrame(second, want))

	require.Eventually(t, func() bool { return b.Sample().Rotation == want }, 2*time.Second, time.Millisecond)

	st := b.Stats()
	assert.GreaterOrEqual(t, st.ReconnectAttempts, uint64(1))
	assert.GreaterOrEqual(t, st.ShortReads, uint64(DefaultThreshold+1))
	assert.Equal(t, uint64(1), st.Frames)
}

func TestBridge_LinkHealthReporting(t *testing.T) {
	tests := []struct {
		name          string
		report        bool
		wantConnected bool
	}{
		{"fixed", false, true},
		{"reported", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)
			conns := acceptAll(t, ln)

			opts := testOptions()
			opts.ReportLinkHealth = tt.report
			b := startBridge(t, opts, endpointOf(ln))
			peer := nextConn(t, conns)
			assert.True(t, b.Sample().Connected)

			// source goes away for good
			require.NoError(t, ln.Close())
			require.NoError(t, peer.Close())

			require.Eventually(t, func() bool {
				return b.Stats().ReconnectFailures >= 1
			}, 2*time.Second, time.Millisecond)

			if tt.report {
				require.Eventually(t, func() bool { return !b.Sample().Connected }, time.Second, time.Millisecond)
			}
			s := b.Sample()
			assert.True(t, s.Valid)
			assert.Equal(t, tt.wantConnected, s.Connected)
		})
	}
}
