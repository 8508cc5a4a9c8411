// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/orientation_bridge/internal/bridge"
	"github.com/relabs-tech/orientation_bridge/internal/config"
	"github.com/relabs-tech/orientation_bridge/internal/orientation"
	"github.com/relabs-tech/orientation_bridge/internal/relay"
)

// runLoopback serves src on a loopback port, starts a bridge against it and
// prints one console line per tick to out until ctx is done.
func runLoopback(ctx context.Context, src orientation.Source, opts bridge.Options, every time.Duration, out io.Writer) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("console: listen: %w", err)
	}
	addr := ln.Addr().(*net.TCPAddr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := relay.NewServer(src, relay.WithLogger(opts.Logger))
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	b := bridge.New(opts)
	if err := b.Start(ctx, bridge.Endpoint{Host: addr.IP.String(), Port: addr.Port}); err != nil {
		cancel()
		<-served
		return err
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var seq uint64
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.C:
			seq++
			fmt.Fprintln(out, formatSample(NewSamplePayload("local", seq, now, b.Sample())))
		}
	}

	stopErr := b.Stop()
	cancel()
	if err := <-served; err != nil {
		return err
	}
	return stopErr
}

// RunMockConsole runs the mock relay and the bridge in one process and
// prints the polled orientation. No broker or sensor needed.
func RunMockConsole() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("console: mock relay and bridge running in process")
	return runLoopback(ctx, orientation.NewMockSource(), bridgeOptions(cfg, slog.Default()), 100*time.Millisecond, os.Stdout)
}
