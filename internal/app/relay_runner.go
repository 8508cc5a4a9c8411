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

	"github.com/relabs-tech/orientation_bridge/internal/config"
	"github.com/relabs-tech/orientation_bridge/internal/orientation"
	"github.com/relabs-tech/orientation_bridge/internal/relay"
)

// openRelaySource returns the configured source, its pacing interval and a
// closer for any device behind it.
func openRelaySource(cfg *config.Config) (orientation.Source, time.Duration, io.Closer, error) {
	switch cfg.RelaySource {
	case config.RelaySourceSerial:
		port, err := relay.OpenSerial(cfg.RelaySerialPort, cfg.RelayBaudRate)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("open %s: %w", cfg.RelaySerialPort, err)
		}
		slog.Info("relay: serial source opened", "port", cfg.RelaySerialPort, "baud", cfg.RelayBaudRate)
		// the device sets the pace
		return relay.NewStreamSource(port), 0, port, nil
	default:
		return orientation.NewMockSource(), ms(cfg.RelayInterval), nil, nil
	}
}

// RunRelay serves orientation frames to TCP consumers until interrupted.
func RunRelay() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, interval, closer, err := openRelaySource(cfg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.RelayListenAddr)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return fmt.Errorf("relay listen: %w", err)
	}

	srv := relay.NewServer(src, relay.WithInterval(interval), relay.WithLogger(slog.Default()))
	err = srv.Serve(ctx, ln)

	if closer != nil {
		_ = closer.Close()
	}
	return err
}
