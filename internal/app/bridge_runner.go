// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/orientation_bridge/internal/bridge"
	"github.com/relabs-tech/orientation_bridge/internal/config"
	"github.com/relabs-tech/orientation_bridge/internal/metrics"
	"github.com/relabs-tech/orientation_bridge/internal/orientation"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func bridgeOptions(cfg *config.Config, logger *slog.Logger) bridge.Options {
	opts := bridge.DefaultOptions()
	opts.Threshold = cfg.MalformedFrameThreshold
	opts.DialTimeout = ms(cfg.DialTimeout)
	opts.Backoff = bridge.Backoff{Initial: ms(cfg.ReadBackoffInitial), Max: ms(cfg.ReadBackoffMax)}
	opts.StopGrace = ms(cfg.StopGrace)
	opts.ReportLinkHealth = cfg.ReportLinkHealth
	opts.Logger = logger
	return opts
}

func bridgeEndpoint(cfg *config.Config) bridge.Endpoint {
	return bridge.Endpoint{Host: cfg.BridgeHost, Port: cfg.BridgePort}
}

// Sampler is the poll side of a bridge.
type Sampler interface {
	Sample() orientation.Sample
}

// pollLoop samples s every pollEvery until ctx is done, handing each
// sample to handle and logging a status line every logEvery.
func pollLoop(ctx context.Context, s Sampler, device string, pollEvery, logEvery time.Duration, handle func(SamplePayload)) {
	poll := time.NewTicker(pollEvery)
	defer poll.Stop()
	status := time.NewTicker(logEvery)
	defer status.Stop()

	var (
		seq  uint64
		last SamplePayload
	)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-poll.C:
			seq++
			last = NewSamplePayload(device, seq, now, s.Sample())
			handle(last)
		case <-status.C:
			slog.Info("bridge: status",
				"seq", last.Seq,
				"roll", last.Euler.Roll,
				"pitch", last.Euler.Pitch,
				"yaw", last.Euler.Yaw,
				"valid", last.Valid,
				"connected", last.Connected,
			)
		}
	}
}

// samplePublisher fires samples at the broker without waiting for acks so a
// slow broker never holds up the poll.
type samplePublisher struct {
	client   mqtt.Client
	topic    string
	encoding string
}

func (p *samplePublisher) publish(s SamplePayload) {
	if !p.client.IsConnectionOpen() {
		metrics.SamplesPublished.WithLabelValues(metrics.StatusDropped).Inc()
		return
	}
	data, err := EncodePayload(p.encoding, s)
	if err != nil {
		metrics.SamplesPublished.WithLabelValues(metrics.StatusError).Inc()
		slog.Error("bridge: encode sample", "error", err)
		return
	}
	p.client.Publish(p.topic, 0, false, data)
	metrics.SamplesPublished.WithLabelValues(metrics.StatusPublished).Inc()
}

func startMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics: server failed", "error", err)
		}
	}()
	slog.Info("metrics: listening", "addr", srv.Addr)
	return srv
}

// RunBridge connects to the orientation source, polls it at the frame rate
// and publishes every sample to MQTT until interrupted.
func RunBridge() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDBridge)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if cfg.MetricsPort > 0 {
		srv := startMetricsServer(cfg.MetricsPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	b := bridge.New(bridgeOptions(cfg, slog.Default()))
	if err := b.Start(ctx, bridgeEndpoint(cfg)); err != nil {
		return err
	}
	defer func() {
		if err := b.Stop(); err != nil {
			slog.Error("bridge: stop", "error", err)
		}
	}()

	pub := &samplePublisher{client: client, topic: cfg.TopicSample, encoding: cfg.PayloadEncoding}
	slog.Info("bridge: publishing samples", "topic", cfg.TopicSample, "encoding", cfg.PayloadEncoding, "poll", ms(cfg.PollInterval))

	pollLoop(ctx, b, cfg.SerialNumber, ms(cfg.PollInterval), ms(cfg.ConsoleLogInterval), pub.publish)

	slog.Info("bridge: shutting down", "polls", b.Stats().Polls)
	return nil
}
