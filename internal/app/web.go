// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/orientation_bridge/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local network dashboard
	},
}

// WebServer serves the newest sample over HTTP and websocket.
type WebServer struct {
	mu      sync.RWMutex
	last    SamplePayload
	version uint64

	pushEvery time.Duration
	staticDir string
}

func NewWebServer(pushEvery time.Duration, staticDir string) *WebServer {
	if pushEvery <= 0 {
		pushEvery = 50 * time.Millisecond
	}
	return &WebServer{pushEvery: pushEvery, staticDir: staticDir}
}

// Update stores p as the newest sample.
func (s *WebServer) Update(p SamplePayload) {
	s.mu.Lock()
	s.last = p
	s.version++
	s.mu.Unlock()
}

// latest returns the newest sample and its version; version 0 means none yet.
func (s *WebServer) latest() (SamplePayload, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.version
}

func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", s.handleAPI)
	mux.HandleFunc("/ws/orientation", s.handleWS)
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

func (s *WebServer) handleAPI(w http.ResponseWriter, r *http.Request) {
	p, version := s.latest()
	if version == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Warn("web: json encode error", "error", err)
	}
}

// handleWS pushes the newest sample whenever it changed since the last push.
func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("web: websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	// reads only to notice the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushEvery)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			p, version := s.latest()
			if version == sent {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteJSON(p); err != nil {
				slog.Debug("web: websocket write error", "error", err)
				return
			}
			sent = version
		}
	}
}

// RunWeb subscribes to published samples and serves them to browsers.
func RunWeb() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	web := NewWebServer(ms(cfg.WebPushInterval), "web")

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe(client, cfg.TopicSample, func(_ mqtt.Client, msg mqtt.Message) {
		p, err := DecodePayload(cfg.PayloadEncoding, msg.Payload())
		if err != nil {
			slog.Warn("web: sample decode error", "error", err)
			return
		}
		web.Update(p)
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           web.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("web: server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
