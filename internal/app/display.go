// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/orientation_bridge/internal/config"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// displayData holds the newest sample for the render loop.
type displayData struct {
	mu     sync.RWMutex
	sample SamplePayload
	have   bool
}

func (d *displayData) set(p SamplePayload) {
	d.mu.Lock()
	d.sample = p
	d.have = true
	d.mu.Unlock()
}

func (d *displayData) get() (SamplePayload, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sample, d.have
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, text string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

// renderSample draws roll, pitch, yaw and the link state.
func renderSample(p SamplePayload, have bool) *image1bit.VerticalLSB {
	img, d := newCanvas()

	if !have {
		drawLine(d, 0, 26, "Orientation")
		drawLine(d, 0, 39, "Waiting...")
		return img
	}

	drawLine(d, 0, 13, fmt.Sprintf("R: %6.1f", p.Euler.Roll))
	drawLine(d, 0, 26, fmt.Sprintf("P: %6.1f", p.Euler.Pitch))
	drawLine(d, 0, 39, fmt.Sprintf("Y: %6.1f", p.Euler.Yaw))

	link := "link up"
	switch {
	case !p.Valid:
		link = "bridge idle"
	case !p.Connected:
		link = "link down"
	}
	drawLine(d, 0, 58, link)
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, d := newCanvas()
	drawLine(d, 10, 26, "Orientation")
	drawLine(d, 25, 43, "Bridge")
	drawLine(d, 5, 56, "Connecting...")
	return img
}

// RunDisplay shows the published orientation on an SSD1306 panel.
func RunDisplay() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	slog.Info("display: initialized", "bus", cfg.DisplayI2CBus)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		slog.Warn("display: error showing splash", "error", err)
	}

	data := &displayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe(client, cfg.TopicSample, func(_ mqtt.Client, msg mqtt.Message) {
		p, err := DecodePayload(cfg.PayloadEncoding, msg.Payload())
		if err != nil {
			slog.Warn("display: sample decode error", "error", err)
			return
		}
		data.set(p)
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(ms(cfg.DisplayUpdateInterval))
	defer ticker.Stop()

	slog.Info("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			slog.Info("display: shutting down")
			return nil
		case <-ticker.C:
			p, have := data.get()
			if err := dev.Draw(dev.Bounds(), renderSample(p, have), image.Point{}); err != nil {
				slog.Warn("display: error updating display", "error", err)
			}
		}
	}
}
