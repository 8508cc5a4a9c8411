// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func lit(img *image1bit.VerticalLSB) int {
	n := 0
	for _, b := range img.Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestRenderSample(t *testing.T) {
	waiting := renderSample(SamplePayload{}, false)
	assert.Equal(t, 128, waiting.Bounds().Dx())
	assert.Equal(t, 64, waiting.Bounds().Dy())
	assert.Positive(t, lit(waiting))

	p := samplePayload()
	up := renderSample(p, true)
	assert.Positive(t, lit(up))
	assert.NotEqual(t, waiting.Pix, up.Pix)

	p.Connected = false
	down := renderSample(p, true)
	assert.NotEqual(t, up.Pix, down.Pix)
}

func TestRenderSplash(t *testing.T) {
	assert.Positive(t, lit(renderSplash()))
}

func TestDisplayData(t *testing.T) {
	var d displayData
	_, have := d.get()
	assert.False(t, have)

	d.set(samplePayload())
	p, have := d.get()
	assert.True(t, have)
	assert.Equal(t, uint64(42), p.Seq)
}
