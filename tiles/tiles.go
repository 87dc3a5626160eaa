// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tiles splits a framebuffer into bins that fit in tile memory.
//
// A bin is rendered entirely in tile memory (GMEM): its attachments are
// loaded or cleared, every draw of the batch is replayed with the bin as
// scissor, and the result is stored back. The bin size is the largest
// aligned rectangle whose pixels, over all attachments, fit in GMEM.
package tiles

import (
	"errors"
	"fmt"

	"github.com/gogpu/tbdr"
	"github.com/gogpu/tbdr/format"
)

// ErrDoesNotFit is returned when even a single aligned bin does not fit in
// tile memory.
var ErrDoesNotFit = errors.New("tiles: attachments do not fit in tile memory")

// ErrEmpty is returned for a framebuffer of zero area.
var ErrEmpty = errors.New("tiles: empty framebuffer")

// Options controls the bin geometry.
type Options struct {
	// AlignW and AlignH are the bin size granularity. Zero means 1.
	AlignW int
	AlignH int
}

// Bin is one tile of a layout.
type Bin struct {
	X, Y int // position in the bin grid
	Rect tbdr.Rect
}

// Layout is the bin grid of a framebuffer.
type Layout struct {
	Width, Height uint32

	// BinW and BinH are the size of every bin but the last column and row,
	// which are clipped to the framebuffer.
	BinW, BinH uint32

	NX, NY int
	Bins   []Bin
}

// Len returns the number of bins.
func (l *Layout) Len() int { return len(l.Bins) }

// String returns a description such as "3x2 bins of 96x64".
func (l *Layout) String() string {
	return fmt.Sprintf("%dx%d bins of %dx%d", l.NX, l.NY, l.BinW, l.BinH)
}

// Compute splits a width x height framebuffer whose attachments use cpp
// bytes per pixel in total into bins that fit in gmemBytes. The bin count
// doubles along the longer bin axis until a bin fits.
func Compute(width, height uint32, cpp, gmemBytes int, opts Options) (*Layout, error) {
	if width == 0 || height == 0 {
		return nil, ErrEmpty
	}
	alignW := uint32(max(opts.AlignW, 1))
	alignH := uint32(max(opts.AlignH, 1))
	if cpp <= 0 {
		return Single(width, height), nil
	}

	fits := func(w, h uint32) bool {
		return uint64(w)*uint64(h)*uint64(cpp) <= uint64(gmemBytes)
	}
	if !fits(alignW, alignH) {
		return nil, fmt.Errorf("%w: %d bytes per pixel, %d bytes of gmem", ErrDoesNotFit, cpp, gmemBytes)
	}

	nx, ny := uint32(1), uint32(1)
	binW, binH := alignUp(width, alignW), alignUp(height, alignH)
	for !fits(binW, binH) {
		if binW >= binH && binW > alignW {
			nx *= 2
			binW = alignUp(divUp(width, nx), alignW)
		} else if binH > alignH {
			ny *= 2
			binH = alignUp(divUp(height, ny), alignH)
		} else {
			nx *= 2
			binW = alignUp(divUp(width, nx), alignW)
		}
	}
	return grid(width, height, binW, binH), nil
}

// Single returns a layout with one bin covering the framebuffer, used when
// rendering directly to system memory.
func Single(width, height uint32) *Layout {
	return grid(width, height, width, height)
}

func grid(width, height, binW, binH uint32) *Layout {
	l := &Layout{
		Width:  width,
		Height: height,
		BinW:   binW,
		BinH:   binH,
		NX:     int(divUp(width, binW)),
		NY:     int(divUp(height, binH)),
	}
	l.Bins = make([]Bin, 0, l.NX*l.NY)
	for y := 0; y < l.NY; y++ {
		for x := 0; x < l.NX; x++ {
			r := tbdr.Rect{
				MinX: uint32(x) * binW,
				MinY: uint32(y) * binH,
				MaxX: min(uint32(x+1)*binW, width),
				MaxY: min(uint32(y+1)*binH, height),
			}
			l.Bins = append(l.Bins, Bin{X: x, Y: y, Rect: r})
		}
	}
	return l
}

// BytesPerPixel returns the tile memory bytes one pixel of fb occupies over
// all attachments and samples.
func BytesPerPixel(fb *tbdr.Framebuffer) int {
	bits := 0
	for _, c := range fb.Colors {
		if c != nil {
			bits += blockBits(c)
		}
	}
	if fb.DepthStencil != nil {
		bits += blockBits(fb.DepthStencil)
	}
	return (bits + 7) / 8 * int(max(fb.Samples, 1))
}

func blockBits(r *tbdr.Resource) int {
	d := format.Describe(r.Format())
	if d == nil {
		return 0
	}
	return d.BlockBits / (d.BlockWidth * d.BlockHeight)
}

// ForFramebuffer computes the layout of fb with the device configuration.
func ForFramebuffer(fb *tbdr.Framebuffer, cfg tbdr.Config) (*Layout, error) {
	return Compute(fb.Width, fb.Height, BytesPerPixel(fb), cfg.GmemSize, Options{
		AlignW: cfg.BinAlignW,
		AlignH: cfg.BinAlignH,
	})
}

func divUp(a, b uint32) uint32 { return (a + b - 1) / b }

func alignUp(v, a uint32) uint32 { return divUp(v, a) * a }
