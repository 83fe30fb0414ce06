// Package trace approximates a picture as a grid of palette indexes, the
// inverse of rendering.
package trace

import (
	"image"
	"log/slog"

	"golang.org/x/image/draw"

	"dotgrid/palette"
)

type Options struct {
	GridSize int
	// Crop uses the largest centered square of the picture instead of
	// fitting all of it.
	Crop bool
	// Dither spreads quantization error with Floyd-Steinberg. Matching is
	// then done in sRGB instead of OKLab.
	Dither bool
}

type Tracer struct {
	opts    Options
	pal     palette.Palette
	matcher *palette.Matcher
}

// NewTracer prepares a tracer for pal. Grid cells are bytes, so only the
// first 256 entries are used.
func NewTracer(pal palette.Palette, opts Options) *Tracer {
	if pal.Len() > 256 {
		pal = pal[:256*3]
	}
	return &Tracer{
		opts:    opts,
		pal:     pal,
		matcher: palette.NewMatcher(pal),
	}
}

// Trace downscales img to a GridSize x GridSize grid and maps every cell to
// the closest palette entry. Cells that are mostly transparent map to
// index 0.
func (t *Tracer) Trace(logger *slog.Logger, img image.Image) []byte {
	size := t.opts.GridSize
	if size <= 0 || t.pal.Len() == 0 {
		return nil
	}
	small := resize(logger, img, size, t.opts.Crop)

	cells := make([]byte, size*size)
	if t.opts.Dither {
		dr := small.Bounds()
		dest := image.NewPaletted(dr, t.pal.Colors())
		draw.FloydSteinberg.Draw(dest, dr, small, dr.Min)
		for i := range cells {
			if small.Pix[i*8+6] >= 0x80 {
				cells[i] = dest.Pix[i]
			}
		}
	} else {
		for y := range size {
			for x := range size {
				c := small.RGBA64At(x, y)
				if c.A < 0x8000 {
					continue
				}
				cells[y*size+x] = byte(t.matcher.Index(c))
			}
		}
	}

	logger.Debug("traced", "cells", len(cells), "colors", t.matcher.Len(), "dither", t.opts.Dither)
	return cells
}
