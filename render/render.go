// Package render turns share codes into PNG files, natively or through the
// wasm core, and provides the render command.
package render

import (
	"context"
	"errors"
	"fmt"

	"dotgrid/compose"
	"dotgrid/config"
	"dotgrid/palette"
	"dotgrid/session"
	"dotgrid/sharecode"
)

var (
	// ErrGridTooLarge is returned for grids with more cells than the layout has.
	ErrGridTooLarge = errors.New("render: grid larger than layout")
	// ErrUnsupportedLayout is returned when the wasm core cannot render the
	// layout the way the in-process renderer would.
	ErrUnsupportedLayout = errors.New("render: layout not supported by the wasm core")
)

// Engine produces a PNG for one composition.
type Engine interface {
	Render(ctx context.Context, job session.Composite) ([]byte, error)
}

// Native renders in-process with a fresh session per job.
type Native struct {
	Options session.Options
}

func (n Native) Render(_ context.Context, job session.Composite) ([]byte, error) {
	s := session.New(n.Options)
	if n.Options.Persistent && !n.Options.Dimensions.Derived {
		if err := s.Init(job.Width, job.Height); err != nil {
			return nil, err
		}
	}
	if _, err := s.Composite(job); err != nil {
		return nil, err
	}
	return s.Image(), nil
}

// Job lays cells out as configured. Grids shorter than the layout are padded
// with index 0. Derived layouts get a canvas of exactly the grid's extent.
func Job(layout config.LayoutConfig, pal palette.Palette, cells []byte) (session.Composite, error) {
	if layout.Derived {
		layout.CanvasWidth, layout.CanvasHeight = compose.DerivedSize(layout.GridSize, layout.DotSize)
	}
	n := layout.GridSize * layout.GridSize
	if len(cells) > n {
		return session.Composite{}, fmt.Errorf("%w: %d cells for a %dx%[3]d grid", ErrGridTooLarge, len(cells), layout.GridSize)
	}
	grid := make([]byte, n)
	copy(grid, cells)

	ox, oy := layout.Offsets()
	return session.Composite{
		Request: compose.Request{
			Grid:     grid,
			GridSize: layout.GridSize,
			DotSize:  layout.DotSize,
			OffsetX:  ox,
			OffsetY:  oy,
			Palette:  pal,
		},
		Width:  layout.CanvasWidth,
		Height: layout.CanvasHeight,
	}, nil
}

// RenderCode decodes a share code and renders it. The empty code renders a
// grid of index 0.
func RenderCode(ctx context.Context, eng Engine, layout config.LayoutConfig, pal palette.Palette, code string) ([]byte, error) {
	cells, err := sharecode.Decode(code)
	if err != nil {
		return nil, err
	}
	job, err := Job(layout, pal, cells)
	if err != nil {
		return nil, err
	}
	return eng.Render(ctx, job)
}
