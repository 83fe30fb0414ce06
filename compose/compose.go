// Package compose paints a grid of palette indexes onto a canvas as square
// dots.
package compose

import (
	"errors"
	"fmt"
	"image"

	"dotgrid/canvas"
	"dotgrid/palette"
	"dotgrid/parallel"
)

var (
	// ErrShortGrid is returned when the grid holds fewer than GridSize²
	// cells.
	ErrShortGrid = errors.New("compose: grid shorter than grid size squared")

	// ErrInvalidRequest is returned for negative sizes.
	ErrInvalidRequest = errors.New("compose: invalid request")
)

// Request describes one composition. Cell (i, j) of the grid, column i and
// row j, is Grid[j*GridSize+i] and covers the DotSize square whose top-left
// corner is (OffsetX+i*DotSize, OffsetY+j*DotSize).
type Request struct {
	Grid     []byte
	GridSize int
	DotSize  int
	OffsetX  int
	OffsetY  int
	Palette  palette.Palette
}

// Stats counts what happened to the cells of a request.
type Stats struct {
	Cells   int // cells visited
	Filled  int // cells that painted at least one pixel
	Skipped int // cells whose index has no palette entry
	Clipped int // cells with at least one pixel outside the canvas
}

func (s *Stats) add(o Stats) {
	s.Cells += o.Cells
	s.Filled += o.Filled
	s.Skipped += o.Skipped
	s.Clipped += o.Clipped
}

// Compositor paints requests. With Workers > 1 grid rows are painted
// concurrently; each row owns a disjoint horizontal band of the canvas.
type Compositor struct {
	Workers int
}

// Composite paints req onto dst, overwriting the pixels each visible cell
// covers. Cells are visited row by row, so where dots overlap the later cell
// wins.
func (c Compositor) Composite(dst *canvas.Canvas, req Request) (Stats, error) {
	if err := req.Validate(); err != nil {
		return Stats{}, err
	}

	if c.Workers <= 1 || req.GridSize < 2 || req.DotSize == 0 {
		var st Stats
		for j := range req.GridSize {
			st.add(req.paintRow(dst, j))
		}
		return st, nil
	}

	rows := make([]Stats, req.GridSize)
	pool := parallel.Start(min(c.Workers, req.GridSize))
	for j := range req.GridSize {
		pool.Do(func() {
			rows[j] = req.paintRow(dst, j)
		})
	}
	pool.Wait(true)

	var st Stats
	for _, r := range rows {
		st.add(r)
	}
	return st, nil
}

// Validate reports whether Composite would accept r.
func (r *Request) Validate() error {
	switch {
	case r.GridSize < 0:
		return fmt.Errorf("%w: grid size %d", ErrInvalidRequest, r.GridSize)
	case r.DotSize < 0:
		return fmt.Errorf("%w: dot size %d", ErrInvalidRequest, r.DotSize)
	case r.GridSize > 0 && len(r.Grid)/r.GridSize < r.GridSize:
		return fmt.Errorf("%w: %d cells for a %dx%[3]d grid", ErrShortGrid, len(r.Grid), r.GridSize)
	}
	return nil
}

func (r *Request) paintRow(dst *canvas.Canvas, j int) Stats {
	var st Stats
	bounds := dst.Bounds()
	row := r.Grid[j*r.GridSize : (j+1)*r.GridSize]

	for i, idx := range row {
		st.Cells++

		col, ok := r.Palette.At(int(idx))
		if !ok {
			st.Skipped++
			continue
		}
		if r.DotSize == 0 {
			continue
		}

		x := r.OffsetX + i*r.DotSize
		y := r.OffsetY + j*r.DotSize
		dot := image.Rect(x, y, x+r.DotSize, y+r.DotSize)

		visible := dot.Intersect(bounds)
		if visible != dot {
			st.Clipped++
		}
		if visible.Empty() {
			continue
		}

		dst.FillRect(visible, col)
		st.Filled++
	}
	return st
}

// DerivedSize is the canvas size that fits a grid drawn without offsets.
func DerivedSize(gridSize, dotSize int) (width, height int) {
	return gridSize * dotSize, gridSize * dotSize
}
