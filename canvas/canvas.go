// Package canvas holds the pixel buffer the compositor paints into.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// MaxPixels bounds the size of a single canvas.
const MaxPixels = 1 << 26

// ErrInvalidDimensions is returned when a canvas cannot be allocated for the
// requested width and height.
var ErrInvalidDimensions = errors.New("canvas: invalid dimensions")

// Canvas is a premultiplied 8-bit RGBA pixel buffer. The pixel count always
// equals Width*Height.
type Canvas struct {
	img *image.RGBA
}

// New allocates a canvas. All pixels start fully transparent.
func New(width, height int) (*Canvas, error) {
	if err := CheckDimensions(width, height); err != nil {
		return nil, err
	}
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// CheckDimensions reports whether New would accept width x height.
func CheckDimensions(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxPixels/height {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return nil
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int {
	return c.img.Rect.Dx()
}

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int {
	return c.img.Rect.Dy()
}

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Rect
}

// Image exposes the underlying buffer for encoding.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Pix returns the raw premultiplied pixel bytes, 4 per pixel, row-major.
func (c *Canvas) Pix() []uint8 {
	return c.img.Pix
}

// RGBAAt returns the premultiplied pixel at (x, y), or transparent black
// outside the canvas.
func (c *Canvas) RGBAAt(x, y int) color.RGBA {
	return c.img.RGBAAt(x, y)
}

// Clear overwrites every pixel with col.
func (c *Canvas) Clear(col color.Color) {
	c.FillRect(c.img.Rect, col)
}

// FillRect overwrites the pixels of r with col. The parts of r that fall
// outside the canvas are dropped.
func (c *Canvas) FillRect(r image.Rectangle, col color.Color) {
	r = r.Intersect(c.img.Rect)
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}
