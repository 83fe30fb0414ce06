// Package codec encodes canvases into PNG files.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"dotgrid/canvas"
)

// ErrInconsistentCanvas is returned when the pixel buffer does not match the
// canvas dimensions.
var ErrInconsistentCanvas = errors.New("codec: inconsistent canvas")

type Encoder struct {
	CompressionLevel png.CompressionLevel
}

// Encode returns c as a PNG file. Premultiplied pixels are written as
// straight RGBA.
func (e Encoder) Encode(c *canvas.Canvas) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil canvas", ErrInconsistentCanvas)
	}
	if n := len(c.Pix()); n != 4*c.Width()*c.Height() {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d pixels", ErrInconsistentCanvas, n, c.Width(), c.Height())
	}

	var buf bytes.Buffer
	enc := png.Encoder{
		CompressionLevel: e.CompressionLevel,
		BufferPool:       pngPool,
	}
	if err := enc.Encode(&buf, c.Image()); err != nil {
		return nil, fmt.Errorf("could not encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a PNG file.
func Decode(b []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("could not decode PNG: %w", err)
	}
	return img, nil
}

type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
