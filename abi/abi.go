// Package abi exposes a session through the flat, integer-only operations a
// wasm host calls. Addresses are handles from a bridge.Arena and lengths are
// byte counts. There is no error channel: failures are logged and turn into
// no-ops or zero results.
package abi

import (
	"sync"

	"dotgrid/bridge"
	"dotgrid/compose"
	"dotgrid/palette"
	"dotgrid/session"
)

// Core owns the memory regions and the sessions of one host.
type Core struct {
	Arena *bridge.Arena
	// Session serves InitCanvas and GenerateImageWithOffset.
	Session *session.Session
	// OneShot serves GenerateImage with a fresh canvas per call.
	OneShot *session.Session

	mu     sync.Mutex
	staged *session.Session
}

// New creates a core whose Session is configured by opts. The OneShot
// session shares every option except persistence.
func New(opts session.Options) *Core {
	oneShot := opts
	oneShot.Persistent = false

	return &Core{
		Arena:   bridge.NewArena(),
		Session: session.New(opts),
		OneShot: session.New(oneShot),
	}
}

// Alloc reserves size bytes and returns their address, 0 on failure.
func (c *Core) Alloc(size uint32) bridge.Handle {
	h, err := c.Arena.Allocate(int(size))
	if err != nil {
		session.Logger().Warn("could not allocate", "size", size, "error", err)
		return 0
	}
	return h
}

// Dealloc releases the region at ptr.
func (c *Core) Dealloc(ptr bridge.Handle, size uint32) {
	if err := c.Arena.Release(ptr, int(size)); err != nil {
		session.Logger().Warn("could not release", "ptr", ptr, "size", size, "error", err)
	}
}

// InitCanvas resets the persistent canvas.
func (c *Core) InitCanvas(width, height uint32) {
	if err := c.Session.Init(int(width), int(height)); err != nil {
		session.Logger().Warn("could not initialize canvas", "width", width, "height", height, "error", err)
	}
}

// GenerateImageWithOffset composes onto the session canvas and stages the
// encoded image.
func (c *Core) GenerateImageWithOffset(gridPtr bridge.Handle, gridLen, gridSize, dotSize uint32, colorsPtr bridge.Handle, colorsLen, offsetX, offsetY uint32) {
	c.generate(c.Session, gridPtr, gridLen, gridSize, dotSize, colorsPtr, colorsLen, 0, 0, offsetX, offsetY)
}

// GenerateImage composes onto a canvas of the given size and stages the
// encoded image.
func (c *Core) GenerateImage(gridPtr bridge.Handle, gridLen, gridSize, dotSize uint32, colorsPtr bridge.Handle, colorsLen, canvasWidth, canvasHeight, offsetX, offsetY uint32) {
	c.generate(c.OneShot, gridPtr, gridLen, gridSize, dotSize, colorsPtr, colorsLen, canvasWidth, canvasHeight, offsetX, offsetY)
}

func (c *Core) generate(s *session.Session, gridPtr bridge.Handle, gridLen, gridSize, dotSize uint32, colorsPtr bridge.Handle, colorsLen, width, height, offsetX, offsetY uint32) {
	logger := session.Logger()

	grid, err := c.Arena.View(gridPtr, int(gridLen))
	if err != nil {
		logger.Warn("invalid grid buffer", "ptr", gridPtr, "len", gridLen, "error", err)
		return
	}
	colors, err := c.Arena.View(colorsPtr, int(colorsLen))
	if err != nil {
		logger.Warn("invalid palette buffer", "ptr", colorsPtr, "len", colorsLen, "error", err)
		return
	}

	_, err = s.Composite(session.Composite{
		Request: compose.Request{
			Grid:     grid,
			GridSize: int(gridSize),
			DotSize:  int(dotSize),
			// offsets travel as two's complement so hosts can place dots
			// partly off the top-left edge
			OffsetX: int(int32(offsetX)),
			OffsetY: int(int32(offsetY)),
			Palette: palette.Palette(colors),
		},
		Width:  int(width),
		Height: int(height),
	})
	if err != nil {
		logger.Warn("could not generate image", "error", err)
		return
	}

	c.mu.Lock()
	c.staged = s
	c.mu.Unlock()
}

// last returns the session holding the most recent image, nil before the
// first successful composition.
func (c *Core) last() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged
}

// GetImageSize returns the length of the staged image.
func (c *Core) GetImageSize() uint32 {
	s := c.last()
	if s == nil {
		return 0
	}
	return uint32(s.ImageSize())
}

// GetImageData copies at most maxSize bytes of the staged image to ptr and
// returns the number written.
func (c *Core) GetImageData(ptr bridge.Handle, maxSize uint32) uint32 {
	dst, err := c.Arena.View(ptr, int(maxSize))
	if err != nil {
		session.Logger().Warn("invalid image buffer", "ptr", ptr, "max_size", maxSize, "error", err)
		return 0
	}
	s := c.last()
	if s == nil {
		return 0
	}
	return uint32(s.CopyImageOut(dst))
}
