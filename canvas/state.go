package canvas

import (
	"errors"
	"image/color"
)

// ErrNotInitialized is returned by a persistent State before Init.
var ErrNotInitialized = errors.New("canvas: not initialized")

// State decides which canvas a composition paints into.
type State interface {
	// Acquire returns the canvas for the next composition. Persistent
	// states ignore the dimensions.
	Acquire(width, height int) (*Canvas, error)
}

// NewState returns a Persistent state when persistent is set and a OneShot
// state otherwise.
func NewState(persistent bool, background color.Color) State {
	if persistent {
		return &Persistent{Background: background}
	}
	return &OneShot{Background: background}
}

// Persistent keeps one canvas across compositions until the next Init.
// It is not safe for concurrent use.
type Persistent struct {
	Background color.Color

	cur *Canvas
}

// Init replaces the current canvas with a new one cleared to Background. On
// failure the previous canvas stays in place.
func (p *Persistent) Init(width, height int) error {
	c, err := New(width, height)
	if err != nil {
		return err
	}
	c.Clear(background(p.Background))
	p.cur = c
	return nil
}

func (p *Persistent) Acquire(int, int) (*Canvas, error) {
	if p.cur == nil {
		return nil, ErrNotInitialized
	}
	return p.cur, nil
}

// Current returns the live canvas, or nil before Init.
func (p *Persistent) Current() *Canvas {
	return p.cur
}

// OneShot creates a fresh canvas on every Acquire.
type OneShot struct {
	Background color.Color
}

func (o *OneShot) Acquire(width, height int) (*Canvas, error) {
	c, err := New(width, height)
	if err != nil {
		return nil, err
	}
	c.Clear(background(o.Background))
	return c, nil
}

func background(c color.Color) color.Color {
	if c == nil {
		return color.Transparent
	}
	return c
}
