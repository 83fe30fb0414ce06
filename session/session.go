// Package session ties canvas state, compositor, encoder and staging
// together into the unit a host drives.
//
// A Session is configured once through Options and then answers three kinds
// of calls: Init (persistent sessions only), Composite, and the image
// retrieval pair ImageSize / CopyImageOut. Every composition is encoded
// immediately, so retrieval never re-encodes. A failed call leaves the
// previously staged image in place.
package session

import (
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"sync"

	"dotgrid/canvas"
	"dotgrid/codec"
	"dotgrid/compose"
	"dotgrid/staging"
)

// ErrNotPersistent is returned by Init on a one-shot session.
var ErrNotPersistent = errors.New("session: init on a one-shot session")

// Dimensions selects where the canvas size of a composition comes from.
// Explicit sizes are taken from each Composite call; Derived uses
// GridSize*DotSize in both directions.
type Dimensions struct {
	Derived bool
}

type Options struct {
	// Persistent keeps one canvas across compositions until the next Init.
	// Otherwise every composition starts from a fresh canvas.
	Persistent bool
	// Background fills new canvases. Nil means fully transparent.
	Background color.Color
	Dimensions Dimensions
	// Workers > 1 paints grid rows concurrently.
	Workers     int
	Compression png.CompressionLevel
}

// Composite is one composition call. Width and Height are ignored by
// persistent sessions and when dimensions are derived.
type Composite struct {
	compose.Request

	Width  int
	Height int
}

// Validate reports whether a one-shot session with explicit dimensions
// would accept c.
func (c Composite) Validate() error {
	if err := c.Request.Validate(); err != nil {
		return err
	}
	return canvas.CheckDimensions(c.Width, c.Height)
}

// Session is safe for concurrent use; calls are serialized.
type Session struct {
	mu sync.Mutex

	opts       Options
	state      canvas.State
	persistent *canvas.Persistent
	compositor compose.Compositor
	encoder    codec.Encoder
	out        staging.Slot
}

func New(opts Options) *Session {
	s := &Session{
		opts:       opts,
		state:      canvas.NewState(opts.Persistent, opts.Background),
		compositor: compose.Compositor{Workers: opts.Workers},
		encoder:    codec.Encoder{CompressionLevel: opts.Compression},
	}
	s.persistent, _ = s.state.(*canvas.Persistent)
	return s
}

// Init resets the persistent canvas to width x height, cleared to the
// background. On failure the previous canvas is kept.
func (s *Session) Init(width, height int) error {
	if s.persistent == nil {
		return ErrNotPersistent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistent.Init(width, height); err != nil {
		return fmt.Errorf("could not initialize canvas: %w", err)
	}
	Logger().Debug("canvas initialized", "width", width, "height", height)
	return nil
}

// Composite paints req, encodes the canvas and stages the result.
func (s *Session) Composite(req Composite) (compose.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := req.Request.Validate(); err != nil {
		return compose.Stats{}, err
	}

	width, height := req.Width, req.Height
	if s.opts.Dimensions.Derived {
		width, height = compose.DerivedSize(req.GridSize, req.DotSize)
	}

	c, err := s.acquire(width, height)
	if err != nil {
		return compose.Stats{}, fmt.Errorf("could not acquire canvas: %w", err)
	}

	st, err := s.compositor.Composite(c, req.Request)
	if err != nil {
		return st, err
	}

	data, err := s.encoder.Encode(c)
	if err != nil {
		return st, err
	}
	s.out.Store(data)

	Logger().Debug("composited",
		"width", c.Width(), "height", c.Height(),
		"cells", st.Cells, "filled", st.Filled, "skipped", st.Skipped, "clipped", st.Clipped,
		"bytes", len(data))
	return st, nil
}

func (s *Session) acquire(width, height int) (*canvas.Canvas, error) {
	c, err := s.state.Acquire(width, height)
	if errors.Is(err, canvas.ErrNotInitialized) && s.opts.Dimensions.Derived {
		if err = s.persistent.Init(width, height); err != nil {
			return nil, err
		}
		return s.persistent.Current(), nil
	}
	return c, err
}

// ImageSize returns the length of the staged image, 0 before the first
// successful composition.
func (s *Session) ImageSize() int {
	return s.out.Size()
}

// CopyImageOut copies at most len(dst) bytes of the staged image into dst
// and returns how many were written.
func (s *Session) CopyImageOut(dst []byte) int {
	return s.out.CopyTo(dst)
}

// Image returns the staged image. It must not be modified.
func (s *Session) Image() []byte {
	return s.out.Bytes()
}
