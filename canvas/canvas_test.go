package canvas

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestNewInvalidDimensions(t *testing.T) {
	for _, tc := range []struct{ w, h int }{
		{0, 10}, {10, 0}, {-1, 5}, {MaxPixels, 2},
	} {
		if _, err := New(tc.w, tc.h); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("New(%d, %d) error = %v, want ErrInvalidDimensions", tc.w, tc.h, err)
		}
	}
}

func TestNewPixelCount(t *testing.T) {
	c, err := New(7, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := len(c.Pix()); got != 7*3*4 {
		t.Errorf("len(Pix) = %d, want %d", got, 7*3*4)
	}
	if c.Width() != 7 || c.Height() != 3 {
		t.Errorf("size = %dx%d, want 7x3", c.Width(), c.Height())
	}
}

func TestFillRectClips(t *testing.T) {
	c, _ := New(10, 10)
	red := color.RGBA{R: 255, A: 255}

	c.FillRect(image.Rect(8, 8, 12, 12), red)

	for y := range 10 {
		for x := range 10 {
			want := color.RGBA{}
			if x >= 8 && y >= 8 {
				want = red
			}
			if got := c.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestFillRectOutside(t *testing.T) {
	c, _ := New(4, 4)
	c.FillRect(image.Rect(-10, -10, -1, -1), color.White)
	c.FillRect(image.Rect(4, 0, 9, 4), color.White)

	for i, v := range c.Pix() {
		if v != 0 {
			t.Fatalf("byte %d = %d, want untouched canvas", i, v)
		}
	}
}

func TestClearStoresPremultiplied(t *testing.T) {
	c, _ := New(2, 2)
	c.Clear(color.NRGBA{R: 255, A: 128})

	if got, want := c.RGBAAt(1, 1), (color.RGBA{R: 128, A: 128}); got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}

func TestPersistentState(t *testing.T) {
	s := &Persistent{Background: color.White}

	if _, err := s.Acquire(1, 1); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Acquire before Init error = %v, want ErrNotInitialized", err)
	}

	if err := s.Init(3, 2); err != nil {
		t.Fatalf("Init: %v", err)
	}
	a, _ := s.Acquire(100, 100)
	b, _ := s.Acquire(1, 1)
	if a != b {
		t.Error("persistent state returned different canvases")
	}
	if a.Width() != 3 || a.Height() != 2 {
		t.Errorf("size = %dx%d, want 3x2", a.Width(), a.Height())
	}
	if got := a.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("background = %v, want opaque white", got)
	}

	if err := s.Init(0, 0); err == nil {
		t.Error("Init(0, 0) succeeded")
	}
	if s.Current() != a {
		t.Error("failed Init replaced the live canvas")
	}
}

func TestOneShotState(t *testing.T) {
	s := NewState(false, nil)

	a, err := s.Acquire(2, 2)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	a.Clear(color.Black)

	b, _ := s.Acquire(2, 2)
	if a == b {
		t.Fatal("one-shot state reused a canvas")
	}
	if got := b.RGBAAt(0, 0); got != (color.RGBA{}) {
		t.Errorf("fresh canvas pixel = %v, want transparent", got)
	}
}
