package abi

import (
	"bytes"
	"image/color"
	"testing"

	"dotgrid/bridge"
	"dotgrid/codec"
	"dotgrid/session"
)

// write allocates a region and fills it with data, the way a host does.
func write(t *testing.T, c *Core, data []byte) bridge.Handle {
	t.Helper()
	h := c.Alloc(uint32(len(data)))
	if h == 0 {
		t.Fatalf("Alloc(%d) failed", len(data))
	}
	buf, err := c.Arena.View(h, len(data))
	if err != nil {
		t.Fatal(err)
	}
	copy(buf, data)
	return h
}

func readImage(t *testing.T, c *Core) []byte {
	t.Helper()
	size := c.GetImageSize()
	if size == 0 {
		t.Fatal("no image staged")
	}
	out := c.Alloc(size)
	defer c.Dealloc(out, size)

	if n := c.GetImageData(out, size); n != size {
		t.Fatalf("GetImageData = %d, want %d", n, size)
	}
	buf, err := c.Arena.View(out, int(size))
	if err != nil {
		t.Fatal(err)
	}
	return bytes.Clone(buf)
}

func TestStatelessProtocol(t *testing.T) {
	c := New(session.Options{})

	grid := []byte{0, 1, 1, 0}
	colors := []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0xff}
	gp := write(t, c, grid)
	cp := write(t, c, colors)

	c.GenerateImage(gp, 4, 2, 3, cp, 6, 8, 8, 1, 1)
	c.Dealloc(gp, 4)
	c.Dealloc(cp, 6)

	img, err := codec.Decode(readImage(t, c))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("image is %v, want 8x8", b)
	}

	for _, tc := range []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, color.NRGBA{}},
		{1, 1, color.NRGBA{0xff, 0, 0, 0xff}},
		{4, 1, color.NRGBA{0, 0, 0xff, 0xff}},
		{1, 4, color.NRGBA{0, 0, 0xff, 0xff}},
		{6, 6, color.NRGBA{0xff, 0, 0, 0xff}},
		{7, 7, color.NRGBA{}},
	} {
		if got := color.NRGBAModel.Convert(img.At(tc.x, tc.y)); got != tc.want {
			t.Errorf("pixel (%d, %d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}

	if c.Arena.Live() != 0 {
		t.Errorf("%d regions leaked", c.Arena.Live())
	}
}

func TestSessionProtocol(t *testing.T) {
	c := New(session.Options{Persistent: true, Background: color.White})

	gp := write(t, c, []byte{0})
	cp := write(t, c, []byte{0x00, 0x80, 0x00})

	// nothing is staged before the canvas exists
	c.GenerateImageWithOffset(gp, 1, 1, 2, cp, 3, 0, 0)
	if c.GetImageSize() != 0 {
		t.Fatal("image staged without an initialized canvas")
	}

	c.InitCanvas(4, 2)
	c.GenerateImageWithOffset(gp, 1, 1, 2, cp, 3, 2, 0)

	img, err := codec.Decode(readImage(t, c))
	if err != nil {
		t.Fatal(err)
	}
	if got := color.NRGBAModel.Convert(img.At(0, 0)); got != (color.NRGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("background pixel = %v", got)
	}
	if got := color.NRGBAModel.Convert(img.At(3, 1)); got != (color.NRGBA{0x00, 0x80, 0x00, 0xff}) {
		t.Errorf("dot pixel = %v", got)
	}
}

func TestNegativeOffsets(t *testing.T) {
	c := New(session.Options{})
	gp := write(t, c, []byte{0})
	cp := write(t, c, []byte{0xff, 0xff, 0xff})

	minusOne := uint32(0xffffffff)
	c.GenerateImage(gp, 1, 1, 2, cp, 3, 2, 2, minusOne, minusOne)

	img, err := codec.Decode(readImage(t, c))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a == 0 {
		t.Error("dot at (-1, -1) did not reach (0, 0)")
	}
	if _, _, _, a := img.At(1, 1).RGBA(); a != 0 {
		t.Error("dot at (-1, -1) reached (1, 1)")
	}
}

func TestTruncatedCopyOut(t *testing.T) {
	c := New(session.Options{})
	gp := write(t, c, []byte{0})
	cp := write(t, c, []byte{0xff, 0x00, 0x00})
	c.GenerateImage(gp, 1, 1, 4, cp, 3, 16, 16, 0, 0)

	full := readImage(t, c)
	half := uint32(len(full) / 2)

	out := c.Alloc(half)
	if n := c.GetImageData(out, half); n != half {
		t.Errorf("GetImageData(%d) = %d", half, n)
	}
	buf, _ := c.Arena.View(out, int(half))
	if !bytes.Equal(buf, full[:half]) {
		t.Error("truncated copy is not a prefix of the image")
	}
}

func TestBoundaryViolationsAreRejected(t *testing.T) {
	c := New(session.Options{})
	gp := write(t, c, []byte{0, 0, 0, 0})
	cp := write(t, c, []byte{0xff, 0x00, 0x00})

	// grid length past the end of its region
	c.GenerateImage(gp, 5, 2, 1, cp, 3, 4, 4, 0, 0)
	// unknown palette handle
	c.GenerateImage(gp, 4, 2, 1, cp+1, 3, 4, 4, 0, 0)
	if c.GetImageSize() != 0 {
		t.Fatal("image staged from an invalid buffer")
	}

	c.GenerateImage(gp, 4, 2, 1, cp, 3, 4, 4, 0, 0)
	size := c.GetImageSize()
	if size == 0 {
		t.Fatal("valid call staged nothing")
	}

	small := c.Alloc(4)
	if n := c.GetImageData(small, size); n != 0 {
		t.Errorf("GetImageData past the end of the region wrote %d bytes", n)
	}

	c.Dealloc(gp, 4)
	c.Dealloc(gp, 4) // double release is logged, not fatal
	if _, ok := c.Arena.Size(gp); ok {
		t.Error("released region still live")
	}
}

func TestImageQueriesFollowLastComposition(t *testing.T) {
	c := New(session.Options{Persistent: true})
	gp := write(t, c, []byte{0})
	cp := write(t, c, []byte{0xff, 0x00, 0x00})

	c.GenerateImage(gp, 1, 1, 1, cp, 3, 5, 3, 0, 0)
	// fails: the persistent canvas was never initialized
	c.GenerateImageWithOffset(gp, 1, 1, 1, cp, 3, 0, 0)

	img, err := codec.Decode(readImage(t, c))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 3 {
		t.Fatalf("image is %v, want the 5x3 one-shot image", b)
	}

	c.InitCanvas(2, 2)
	c.GenerateImageWithOffset(gp, 1, 1, 1, cp, 3, 0, 0)
	if img, err = codec.Decode(readImage(t, c)); err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("image is %v, want the 2x2 session image", b)
	}
}
