package host

import (
	"context"
	"errors"
	"image/color"
	"math"
	"os"
	"testing"

	"dotgrid/canvas"
	"dotgrid/codec"
	"dotgrid/compose"
	"dotgrid/palette"
	"dotgrid/session"
)

// loadCore loads the module named by DOTGRID_WASM, built with
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o dotgrid.wasm ./wasm
func loadCore(t *testing.T) *Module {
	t.Helper()

	path := os.Getenv("DOTGRID_WASM")
	if path == "" {
		t.Skipf("DOTGRID_WASM not set")
	}
	wasm, err := os.ReadFile(path)
	if err != nil {
		t.Skipf("could not read wasm core: %v", err)
	}

	ctx := context.Background()
	m, err := Load(ctx, wasm)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { m.Close(ctx) })
	return m
}

func TestLoadRejectsForeignModule(t *testing.T) {
	empty := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	if _, err := Load(context.Background(), empty); !errors.Is(err, ErrMissingExport) {
		t.Errorf("Load(empty module) error = %v, want ErrMissingExport", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(context.Background(), []byte("not wasm")); err == nil {
		t.Error("Load accepted garbage")
	}
}

func TestRenderMatchesNative(t *testing.T) {
	m := loadCore(t)

	grid := make([]byte, 16*16)
	for i := range grid {
		grid[i] = byte(i % 52)
	}
	job := session.Composite{
		Request: compose.Request{
			Grid:     grid,
			GridSize: 16,
			DotSize:  8,
			OffsetX:  86,
			OffsetY:  14,
			Palette:  palette.PixelPainter(),
		},
		Width:  300,
		Height: 157,
	}

	got, err := m.Render(context.Background(), job)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	native := session.New(session.Options{})
	if _, err := native.Composite(job); err != nil {
		t.Fatal(err)
	}

	gotImg, err := codec.Decode(got)
	if err != nil {
		t.Fatal(err)
	}
	wantImg, err := codec.Decode(native.Image())
	if err != nil {
		t.Fatal(err)
	}
	if gotImg.Bounds() != wantImg.Bounds() {
		t.Fatalf("bounds = %v, want %v", gotImg.Bounds(), wantImg.Bounds())
	}
	b := wantImg.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.NRGBAModel.Convert(gotImg.At(x, y))
			w := color.NRGBAModel.Convert(wantImg.At(x, y))
			if g != w {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

func TestCheckJob(t *testing.T) {
	valid := session.Composite{
		Request: compose.Request{Grid: []byte{0}, GridSize: 1, DotSize: 1, Palette: palette.BlackWhite()},
		Width:   2,
		Height:  2,
	}
	if err := checkJob(valid); err != nil {
		t.Fatalf("checkJob(valid) = %v", err)
	}

	for _, tc := range []struct {
		name   string
		modify func(*session.Composite)
		want   error
	}{
		{"zero canvas", func(j *session.Composite) { j.Width, j.Height = 0, 0 }, canvas.ErrInvalidDimensions},
		{"short grid", func(j *session.Composite) { j.GridSize = 2 }, compose.ErrShortGrid},
		{"offset beyond int32", func(j *session.Composite) { j.OffsetX = math.MaxInt32 + 1 }, ErrUnsupportedJob},
	} {
		t.Run(tc.name, func(t *testing.T) {
			job := valid
			tc.modify(&job)
			if err := checkJob(job); !errors.Is(err, tc.want) {
				t.Errorf("checkJob = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRejectedJobDoesNotReturnPreviousImage(t *testing.T) {
	m := loadCore(t)
	ctx := context.Background()

	first := session.Composite{
		Request: compose.Request{Grid: []byte{1}, GridSize: 1, DotSize: 4, Palette: palette.BlackWhite()},
		Width:   4,
		Height:  4,
	}
	if _, err := m.Render(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := first
	second.Width, second.Height = 0, 0
	data, err := m.Render(ctx, second)
	if !errors.Is(err, canvas.ErrInvalidDimensions) {
		t.Errorf("Render(zero canvas) = %d bytes, error %v; want ErrInvalidDimensions", len(data), err)
	}
}
