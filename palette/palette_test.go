package palette

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestPixelPainterLayout(t *testing.T) {
	p := PixelPainter()
	if p.Len() != 52 || len(p) != 156 {
		t.Fatalf("Len = %d (%d bytes), want 52 (156 bytes)", p.Len(), len(p))
	}

	for _, tc := range []struct {
		index int
		want  color.RGBA
	}{
		{0, color.RGBA{0xff, 0xff, 0xff, 0xff}},  // white, first grey
		{13, color.RGBA{0xcc, 0xcc, 0xcc, 0xff}}, // second grey opens row 1
		{26, color.RGBA{0x88, 0x88, 0x88, 0xff}},
		{39, color.RGBA{0x00, 0x00, 0x00, 0xff}},
		{1, color.RGBA{153, 204, 255, 0xff}}, // hue 210, lightness 0.8
		{14, color.RGBA{51, 153, 255, 0xff}}, // hue 210, lightness 0.6
		{4, color.RGBA{255, 153, 255, 0xff}}, // hue 300, lightness 0.8
		{6, color.RGBA{255, 153, 153, 0xff}}, // hue 0, lightness 0.8
	} {
		got, ok := p.At(tc.index)
		if !ok || got != tc.want {
			t.Errorf("At(%d) = %v, %v; want %v", tc.index, got, ok, tc.want)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	p := Palette{1, 2, 3, 4, 5}
	if _, ok := p.At(1); ok {
		t.Error("At(1) resolved a partial entry")
	}
	if _, ok := p.At(-1); ok {
		t.Error("At(-1) resolved")
	}
	if c, ok := p.At(0); !ok || c != (color.RGBA{1, 2, 3, 0xff}) {
		t.Errorf("At(0) = %v, %v", c, ok)
	}
}

func TestLoadBuiltins(t *testing.T) {
	for _, name := range Names() {
		p, err := Load(name)
		if err != nil {
			t.Errorf("Load(%q): %v", name, err)
			continue
		}
		if p.Len() < 2 {
			t.Errorf("Load(%q) returned %d colors", name, p.Len())
		}
	}

	if _, err := Load("nope"); !errors.Is(err, ErrUnknownPalette) {
		t.Errorf("Load(nope) error = %v, want ErrUnknownPalette", err)
	}
}

func TestPALFile(t *testing.T) {
	pals := []color.Palette{
		VGA16().Colors(),
		{color.RGBA{1, 2, 3, 0xff}},
	}

	var buf bytes.Buffer
	n, err := WriteTo(&buf, pals)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}

	path := filepath.Join(t.TempDir(), "test.pal")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := append(VGA16(), 1, 2, 3)
	if !bytes.Equal(p, want) {
		t.Errorf("loaded palette = %v, want %v", p, want)
	}
}

func TestReadFromRejectsOtherForms(t *testing.T) {
	data := []byte("RIFF\x04\x00\x00\x00WAVE")
	if _, err := ReadFrom(bytes.NewReader(data)); err == nil {
		t.Error("ReadFrom accepted a WAVE stream")
	}
}

func TestParseHex(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want color.NRGBA
	}{
		{"#fff", color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{"#f008", color.NRGBA{0xff, 0x00, 0x00, 0x88}},
		{"#123456", color.NRGBA{0x12, 0x34, 0x56, 0xff}},
		{"12345678", color.NRGBA{0x12, 0x34, 0x56, 0x78}},
		{"#00000000", color.NRGBA{}},
	} {
		got, err := ParseHex(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseHex(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}

	for _, bad := range []string{"", "#12", "#12345", "#ggg"} {
		if _, err := ParseHex(bad); err == nil {
			t.Errorf("ParseHex(%q) succeeded", bad)
		}
	}
}

func TestMatcher(t *testing.T) {
	m := NewMatcher(VGA16())

	if got := m.Index(color.RGBA{0xaa, 0x00, 0x00, 0xff}); got != 4 {
		t.Errorf("exact red matched %d, want 4", got)
	}
	if got := m.Index(color.RGBA{0xf0, 0xf0, 0xf0, 0xff}); got != 15 {
		t.Errorf("near white matched %d, want 15", got)
	}
	if got := m.Index(color.RGBA{0x08, 0x04, 0x02, 0xff}); got != 0 {
		t.Errorf("near black matched %d, want 0", got)
	}
}

func TestCommands(t *testing.T) {
	var out bytes.Buffer
	if err := (&ListCmd{out: &out}).Run(); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("pixelpainter\t52 colors\n")) {
		t.Errorf("list output = %q", out.String())
	}

	path := filepath.Join(t.TempDir(), "vga.pal")
	export := &ExportCmd{Out: path}
	if err := export.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := export.Run(VGA16()); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, VGA16()) {
		t.Errorf("exported palette reloads as %v", got)
	}

	if err := (&ExportCmd{Out: "vga.txt"}).Validate(); err == nil {
		t.Error("Validate accepted a non .pal destination")
	}
}
