// Package palette provides the colour tables grids index into.
//
// A Palette is stored exactly as the compositor reads it: a flat run of RGB
// triples with no alpha. Entry i occupies bytes [3i, 3i+3).
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownPalette is returned by Load for names that are neither builtin
// nor an existing file.
var ErrUnknownPalette = errors.New("palette: unknown palette")

type Palette []byte

// Len returns the number of complete RGB entries.
func (p Palette) Len() int {
	return len(p) / 3
}

// At returns entry i as an opaque colour. The second result is false when
// the entry lies outside the palette.
func (p Palette) At(i int) (color.RGBA, bool) {
	off := i * 3
	if i < 0 || off+2 >= len(p) {
		return color.RGBA{}, false
	}
	return color.RGBA{R: p[off], G: p[off+1], B: p[off+2], A: 0xff}, true
}

// FromColors flattens pal. Alpha is dropped after un-premultiplying.
func FromColors(pal color.Palette) Palette {
	p := make(Palette, 0, len(pal)*3)
	for _, c := range pal {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		p = append(p, n.R, n.G, n.B)
	}
	return p
}

// Colors expands the palette into a color.Palette of opaque entries.
func (p Palette) Colors() color.Palette {
	pal := make(color.Palette, p.Len())
	for i := range pal {
		pal[i], _ = p.At(i)
	}
	return pal
}

var builtins = map[string]func() Palette{
	"pixelpainter": PixelPainter,
	"bw":           BlackWhite,
	"gray16":       Gray16,
	"vga16":        VGA16,
}

// Names lists the builtin palettes.
func Names() []string {
	return []string{"pixelpainter", "bw", "gray16", "vga16"}
}

// Load resolves a builtin palette by name, or reads a RIFF PAL file. All
// palettes of a multi-palette file are concatenated.
func Load(name string) (Palette, error) {
	if gen, ok := builtins[strings.ToLower(name)]; ok {
		return gen(), nil
	}

	if !strings.EqualFold(filepath.Ext(name), ".pal") {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open palette file %q: %w", name, err)
	}
	defer f.Close()

	pals, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("could not load palette file %q: %w", name, err)
	}

	var p Palette
	for _, pal := range pals {
		p = append(p, FromColors(pal)...)
	}
	return p, nil
}
