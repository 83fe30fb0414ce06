package palette

import (
	"image/color"
	"math"
)

const (
	pixelPainterRows    = 4
	pixelPainterColumns = 13
)

// PixelPainter returns the 52-colour drawing palette: four greys followed by
// twelve hues (starting at 210 degrees, 30 degrees apart) at four lightness
// steps each. The 13 groups of four are transposed into 4 rows of 13, so
// index 0..12 holds the lightest variant of every group.
func PixelPainter() Palette {
	groups := make([]color.RGBA, 0, pixelPainterRows*pixelPainterColumns)
	for _, g := range []uint8{0xff, 0xcc, 0x88, 0x00} {
		groups = append(groups, color.RGBA{g, g, g, 0xff})
	}

	lightness := []float64{0.8, 0.6, 0.4, 0.2}
	for i := range 12 {
		hue := math.Mod(210+float64(i)*30, 360)
		for _, l := range lightness {
			groups = append(groups, hsl(hue, 1, l))
		}
	}

	p := make(Palette, 0, len(groups)*3)
	for row := range pixelPainterRows {
		for col := range pixelPainterColumns {
			c := groups[col*pixelPainterRows+row]
			p = append(p, c.R, c.G, c.B)
		}
	}
	return p
}

// hsl converts hue in degrees, saturation and lightness in [0, 1] to an
// opaque colour, rounding each channel to the nearest integer.
func hsl(h, s, l float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}

	c := (1 - math.Abs(2*l-1)) * s
	hh := h / 60
	x := c * (1 - math.Abs(math.Mod(hh, 2)-1))

	var r, g, b float64
	switch {
	case hh < 1:
		r, g, b = c, x, 0
	case hh < 2:
		r, g, b = x, c, 0
	case hh < 3:
		r, g, b = 0, c, x
	case hh < 4:
		r, g, b = 0, x, c
	case hh < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	m := l - c/2
	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 0xff,
	}
}

// BlackWhite is a two-entry palette, white first so that an empty grid is
// blank.
func BlackWhite() Palette {
	return Palette{0xff, 0xff, 0xff, 0x00, 0x00, 0x00}
}

// Gray16 is a 16-step ramp from white to black.
func Gray16() Palette {
	p := make(Palette, 0, 16*3)
	for i := range 16 {
		v := uint8(0xff - i*0x11)
		p = append(p, v, v, v)
	}
	return p
}

// VGA16 is the default 16-colour text-mode palette.
func VGA16() Palette {
	return Palette{
		0x00, 0x00, 0x00,
		0x00, 0x00, 0xaa,
		0x00, 0xaa, 0x00,
		0x00, 0xaa, 0xaa,
		0xaa, 0x00, 0x00,
		0xaa, 0x00, 0xaa,
		0xaa, 0x55, 0x00,
		0xaa, 0xaa, 0xaa,
		0x55, 0x55, 0x55,
		0x55, 0x55, 0xff,
		0x55, 0xff, 0x55,
		0x55, 0xff, 0xff,
		0xff, 0x55, 0x55,
		0xff, 0x55, 0xff,
		0xff, 0xff, 0x55,
		0xff, 0xff, 0xff,
	}
}
