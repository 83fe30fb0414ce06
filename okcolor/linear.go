package okcolor

import (
	"image/color"
	"math"
)

// LinearRGBA is a straight (non-premultiplied) colour with linear-light
// channels in [0, 1].
type LinearRGBA struct {
	R float64
	G float64
	B float64
	A uint16
}

func linearRGBAConvert(c color.Color) color.Color {
	if _, ok := c.(LinearRGBA); ok {
		return c
	}

	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return LinearRGBA{
		R: toLinear(float64(n.R) / 0xffff),
		G: toLinear(float64(n.G) / 0xffff),
		B: toLinear(float64(n.B) / 0xffff),
		A: n.A,
	}
}

// RGBA implements color.Color. Channels outside [0, 1] are clamped.
func (lc LinearRGBA) RGBA() (uint32, uint32, uint32, uint32) {
	n := color.NRGBA64{
		R: uint16(math.Round(fromLinear(clamp01(lc.R)) * 0xffff)),
		G: uint16(math.Round(fromLinear(clamp01(lc.G)) * 0xffff)),
		B: uint16(math.Round(fromLinear(clamp01(lc.B)) * 0xffff)),
		A: lc.A,
	}
	return n.RGBA()
}

func toLinear(x float64) float64 {
	if x >= 0.04045 {
		return math.Pow((x+0.055)/1.055, 2.4)
	}
	return x / 12.92
}

func fromLinear(x float64) float64 {
	if x >= 0.0031308 {
		return math.Pow(x, 1.0/2.4)*1.055 - 0.055
	}
	return x * 12.92
}

func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
