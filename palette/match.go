package palette

import (
	"image/color"
	"math"

	"dotgrid/okcolor"
)

// Matcher finds the palette entry perceptually closest to a colour.
type Matcher struct {
	entries []okcolor.Lab
}

// NewMatcher precomputes the OKLab coordinates of every entry of p.
func NewMatcher(p Palette) *Matcher {
	m := &Matcher{entries: make([]okcolor.Lab, p.Len())}
	for i := range m.entries {
		c, _ := p.At(i)
		m.entries[i] = okcolor.LabModel.Convert(c).(okcolor.Lab)
	}
	return m
}

// Len returns the number of entries the matcher chooses from.
func (m *Matcher) Len() int {
	return len(m.entries)
}

// Index returns the closest entry. The first of several equally close entries
// wins; an empty matcher returns 0.
func (m *Matcher) Index(c color.Color) int {
	lc := okcolor.LabModel.Convert(c).(okcolor.Lab)
	lc.Alpha = 0xffff

	ret, bestSum := 0, math.MaxFloat64
	for i, v := range m.entries {
		sum := lc.DistanceSq(v)
		if sum < bestSum {
			if sum == 0 {
				return i
			}
			ret, bestSum = i, sum
		}
	}
	return ret
}
