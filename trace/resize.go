package trace

import (
	"image"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

// resize scales img to a size x size square. With crop the largest centered
// square of img is used; otherwise the whole image is fitted inside the
// square and the uncovered border stays transparent.
func resize(logger *slog.Logger, img image.Image, size int, crop bool) *image.RGBA64 {
	srcBounds := img.Bounds()
	srcWidth := float64(srcBounds.Dx())
	srcHeight := float64(srcBounds.Dy())

	destSize := image.Rect(0, 0, size, size)
	destBounds := destSize

	if crop {
		if srcWidth < srcHeight {
			dh := int(math.Round((srcHeight - srcWidth) / 2))
			srcBounds.Min.Y += dh
			srcBounds.Max.Y = srcBounds.Min.Y + srcBounds.Dx()
		} else if srcWidth > srcHeight {
			dw := int(math.Round((srcWidth - srcHeight) / 2))
			srcBounds.Min.X += dw
			srcBounds.Max.X = srcBounds.Min.X + srcBounds.Dy()
		}
	} else {
		if srcWidth < srcHeight {
			dw := float64(size) * srcWidth / srcHeight
			idw := int(math.Round((float64(size) - dw) / 2))
			destBounds.Min.X += idw
			destBounds.Max.X -= idw
		} else if srcWidth > srcHeight {
			dh := float64(size) * srcHeight / srcWidth
			idh := int(math.Round((float64(size) - dh) / 2))
			destBounds.Min.Y += idh
			destBounds.Max.Y -= idh
		}
	}

	logger.Debug("resizing", "from", srcBounds, "to", destBounds)
	dest := image.NewRGBA64(destSize)
	if destBounds.Empty() {
		return dest
	}
	draw.CatmullRom.Scale(dest, destBounds, img, srcBounds, draw.Over, nil)

	return dest
}
