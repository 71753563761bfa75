package codec

import (
	"image"

	"golang.org/x/image/draw"

	"go-image-lab/internal/raster"
)

// Downscale resizes a raster so its width does not exceed maxWidth,
// preserving aspect ratio. Rasters at or below the limit are returned
// unchanged. Used for preview responses; the output is always 3-channel.
func Downscale(m *raster.Image, maxWidth int) *raster.Image {
	if maxWidth <= 0 || m.Width <= maxWidth {
		return m
	}

	height := m.Height * maxWidth / m.Width
	if height < 1 {
		height = 1
	}

	var src image.Image
	if m.Channels == raster.GrayChannels {
		src = m.ToGray()
	} else {
		src = m.ToNRGBA()
	}

	dst := image.NewNRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return raster.FromImage(dst)
}
