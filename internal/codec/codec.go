// Package codec handles the byte-level interchange points: decoding
// uploaded JPEG/PNG bytes into rasters and re-encoding rasters for display.
package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	apperrors "go-image-lab/internal/errors"
	"go-image-lab/internal/raster"
)

// Format identifies an output encoding
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Decode parses JPEG or PNG bytes into a 3-channel RGB raster.
// Malformed or unsupported input fails with a decode error.
func Decode(data []byte) (*raster.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewDecodeError("unable to decode image bytes", err)
	}
	return raster.FromImage(img), nil
}

// Encode serializes a raster to the requested format for display.
// Grayscale rasters are written as 8-bit gray, color rasters as RGB.
func Encode(m *raster.Image, format Format) ([]byte, error) {
	var img image.Image
	switch m.Channels {
	case raster.GrayChannels:
		img = m.ToGray()
	case raster.ColorChannels:
		img = m.ToNRGBA()
	default:
		return nil, apperrors.NewInternalError(
			fmt.Sprintf("cannot encode raster with %d channels", m.Channels), nil)
	}

	var f imaging.Format
	switch format {
	case FormatPNG:
		f = imaging.PNG
	case FormatJPEG:
		f = imaging.JPEG
	default:
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unsupported output format %q", format), nil)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f, imaging.JPEGQuality(90)); err != nil {
		return nil, apperrors.NewInternalError("image encoding failed", err)
	}
	return buf.Bytes(), nil
}
