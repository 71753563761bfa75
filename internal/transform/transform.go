// Package transform implements the canonical image operations: grayscale
// conversion, fixed-angle rotation, mirroring, grid overlay, crop and
// contour-based region detection. Every function is a single-shot pure
// transform; inputs are never mutated.
package transform

import (
	"fmt"

	apperrors "go-image-lab/internal/errors"
	"go-image-lab/internal/raster"
)

// Luma weights for grayscale conversion (ITU-R BT.601)
const (
	lumaRed   = 0.299
	lumaGreen = 0.587
	lumaBlue  = 0.114
)

// Grayscale converts a 3-channel color raster to a single-channel
// luminance raster. Output dimensions are unchanged.
func Grayscale(m *raster.Image) (*raster.Image, error) {
	if m.Channels != raster.ColorChannels {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("grayscale requires a %d-channel image (got %d)", raster.ColorChannels, m.Channels), nil)
	}

	out := raster.New(m.Width, m.Height, raster.GrayChannels)
	j := 0
	for i := 0; i < len(m.Pix); i += raster.ColorChannels {
		r := float64(m.Pix[i])
		g := float64(m.Pix[i+1])
		b := float64(m.Pix[i+2])
		out.Pix[j] = uint8(lumaRed*r + lumaGreen*g + lumaBlue*b)
		j++
	}
	return out, nil
}

// Angle is a clockwise rotation in degrees
type Angle int

const (
	Rotate90  Angle = 90
	Rotate180 Angle = 180
	Rotate270 Angle = 270
)

// Rotate rotates the raster clockwise by 90, 180 or 270 degrees.
// 90 and 270 swap the output width and height. Any other angle is a
// documented no-op: the input is returned unchanged, not an error.
func Rotate(m *raster.Image, angle Angle) *raster.Image {
	c := m.Channels
	switch angle {
	case Rotate90:
		out := raster.New(m.Height, m.Width, c)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				src := m.Offset(x, y)
				dst := out.Offset(m.Height-1-y, x)
				copy(out.Pix[dst:dst+c], m.Pix[src:src+c])
			}
		}
		return out
	case Rotate180:
		out := raster.New(m.Width, m.Height, c)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				src := m.Offset(x, y)
				dst := out.Offset(m.Width-1-x, m.Height-1-y)
				copy(out.Pix[dst:dst+c], m.Pix[src:src+c])
			}
		}
		return out
	case Rotate270:
		out := raster.New(m.Height, m.Width, c)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				src := m.Offset(x, y)
				dst := out.Offset(y, m.Width-1-x)
				copy(out.Pix[dst:dst+c], m.Pix[src:src+c])
			}
		}
		return out
	default:
		return m
	}
}

// MirrorHorizontal reverses the column order. Dimensions are unchanged
// and applying it twice restores the original.
func MirrorHorizontal(m *raster.Image) *raster.Image {
	c := m.Channels
	out := raster.New(m.Width, m.Height, c)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			src := m.Offset(x, y)
			dst := out.Offset(m.Width-1-x, y)
			copy(out.Pix[dst:dst+c], m.Pix[src:src+c])
		}
	}
	return out
}

// OverlayGrid draws rows-1 horizontal and cols-1 vertical one-pixel lines
// at evenly spaced cell boundaries over a copy of the input. Cell size is
// floor(dimension / count), clamped to at least one pixel. Partial
// trailing cells are accepted without adjustment.
func OverlayGrid(m *raster.Image, opts GridOptions) (*raster.Image, error) {
	if m.Channels != raster.ColorChannels {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("grid overlay requires a %d-channel image (got %d)", raster.ColorChannels, m.Channels), nil)
	}
	if opts.Rows < 1 || opts.Cols < 1 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("grid counts must be >= 1 (got rows=%d, cols=%d)", opts.Rows, opts.Cols), nil)
	}

	out := m.Clone()

	cellH := m.Height / opts.Rows
	if cellH < 1 {
		cellH = 1
	}
	cellW := m.Width / opts.Cols
	if cellW < 1 {
		cellW = 1
	}

	for r := 1; r < opts.Rows; r++ {
		y := r * cellH
		for x := 0; x < m.Width; x++ {
			out.SetRGB(x, y, opts.LineColor)
		}
	}
	for c := 1; c < opts.Cols; c++ {
		x := c * cellW
		for y := 0; y < m.Height; y++ {
			out.SetRGB(x, y, opts.LineColor)
		}
	}
	return out, nil
}

// Rect is a half-open pixel-space region [X0, X1) x [Y0, Y1)
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Width returns the region width in pixels
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns the region height in pixels
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Crop returns the sub-raster covered by rect. Bounds outside the image
// extents are a caller error, never silently clamped.
func Crop(m *raster.Image, rect Rect) (*raster.Image, error) {
	if rect.X0 < 0 || rect.Y0 < 0 || rect.X1 > m.Width || rect.Y1 > m.Height ||
		rect.X0 >= rect.X1 || rect.Y0 >= rect.Y1 {
		return nil, apperrors.NewInvalidRegionError(
			fmt.Sprintf("region [%d,%d)x[%d,%d) outside %dx%d image",
				rect.X0, rect.X1, rect.Y0, rect.Y1, m.Width, m.Height), nil)
	}

	c := m.Channels
	out := raster.New(rect.Width(), rect.Height(), c)
	rowLen := rect.Width() * c
	for y := rect.Y0; y < rect.Y1; y++ {
		src := m.Offset(rect.X0, y)
		dst := (y - rect.Y0) * rowLen
		copy(out.Pix[dst:dst+rowLen], m.Pix[src:src+rowLen])
	}
	return out, nil
}

// SplitLeftRight cuts the raster at the column midpoint floor(width/2)
func SplitLeftRight(m *raster.Image) (left, right *raster.Image, err error) {
	mid := m.Width / 2
	left, err = Crop(m, Rect{0, 0, mid, m.Height})
	if err != nil {
		return nil, nil, err
	}
	right, err = Crop(m, Rect{mid, 0, m.Width, m.Height})
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// SplitTopBottom cuts the raster at the row midpoint floor(height/2)
func SplitTopBottom(m *raster.Image) (top, bottom *raster.Image, err error) {
	mid := m.Height / 2
	top, err = Crop(m, Rect{0, 0, m.Width, mid})
	if err != nil {
		return nil, nil, err
	}
	bottom, err = Crop(m, Rect{0, mid, m.Width, m.Height})
	if err != nil {
		return nil, nil, err
	}
	return top, bottom, nil
}

// SplitRatio cuts the raster vertically at column floor(width * ratio).
// A ratio of 0.8 yields the canonical 80/20 split.
func SplitRatio(m *raster.Image, ratio float64) (first, second *raster.Image, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, apperrors.NewValidationError(
			fmt.Sprintf("split ratio must be in (0, 1), got %f", ratio), nil)
	}
	split := int(float64(m.Width) * ratio)
	first, err = Crop(m, Rect{0, 0, split, m.Height})
	if err != nil {
		return nil, nil, err
	}
	second, err = Crop(m, Rect{split, 0, m.Width, m.Height})
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}
