// Package raster defines the in-memory image value that all transforms
// operate on: a row-major grid of interleaved 8-bit samples with explicit
// width, height and channel count. Transforms never mutate their input;
// every operation allocates and returns a fresh buffer.
package raster

import (
	"bytes"
	"image"
	"image/color"
)

const (
	// GrayChannels is the channel count of a luminance image
	GrayChannels = 1
	// ColorChannels is the channel count of an RGB image
	ColorChannels = 3
)

// Image is a row-major raster of interleaved uint8 samples.
// Color images hold exactly 3 channels in RGB order.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8 // len = Width * Height * Channels
}

// New allocates a zeroed raster with the given dimensions
func New(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Clone returns a deep copy of the raster
func (m *Image) Clone() *Image {
	out := &Image{
		Width:    m.Width,
		Height:   m.Height,
		Channels: m.Channels,
		Pix:      make([]uint8, len(m.Pix)),
	}
	copy(out.Pix, m.Pix)
	return out
}

// Offset returns the index of the first sample of pixel (x, y)
func (m *Image) Offset(x, y int) int {
	return (y*m.Width + x) * m.Channels
}

// SetRGB writes an RGB value at (x, y), ignoring out-of-bounds coordinates.
// Requires a 3-channel raster.
func (m *Image) SetRGB(x, y int, c color.NRGBA) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	i := m.Offset(x, y)
	m.Pix[i] = c.R
	m.Pix[i+1] = c.G
	m.Pix[i+2] = c.B
}

// Equal reports whether two rasters have identical dimensions and samples
func Equal(a, b *Image) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Width == b.Width &&
		a.Height == b.Height &&
		a.Channels == b.Channels &&
		bytes.Equal(a.Pix, b.Pix)
}

// FromImage converts any decoded image into a 3-channel RGB raster
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	out := New(bounds.Dx(), bounds.Dy(), ColorChannels)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			out.Pix[i] = uint8(r >> 8)
			out.Pix[i+1] = uint8(g >> 8)
			out.Pix[i+2] = uint8(b >> 8)
			i += ColorChannels
		}
	}
	return out
}

// ToNRGBA converts a 3-channel raster to a stdlib NRGBA image
func (m *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	src := 0
	for y := 0; y < m.Height; y++ {
		dst := y * out.Stride
		for x := 0; x < m.Width; x++ {
			out.Pix[dst] = m.Pix[src]
			out.Pix[dst+1] = m.Pix[src+1]
			out.Pix[dst+2] = m.Pix[src+2]
			out.Pix[dst+3] = 0xff
			src += ColorChannels
			dst += 4
		}
	}
	return out
}

// ToGray converts a single-channel raster to a stdlib Gray image
func (m *Image) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+m.Width], m.Pix[y*m.Width:(y+1)*m.Width])
	}
	return out
}
