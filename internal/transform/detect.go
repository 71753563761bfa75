package transform

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/blur"

	apperrors "go-image-lab/internal/errors"
	"go-image-lab/internal/raster"
)

// DetectRegions runs the approximate blob counter: grayscale, Gaussian
// blur, gradient edge detection with low/high hysteresis thresholds,
// external contour extraction and an area filter. Each surviving contour's
// axis-aligned bounding rectangle is drawn on a copy of the color input.
// Returns the annotated raster and the number of rectangles drawn.
//
// This is deterministic but approximate: contours touching the image
// border or merging under blur can over- or under-count.
func DetectRegions(m *raster.Image, opts DetectOptions) (*raster.Image, int, error) {
	if m.Channels != raster.ColorChannels {
		return nil, 0, apperrors.NewValidationError(
			fmt.Sprintf("region detection requires a %d-channel image (got %d)", raster.ColorChannels, m.Channels), nil)
	}

	gray, err := Grayscale(m)
	if err != nil {
		return nil, 0, err
	}

	blurred := gaussianBlur(gray, opts.BlurRadius)
	edges := detectEdges(blurred, opts.LowThreshold, opts.HighThreshold)
	contours := findExternalContours(edges)

	out := m.Clone()
	count := 0
	for _, c := range contours {
		if c.area() > opts.MinArea {
			drawRect(out, c.boundingRect(), opts)
			count++
		}
	}
	return out, count, nil
}

// gaussianBlur smooths a single-channel raster with bild's Gaussian filter
func gaussianBlur(gray *raster.Image, radius float64) *raster.Image {
	if radius <= 0 {
		return gray
	}
	blurred := blur.Gaussian(gray.ToGray(), radius)

	out := raster.New(gray.Width, gray.Height, raster.GrayChannels)
	for y := 0; y < gray.Height; y++ {
		for x := 0; x < gray.Width; x++ {
			// Gray input keeps R == G == B in the blurred RGBA
			out.Pix[y*gray.Width+x] = blurred.Pix[y*blurred.Stride+x*4]
		}
	}
	return out
}

// detectEdges computes Sobel gradient magnitudes and applies double
// thresholding with hysteresis: pixels at or above high are edges, pixels
// between low and high are kept only when connected to a strong edge.
func detectEdges(gray *raster.Image, low, high float64) *edgeMap {
	w, h := gray.Width, gray.Height
	edges := &edgeMap{width: w, height: h, on: make([]bool, w*h)}
	weak := make([]bool, w*h)
	var strong []int

	px := func(x, y int) int { return int(gray.Pix[y*w+x]) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -px(x-1, y-1) + px(x+1, y-1) +
				-2*px(x-1, y) + 2*px(x+1, y) +
				-px(x-1, y+1) + px(x+1, y+1)
			gy := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) +
				px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)

			magnitude := math.Sqrt(float64(gx*gx + gy*gy))
			idx := y*w + x
			if magnitude >= high {
				edges.on[idx] = true
				strong = append(strong, idx)
			} else if magnitude >= low {
				weak[idx] = true
			}
		}
	}

	// Promote weak pixels connected to a strong edge
	for len(strong) > 0 {
		idx := strong[len(strong)-1]
		strong = strong[:len(strong)-1]
		x, y := idx%w, idx/w
		for _, o := range mooreOffsets {
			nx, ny := x+o.X, y+o.Y
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			nidx := ny*w + nx
			if weak[nidx] && !edges.on[nidx] {
				edges.on[nidx] = true
				strong = append(strong, nidx)
			}
		}
	}
	return edges
}

// drawRect draws the rectangle outline on a 3-channel raster, expanding
// outward for thickness. Out-of-bounds pixels are clipped.
func drawRect(m *raster.Image, r Rect, opts DetectOptions) {
	thickness := opts.BoxThickness
	if thickness < 1 {
		thickness = 1
	}
	for t := 0; t < thickness; t++ {
		x0, y0 := r.X0-t, r.Y0-t
		x1, y1 := r.X1-1+t, r.Y1-1+t
		for x := x0; x <= x1; x++ {
			m.SetRGB(x, y0, opts.BoxColor)
			m.SetRGB(x, y1, opts.BoxColor)
		}
		for y := y0; y <= y1; y++ {
			m.SetRGB(x0, y, opts.BoxColor)
			m.SetRGB(x1, y, opts.BoxColor)
		}
	}
}
