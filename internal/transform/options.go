package transform

import "image/color"

// DefaultLineColor is the accent color used for grid lines and region
// boxes when the caller does not supply one.
var DefaultLineColor = color.NRGBA{R: 135, G: 165, B: 24, A: 255}

// GridOptions configures OverlayGrid
type GridOptions struct {
	Rows      int
	Cols      int
	LineColor color.NRGBA
}

// DefaultGridOptions returns the canonical 4x4 grid configuration
func DefaultGridOptions() GridOptions {
	return GridOptions{
		Rows:      4,
		Cols:      4,
		LineColor: DefaultLineColor,
	}
}

// WithGrid sets the row and column counts
func (o GridOptions) WithGrid(rows, cols int) GridOptions {
	o.Rows = rows
	o.Cols = cols
	return o
}

// WithLineColor sets the grid line color
func (o GridOptions) WithLineColor(c color.NRGBA) GridOptions {
	o.LineColor = c
	return o
}

// DetectOptions configures the DetectRegions pipeline. The blur radius and
// edge thresholds are fixed per pipeline run so the same input always
// reproduces the same count.
type DetectOptions struct {
	MinArea       float64
	BlurRadius    float64
	LowThreshold  float64
	HighThreshold float64
	BoxColor      color.NRGBA
	BoxThickness  int
}

// DefaultDetectOptions returns the canonical detection configuration
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		MinArea:       500,
		BlurRadius:    2.0,
		LowThreshold:  50,
		HighThreshold: 150,
		BoxColor:      DefaultLineColor,
		BoxThickness:  2,
	}
}

// WithMinArea sets the contour area filter
func (o DetectOptions) WithMinArea(minArea float64) DetectOptions {
	o.MinArea = minArea
	return o
}

// WithThresholds sets the low and high edge thresholds
func (o DetectOptions) WithThresholds(low, high float64) DetectOptions {
	o.LowThreshold = low
	o.HighThreshold = high
	return o
}

// WithBoxColor sets the bounding rectangle color
func (o DetectOptions) WithBoxColor(c color.NRGBA) DetectOptions {
	o.BoxColor = c
	return o
}
