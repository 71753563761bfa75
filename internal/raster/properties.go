package raster

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// PropertyRecord describes a raster without modifying it
type PropertyRecord struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Channels     int     `json:"channels"`
	Shape        string  `json:"shape"`
	DType        string  `json:"dtype"`
	TotalSamples int     `json:"total_samples"`
	MeanValue    float64 `json:"mean_value"`
	StdDevValue  float64 `json:"stddev_value"`
}

// Properties returns the dimensions, sample type and intensity statistics
// of a raster. Pure read, no side effects.
func Properties(m *Image) PropertyRecord {
	record := PropertyRecord{
		Width:        m.Width,
		Height:       m.Height,
		Channels:     m.Channels,
		Shape:        fmt.Sprintf("%dx%dx%d", m.Height, m.Width, m.Channels),
		DType:        "uint8",
		TotalSamples: m.Width * m.Height * m.Channels,
	}

	if len(m.Pix) == 0 {
		return record
	}

	samples := make([]float64, len(m.Pix))
	for i, v := range m.Pix {
		samples[i] = float64(v)
	}
	record.MeanValue = stat.Mean(samples, nil)
	if len(samples) > 1 {
		record.StdDevValue = stat.StdDev(samples, nil)
	}
	return record
}
