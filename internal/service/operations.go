package service

import (
	"fmt"

	apperrors "go-image-lab/internal/errors"
	"go-image-lab/internal/raster"
	"go-image-lab/internal/transform"
)

// Params carries the per-request parameters of an operation. Zero values
// fall back to the configured defaults.
type Params struct {
	Angle   int
	Rows    int
	Cols    int
	MinArea *float64
	Region  *transform.Rect
	Cut     string
}

// Result is the outcome of one operation: an output raster and, depending
// on the operation, a region count or a property record.
type Result struct {
	Image      *raster.Image
	Count      int
	Properties *raster.PropertyRecord
}

// Operation applies one canonical transform to a decoded raster
type Operation interface {
	Name() string
	Apply(img *raster.Image, p Params) (*Result, error)
}

// Defaults holds the configured fallback parameters
type Defaults struct {
	MinArea  float64
	GridRows int
	GridCols int
}

// Registry maps operation names to implementations
type Registry map[string]Operation

// NewRegistry builds the canonical operation set
func NewRegistry(defaults Defaults) Registry {
	ops := []Operation{
		grayscaleOp{},
		propertiesOp{},
		rotateOp{},
		mirrorOp{},
		gridOp{defaults: defaults},
		detectOp{defaults: defaults},
		cropOp{},
		cutOp{},
	}
	registry := make(Registry, len(ops))
	for _, op := range ops {
		registry[op.Name()] = op
	}
	return registry
}

// Lookup resolves an operation by name
func (r Registry) Lookup(name string) (Operation, error) {
	op, ok := r[name]
	if !ok {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown operation %q", name), nil)
	}
	return op, nil
}

// Names returns the registered operation names
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}

type grayscaleOp struct{}

func (grayscaleOp) Name() string { return "grayscale" }

func (grayscaleOp) Apply(img *raster.Image, p Params) (*Result, error) {
	out, err := transform.Grayscale(img)
	if err != nil {
		return nil, err
	}
	return &Result{Image: out}, nil
}

type propertiesOp struct{}

func (propertiesOp) Name() string { return "properties" }

func (propertiesOp) Apply(img *raster.Image, p Params) (*Result, error) {
	record := raster.Properties(img)
	return &Result{Properties: &record}, nil
}

type rotateOp struct{}

func (rotateOp) Name() string { return "rotate" }

func (rotateOp) Apply(img *raster.Image, p Params) (*Result, error) {
	angle := p.Angle
	if angle == 0 {
		angle = 90
	}
	return &Result{Image: transform.Rotate(img, transform.Angle(angle))}, nil
}

type mirrorOp struct{}

func (mirrorOp) Name() string { return "mirror" }

func (mirrorOp) Apply(img *raster.Image, p Params) (*Result, error) {
	return &Result{Image: transform.MirrorHorizontal(img)}, nil
}

type gridOp struct {
	defaults Defaults
}

func (gridOp) Name() string { return "grid" }

func (op gridOp) Apply(img *raster.Image, p Params) (*Result, error) {
	opts := transform.DefaultGridOptions().
		WithGrid(op.defaults.GridRows, op.defaults.GridCols)
	if p.Rows > 0 && p.Cols > 0 {
		opts = opts.WithGrid(p.Rows, p.Cols)
	}
	out, err := transform.OverlayGrid(img, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Image: out}, nil
}

type detectOp struct {
	defaults Defaults
}

func (detectOp) Name() string { return "detect" }

func (op detectOp) Apply(img *raster.Image, p Params) (*Result, error) {
	opts := transform.DefaultDetectOptions().WithMinArea(op.defaults.MinArea)
	if p.MinArea != nil {
		opts = opts.WithMinArea(*p.MinArea)
	}
	out, count, err := transform.DetectRegions(img, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Image: out, Count: count}, nil
}

type cropOp struct{}

func (cropOp) Name() string { return "crop" }

func (cropOp) Apply(img *raster.Image, p Params) (*Result, error) {
	if p.Region == nil {
		return nil, apperrors.NewValidationError("crop requires region bounds", nil)
	}
	out, err := transform.Crop(img, *p.Region)
	if err != nil {
		return nil, err
	}
	return &Result{Image: out}, nil
}

type cutOp struct{}

func (cutOp) Name() string { return "cut" }

// Apply returns one of the fixed splits: left/right halves, top/bottom
// halves, or the 80/20 vertical cut.
func (cutOp) Apply(img *raster.Image, p Params) (*Result, error) {
	var out *raster.Image
	var err error

	switch p.Cut {
	case "left":
		out, _, err = transform.SplitLeftRight(img)
	case "right":
		_, out, err = transform.SplitLeftRight(img)
	case "top":
		out, _, err = transform.SplitTopBottom(img)
	case "bottom":
		_, out, err = transform.SplitTopBottom(img)
	case "p80":
		out, _, err = transform.SplitRatio(img, 0.8)
	case "p20":
		_, out, err = transform.SplitRatio(img, 0.8)
	default:
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown cut %q (want left, right, top, bottom, p80 or p20)", p.Cut), nil)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Image: out}, nil
}
