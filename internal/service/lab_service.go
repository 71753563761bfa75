package service

import (
	"context"
	"sync"
	"time"

	"go-image-lab/internal/codec"
	apperrors "go-image-lab/internal/errors"
	"go-image-lab/internal/observer"
	"go-image-lab/internal/raster"
	"go-image-lab/internal/validation"
)

// ImageLabService decodes uploaded bytes and dispatches the canonical
// transform operations over them.
type ImageLabService interface {
	Transform(ctx context.Context, data []byte, opName string, p Params) (*Result, error)
	Inspect(ctx context.Context, data []byte, p Params) (*InspectReport, error)
	Operations() []string
	Close() error
}

// OperationSummary describes one produced raster in an inspect report
type OperationSummary struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Channels int `json:"channels"`
}

// InspectReport is the full tab set for one upload: properties, the
// detection count and the dimensions of every derived raster.
type InspectReport struct {
	Properties        raster.PropertyRecord       `json:"properties"`
	DetectedRegions   int                         `json:"detected_regions"`
	Results           map[string]OperationSummary `json:"results"`
	ProcessingTimeSec float64                     `json:"processing_time_sec"`
}

type labService struct {
	registry  Registry
	validator *validation.UploadValidator
	publisher observer.Subject
	pool      *WorkerPool
}

// NewImageLabService creates the service with its operation registry and
// a started worker pool for batch inspection.
func NewImageLabService(defaults Defaults, validator *validation.UploadValidator, publisher observer.Subject) ImageLabService {
	pool := NewWorkerPool(0) // default CPU count
	pool.Start()

	return &labService{
		registry:  NewRegistry(defaults),
		validator: validator,
		publisher: publisher,
		pool:      pool,
	}
}

// Transform validates and decodes the payload, then applies one operation
func (s *labService) Transform(ctx context.Context, data []byte, opName string, p Params) (*Result, error) {
	op, err := s.registry.Lookup(opName)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("request cancelled before processing", err)
	}
	if err := s.validator.Validate(data); err != nil {
		return nil, err
	}

	img, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, op, img, p)
}

// Inspect decodes once and runs every operation concurrently on the
// worker pool, mirroring a full render of the tab set. The transforms
// themselves stay single-threaded; only the dispatch is parallel.
func (s *labService) Inspect(ctx context.Context, data []byte, p Params) (*InspectReport, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("request cancelled before processing", err)
	}
	if err := s.validator.Validate(data); err != nil {
		return nil, err
	}
	img, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}

	report := &InspectReport{
		Properties: raster.Properties(img),
		Results:    make(map[string]OperationSummary),
	}

	type task struct {
		label  string
		opName string
		params Params
	}
	tasks := []task{
		{label: "grayscale", opName: "grayscale"},
		{label: "rotate90", opName: "rotate", params: Params{Angle: 90}},
		{label: "mirror", opName: "mirror"},
		{label: "grid", opName: "grid", params: Params{Rows: p.Rows, Cols: p.Cols}},
		{label: "detect", opName: "detect", params: Params{MinArea: p.MinArea}},
		{label: "cut_left", opName: "cut", params: Params{Cut: "left"}},
		{label: "cut_right", opName: "cut", params: Params{Cut: "right"}},
		{label: "cut_top", opName: "cut", params: Params{Cut: "top"}},
		{label: "cut_bottom", opName: "cut", params: Params{Cut: "bottom"}},
		{label: "cut_p80", opName: "cut", params: Params{Cut: "p80"}},
		{label: "cut_p20", opName: "cut", params: Params{Cut: "p20"}},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for _, t := range tasks {
		t := t
		op, err := s.registry.Lookup(t.opName)
		if err != nil {
			return nil, err
		}
		wg.Add(1)
		accepted := s.pool.Submit(func() {
			defer wg.Done()
			result, err := s.apply(ctx, op, img, t.params)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if result.Image != nil {
				report.Results[t.label] = OperationSummary{
					Width:    result.Image.Width,
					Height:   result.Image.Height,
					Channels: result.Image.Channels,
				}
			}
			if t.label == "detect" {
				report.DetectedRegions = result.Count
			}
		})
		if !accepted {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = apperrors.NewInternalError("service is shutting down", nil)
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	report.ProcessingTimeSec = time.Since(start).Seconds()
	return report, nil
}

// apply runs one operation and publishes its lifecycle events
func (s *labService) apply(ctx context.Context, op Operation, img *raster.Image, p Params) (*Result, error) {
	start := time.Now()
	s.publisher.NotifyObservers(ctx, observer.TransformEvent{
		EventType: observer.TransformStarted,
		Timestamp: start,
		Operation: op.Name(),
	})

	result, err := op.Apply(img, p)
	elapsed := time.Since(start)
	if err != nil {
		s.publisher.NotifyObservers(ctx, observer.TransformEvent{
			EventType:      observer.TransformFailed,
			Timestamp:      time.Now(),
			Operation:      op.Name(),
			ProcessingTime: elapsed,
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.publisher.NotifyObservers(ctx, observer.TransformEvent{
		EventType:      observer.TransformCompleted,
		Timestamp:      time.Now(),
		Operation:      op.Name(),
		ProcessingTime: elapsed,
		Success:        true,
	})
	return result, nil
}

// Operations returns the registered operation names
func (s *labService) Operations() []string {
	return s.registry.Names()
}

// Close shuts down the worker pool
func (s *labService) Close() error {
	s.pool.Close()
	return nil
}
