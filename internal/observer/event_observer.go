package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TransformEvent describes one step of processing an uploaded image
type TransformEvent struct {
	EventType      EventType     `json:"event_type"`
	Timestamp      time.Time     `json:"timestamp"`
	Operation      string        `json:"operation"`
	ProcessingTime time.Duration `json:"processing_time"`
	Success        bool          `json:"success"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// EventType represents the type of transform event
type EventType string

const (
	// TransformStarted when an operation begins
	TransformStarted EventType = "transform_started"
	// TransformCompleted when an operation finishes successfully
	TransformCompleted EventType = "transform_completed"
	// TransformFailed when an operation fails
	TransformFailed EventType = "transform_failed"
	// ImageFetched when remote image bytes are retrieved
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote fetch fails
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event TransformEvent)
	Name() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	NotifyObservers(ctx context.Context, event TransformEvent)
}

// LoggingObserver logs transform events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

// OnEvent handles transform events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event TransformEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"operation":       event.Operation,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	switch event.EventType {
	case TransformStarted:
		o.logger.WithFields(fields).Debug("Transform started")
	case TransformCompleted:
		o.logger.WithFields(fields).Info("Transform completed")
	case TransformFailed:
		o.logger.WithFields(fields).Error("Transform failed")
	case ImageFetched:
		o.logger.WithFields(fields).Debug("Image fetched")
	case ImageFetchFailed:
		o.logger.WithFields(fields).Error("Image fetch failed")
	default:
		o.logger.WithFields(fields).Info("Transform event occurred")
	}
}

// Name returns the observer name
func (o *LoggingObserver) Name() string {
	return "logging_observer"
}

// MetricsObserver aggregates per-operation counters from transform events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalTransforms     int64
	failedTransforms    int64
	totalProcessingTime time.Duration
	perOperation        map[string]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{perOperation: make(map[string]int64)}
}

// OnEvent handles transform events by updating counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event TransformEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case TransformCompleted:
		o.totalTransforms++
		o.totalProcessingTime += event.ProcessingTime
		o.perOperation[event.Operation]++
	case TransformFailed:
		o.failedTransforms++
	}
}

// Name returns the observer name
func (o *MetricsObserver) Name() string {
	return "metrics_observer"
}

// Metrics returns a snapshot of the current counters
func (o *MetricsObserver) Metrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.totalTransforms > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.totalTransforms)
	}

	perOp := make(map[string]int64, len(o.perOperation))
	for op, n := range o.perOperation {
		perOp[op] = n
	}

	return map[string]interface{}{
		"total_transforms":    o.totalTransforms,
		"failed_transforms":   o.failedTransforms,
		"avg_processing_time": avgProcessingTime.String(),
		"per_operation":       perOp,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{observers: make([]Observer, 0)}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// NotifyObservers notifies all observers of an event synchronously.
// Observer panics are contained so they cannot fail a request.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event TransformEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.Name()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
