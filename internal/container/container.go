package container

import (
	"net/http"

	"go-image-lab/internal/config"
	"go-image-lab/internal/logger"
	"go-image-lab/internal/observer"
	"go-image-lab/internal/service"
	"go-image-lab/internal/storage"
	"go-image-lab/internal/transport"
	"go-image-lab/internal/validation"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	fetcher    storage.ImageFetcher
	labService service.ImageLabService
	metrics    *observer.MetricsObserver
	handler    http.Handler
}

// NewContainer builds the dependency graph
func NewContainer(cfg *config.Config) (*Container, error) {
	fetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout, cfg.MaxRequestBodySize)
	validator := validation.NewUploadValidator(cfg.MaxRequestBodySize, cfg.MaxImagePixels)

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	defaults := service.Defaults{
		MinArea:  cfg.DefaultMinArea,
		GridRows: cfg.DefaultGridRows,
		GridCols: cfg.DefaultGridCols,
	}
	labService := service.NewImageLabService(defaults, validator, publisher)
	handler := transport.NewHandler(labService, fetcher, metrics, publisher, cfg)

	return &Container{
		config:     cfg,
		fetcher:    fetcher,
		labService: labService,
		metrics:    metrics,
		handler:    handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases service resources
func (c *Container) Close() error {
	return c.labService.Close()
}
