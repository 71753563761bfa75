package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-image-lab/internal/codec"
	"go-image-lab/internal/config"
	apperrors "go-image-lab/internal/errors"
	"go-image-lab/internal/logger"
	"go-image-lab/internal/observer"
	"go-image-lab/internal/raster"
	"go-image-lab/internal/service"
	"go-image-lab/internal/storage"
	"go-image-lab/internal/transform"
)

// FetchRequest asks the server to fetch the image from a remote URL
// instead of a multipart upload
type FetchRequest struct {
	URL string `json:"url" binding:"required,url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func NewHandler(svc service.ImageLabService, fetcher storage.ImageFetcher, metrics *observer.MetricsObserver, publisher observer.Subject, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(requestSizeLimiter(cfg.MaxRequestBodySize))

	r.GET("/health", healthCheck)

	v1 := r.Group("/v1")
	v1.POST("/transform/:op", transformImage(svc, fetcher, publisher, cfg))
	v1.POST("/inspect", inspectImage(svc, fetcher, publisher, cfg))
	v1.GET("/operations", listOperations(svc))
	v1.GET("/metrics", reportMetrics(metrics))

	return r
}

func transformImage(svc service.ImageLabService, fetcher storage.ImageFetcher, publisher observer.Subject, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := c.Param("op")
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"operation": op,
			"ip":        c.ClientIP(),
		}).Info("Processing transform request")

		data, ok := readImageBytes(c, ctx, fetcher, publisher, cfg)
		if !ok {
			return
		}

		params, err := parseParams(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid parameters", err)
			return
		}

		result, err := svc.Transform(ctx, data, op, params)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "transform failed", err)
			return
		}

		if result.Properties != nil {
			c.JSON(http.StatusOK, result.Properties)
			return
		}
		if op == "detect" {
			c.Header("X-Region-Count", strconv.Itoa(result.Count))
		}
		writeImage(c, result.Image)
	}
}

func inspectImage(svc service.ImageLabService, fetcher storage.ImageFetcher, publisher observer.Subject, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		data, ok := readImageBytes(c, ctx, fetcher, publisher, cfg)
		if !ok {
			return
		}
		params, err := parseParams(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid parameters", err)
			return
		}

		report, err := svc.Inspect(ctx, data, params)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "inspect failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"detected_regions":    report.DetectedRegions,
			"processing_time_sec": report.ProcessingTimeSec,
		}).Info("Inspect completed")

		c.JSON(http.StatusOK, report)
	}
}

func listOperations(svc service.ImageLabService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operations": svc.Operations()})
	}
}

func reportMetrics(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Metrics())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// readImageBytes resolves the image payload from either a multipart
// upload (field "image") or a JSON body naming a remote URL. Remote
// fetches publish fetched/fetch-failed events. On failure it writes the
// error response and returns ok=false.
func readImageBytes(c *gin.Context, ctx context.Context, fetcher storage.ImageFetcher, publisher observer.Subject, cfg *config.Config) ([]byte, bool) {
	if fileHeader, err := c.FormFile("image"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "unable to open upload", err)
			return nil, false
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			respondError(c, http.StatusBadRequest, "unable to read upload", err)
			return nil, false
		}
		return data, true
	}

	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest,
			"request needs a multipart \"image\" field or a JSON body with \"url\"", err)
		return nil, false
	}
	if err := validateImageURL(req.URL); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid image URL", err)
		return nil, false
	}

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.ImageFetchTimeout)
	defer cancel()

	start := time.Now()
	data, err := fetcher.FetchImage(fetchCtx, req.URL)
	if err != nil {
		publisher.NotifyObservers(ctx, observer.TransformEvent{
			EventType:      observer.ImageFetchFailed,
			Timestamp:      time.Now(),
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})

		var fetchErr *apperrors.AppError
		if errors.Is(err, context.DeadlineExceeded) {
			fetchErr = apperrors.NewTimeoutError("image fetch timeout", err)
		} else {
			fetchErr = apperrors.NewNetworkError("failed to fetch image", err)
		}
		respondError(c, fetchErr.StatusCode, "failed to fetch image", fetchErr)
		return nil, false
	}

	publisher.NotifyObservers(ctx, observer.TransformEvent{
		EventType:      observer.ImageFetched,
		Timestamp:      time.Now(),
		ProcessingTime: time.Since(start),
		Success:        true,
	})
	return data, true
}

func validateImageURL(imageURL string) error {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("invalid URL format", err)
	}
	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	return nil
}

// parseParams reads the optional operation parameters from the query string
func parseParams(c *gin.Context) (service.Params, error) {
	p := service.Params{Cut: c.Query("cut")}

	var err error
	if p.Angle, err = intQuery(c, "angle", 0); err != nil {
		return p, err
	}
	if p.Rows, err = intQuery(c, "rows", 0); err != nil {
		return p, err
	}
	if p.Cols, err = intQuery(c, "cols", 0); err != nil {
		return p, err
	}

	if raw := c.Query("min_area"); raw != "" {
		minArea, err := strconv.ParseFloat(raw, 64)
		if err != nil || minArea < 0 {
			return p, apperrors.NewValidationError(fmt.Sprintf("invalid min_area %q", raw), err)
		}
		p.MinArea = &minArea
	}

	// Region bounds are all-or-nothing
	coords := [4]string{c.Query("x0"), c.Query("y0"), c.Query("x1"), c.Query("y1")}
	given := 0
	for _, raw := range coords {
		if raw != "" {
			given++
		}
	}
	if given == 4 {
		var values [4]int
		for i, raw := range coords {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return p, apperrors.NewValidationError(fmt.Sprintf("invalid region coordinate %q", raw), err)
			}
			values[i] = v
		}
		p.Region = &transform.Rect{X0: values[0], Y0: values[1], X1: values[2], Y1: values[3]}
	} else if given > 0 {
		return p, apperrors.NewValidationError("region requires all of x0, y0, x1, y1", nil)
	}

	return p, nil
}

func intQuery(c *gin.Context, name string, defaultValue int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid %s %q", name, raw), err)
	}
	return v, nil
}

// writeImage encodes the result raster and writes it to the response.
// Format defaults to PNG; max_width triggers a preview downscale.
func writeImage(c *gin.Context, img *raster.Image) {
	maxWidth, err := intQuery(c, "max_width", 0)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid parameters", err)
		return
	}
	if maxWidth > 0 {
		img = codec.Downscale(img, maxWidth)
	}

	format := codec.Format(c.DefaultQuery("format", string(codec.FormatPNG)))
	data, err := codec.Encode(img, format)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "encoding failed", err)
		return
	}

	contentType := "image/png"
	if format == codec.FormatJPEG {
		contentType = "image/jpeg"
	}
	c.Data(http.StatusOK, contentType, data)
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
