package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-image-lab/internal/config"
	"go-image-lab/internal/observer"
	"go-image-lab/internal/service"
	"go-image-lab/internal/storage"
	"go-image-lab/internal/validation"
)

func testConfig() *config.Config {
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     10 * time.Second,
		ImageFetchTimeout:  5 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024,
		MaxImagePixels:     64 * 1024 * 1024,
		DefaultMinArea:     500,
		DefaultGridRows:    4,
		DefaultGridCols:    4,
	}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	validator := validation.NewUploadValidator(cfg.MaxRequestBodySize, cfg.MaxImagePixels)
	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(metrics)

	defaults := service.Defaults{
		MinArea:  cfg.DefaultMinArea,
		GridRows: cfg.DefaultGridRows,
		GridCols: cfg.DefaultGridCols,
	}
	svc := service.NewImageLabService(defaults, validator, publisher)
	t.Cleanup(func() { svc.Close() })

	fetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout, cfg.MaxRequestBodySize)
	return NewHandler(svc, fetcher, metrics, publisher, cfg)
}

// recordingObserver captures events so tests can assert on publication
type recordingObserver struct {
	mu     sync.Mutex
	events []observer.TransformEvent
}

func (o *recordingObserver) OnEvent(ctx context.Context, event observer.TransformEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) Name() string {
	return "recording_observer"
}

func (o *recordingObserver) eventsOfType(eventType observer.EventType) []observer.TransformEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	var matched []observer.TransformEvent
	for _, e := range o.events {
		if e.EventType == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// newFetchTestHandler builds a handler with a recording observer attached
// for the URL-fetch tests
func newFetchTestHandler(t *testing.T) (http.Handler, *recordingObserver) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	validator := validation.NewUploadValidator(cfg.MaxRequestBodySize, cfg.MaxImagePixels)
	recorder := &recordingObserver{}
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(recorder)

	defaults := service.Defaults{
		MinArea:  cfg.DefaultMinArea,
		GridRows: cfg.DefaultGridRows,
		GridCols: cfg.DefaultGridCols,
	}
	svc := service.NewImageLabService(defaults, validator, publisher)
	t.Cleanup(func() { svc.Close() })

	fetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout, cfg.MaxRequestBodySize)
	return NewHandler(svc, fetcher, observer.NewMetricsObserver(), publisher, cfg), recorder
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test PNG: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "test.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestTransform_GrayscaleUpload(t *testing.T) {
	handler := newTestHandler(t)

	body, contentType := multipartUpload(t, testPNG(t, 40, 30))
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/grayscale", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Expected image/png response, got %s", got)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if format != "png" || cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("Unexpected response image: %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestTransform_RotateSwapsDimensions(t *testing.T) {
	handler := newTestHandler(t)

	body, contentType := multipartUpload(t, testPNG(t, 40, 30))
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/rotate?angle=90", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if cfg.Width != 30 || cfg.Height != 40 {
		t.Errorf("Expected 30x40, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestTransform_DetectReportsCount(t *testing.T) {
	handler := newTestHandler(t)

	body, contentType := multipartUpload(t, testPNG(t, 40, 30))
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/detect", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Region-Count") == "" {
		t.Error("Expected X-Region-Count header on detect responses")
	}
}

func TestTransform_PropertiesReturnsJSON(t *testing.T) {
	handler := newTestHandler(t)

	body, contentType := multipartUpload(t, testPNG(t, 40, 30))
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/properties", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var record map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if record["width"].(float64) != 40 {
		t.Errorf("Expected width 40, got %v", record["width"])
	}
	if record["total_samples"].(float64) != 40*30*3 {
		t.Errorf("Expected %d total samples, got %v", 40*30*3, record["total_samples"])
	}
}

func TestTransform_CropOutOfRange(t *testing.T) {
	handler := newTestHandler(t)

	body, contentType := multipartUpload(t, testPNG(t, 40, 30))
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/crop?x0=0&y0=0&x1=41&y1=30", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out-of-range crop, got %d", w.Code)
	}
}

func TestTransform_UnknownOperation(t *testing.T) {
	handler := newTestHandler(t)

	body, contentType := multipartUpload(t, testPNG(t, 10, 10))
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/sharpen", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown operation, got %d", w.Code)
	}
}

func TestTransform_MissingPayload(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/transform/grayscale", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing payload, got %d", w.Code)
	}
}

func TestInspect(t *testing.T) {
	handler := newTestHandler(t)

	body, contentType := multipartUpload(t, testPNG(t, 60, 40))
	req := httptest.NewRequest(http.MethodPost, "/v1/inspect", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var report service.InspectReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if report.Properties.Width != 60 {
		t.Errorf("Expected width 60, got %d", report.Properties.Width)
	}
	if len(report.Results) != 11 {
		t.Errorf("Expected 11 operation results, got %d", len(report.Results))
	}
}

func TestListOperations(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/operations", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Operations []string `json:"operations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if len(resp.Operations) != 8 {
		t.Errorf("Expected 8 operations, got %d", len(resp.Operations))
	}
}

func TestTransform_URLFetchPublishesFetchedEvent(t *testing.T) {
	handler, recorder := newFetchTestHandler(t)

	imageData := testPNG(t, 40, 30)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(imageData)
	}))
	defer remote.Close()

	body := strings.NewReader(`{"url": "` + remote.URL + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/grayscale", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	fetched := recorder.eventsOfType(observer.ImageFetched)
	if len(fetched) != 1 {
		t.Fatalf("Expected 1 fetched event, got %d", len(fetched))
	}
	if !fetched[0].Success {
		t.Error("Expected fetched event to be marked successful")
	}
	if len(recorder.eventsOfType(observer.ImageFetchFailed)) != 0 {
		t.Error("Expected no fetch-failed events on a successful fetch")
	}
}

func TestTransform_URLFetchFailurePublishesFailedEvent(t *testing.T) {
	handler, recorder := newFetchTestHandler(t)

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer remote.Close()

	body := strings.NewReader(`{"url": "` + remote.URL + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/grayscale", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d: %s", w.Code, w.Body.String())
	}

	failed := recorder.eventsOfType(observer.ImageFetchFailed)
	if len(failed) != 1 {
		t.Fatalf("Expected 1 fetch-failed event, got %d", len(failed))
	}
	if failed[0].ErrorMessage == "" {
		t.Error("Expected fetch-failed event to carry the error message")
	}
	if len(recorder.eventsOfType(observer.ImageFetched)) != 0 {
		t.Error("Expected no fetched events on a failed fetch")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	// Run one transform so the counters move
	body, contentType := multipartUpload(t, testPNG(t, 10, 10))
	req := httptest.NewRequest(http.MethodPost, "/v1/transform/mirror", body)
	req.Header.Set("Content-Type", contentType)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/v1/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var metrics map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if metrics["total_transforms"].(float64) != 1 {
		t.Errorf("Expected 1 completed transform, got %v", metrics["total_transforms"])
	}
}
