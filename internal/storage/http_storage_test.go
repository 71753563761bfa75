package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// Valid minimal PNG data for a 1x1 transparent pixel
var minimalPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func TestHTTPImageFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectCalls   int
		expectError   bool
		errorContains string
	}{
		{
			name:        "Success on first attempt",
			responses:   []int{200},
			expectCalls: 1,
		},
		{
			name:        "Success on second attempt after 5xx",
			responses:   []int{500, 200},
			expectCalls: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectCalls:   1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectCalls:   3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requestCount := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				statusCode := 500
				if requestCount < len(tt.responses) {
					statusCode = tt.responses[requestCount]
				}
				requestCount++

				if statusCode == 200 {
					w.Header().Set("Content-Type", "image/png")
					w.Write(minimalPNG)
					return
				}
				w.WriteHeader(statusCode)
				fmt.Fprintf(w, "Error %d", statusCode)
			}))
			defer server.Close()

			fetcher := NewHTTPImageFetcher(5*time.Second, 1024*1024)
			data, err := fetcher.FetchImage(context.Background(), server.URL)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error containing %q, got %v", tt.errorContains, err)
				}
			} else {
				if err != nil {
					t.Fatalf("FetchImage: %v", err)
				}
				if len(data) != len(minimalPNG) {
					t.Errorf("Expected %d bytes, got %d", len(minimalPNG), len(data))
				}
			}
			if requestCount != tt.expectCalls {
				t.Errorf("Expected %d requests, got %d", tt.expectCalls, requestCount)
			}
		})
	}
}

func TestHTTPImageFetcher_RejectsNonImageContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(5*time.Second, 1024*1024)
	if _, err := fetcher.FetchImage(context.Background(), server.URL); err == nil {
		t.Error("Expected error for non-image content type")
	}
}

func TestHTTPImageFetcher_SizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(5*time.Second, 1024)
	_, err := fetcher.FetchImage(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for oversized response")
	}
	if !strings.Contains(err.Error(), "size limit") {
		t.Errorf("Expected size limit error, got %v", err)
	}
}

func TestHTTPImageFetcher_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fetcher := NewHTTPImageFetcher(5*time.Second, 1024)
	if _, err := fetcher.FetchImage(ctx, server.URL); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
