// Package validation checks uploaded image bytes before they reach the
// transform pipeline.
package validation

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	apperrors "go-image-lab/internal/errors"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

// UploadValidator enforces size, format and dimension limits on uploads
type UploadValidator struct {
	maxBytes  int64
	maxPixels int64
}

// NewUploadValidator creates a validator with the given limits
func NewUploadValidator(maxBytes, maxPixels int64) *UploadValidator {
	return &UploadValidator{maxBytes: maxBytes, maxPixels: maxPixels}
}

// Validate rejects empty, oversized or non-JPEG/PNG payloads and images
// whose pixel count exceeds the configured limit
func (v *UploadValidator) Validate(data []byte) error {
	if len(data) == 0 {
		return apperrors.NewValidationError("empty image payload", nil)
	}
	if int64(len(data)) > v.maxBytes {
		return apperrors.NewValidationError(
			fmt.Sprintf("image of %d bytes exceeds limit of %d", len(data), v.maxBytes), nil)
	}
	if !bytes.HasPrefix(data, jpegMagic) && !bytes.HasPrefix(data, pngMagic) {
		return apperrors.NewValidationError("payload is not a JPEG or PNG image", nil)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return apperrors.NewDecodeError("unable to read image header", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > v.maxPixels {
		return apperrors.NewValidationError(
			fmt.Sprintf("image of %dx%d pixels exceeds limit of %d total", cfg.Width, cfg.Height, v.maxPixels), nil)
	}
	return nil
}
