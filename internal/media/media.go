// Package media prepares Telegram photos for the generative API: download,
// MIME detection from magic bytes, and resize/recompress to fit the inline
// data limits.
package media

import (
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"

	"github.com/roelfdiedericks/aibolit/internal/gemini"
)

// Inline image limits for generateContent requests.
const (
	MaxDimension = 2000            // max width or height in pixels
	MaxBytes     = 4 * 1024 * 1024 // stay well under the request size cap
)

// MIME types the vision models accept as inline data.
var supportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageData is a processed image ready for the model.
type ImageData struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Base64 returns the image bytes base64-encoded for the wire.
func (img *ImageData) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// Blob converts the image into an inline data part.
func (img *ImageData) Blob() *gemini.Blob {
	return &gemini.Blob{
		MimeType: img.MimeType,
		Data:     img.Base64(),
	}
}

// Size returns the raw byte count.
func (img *ImageData) Size() int {
	return len(img.Data)
}

// DetectMIME sniffs the MIME type from magic bytes, never the filename.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsSupported reports whether the vision models accept this MIME type
// inline.
func IsSupported(mimeType string) bool {
	return supportedMIMETypes[mimeType]
}
