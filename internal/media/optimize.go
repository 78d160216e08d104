package media

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"

	// Telegram clients occasionally send webp; register the decoder.
	_ "golang.org/x/image/webp"
)

// Quality levels to try, descending.
var qualityLevels = []int{85, 75, 65, 55, 45, 35}

// Dimension levels to fall back through when quality alone isn't enough.
var dimensionLevels = []int{2000, 1600, 1200, 800}

// Optimize shrinks an image until it fits the inline data limits. Images
// already within limits pass through untouched.
func Optimize(data []byte) (*ImageData, error) {
	mimeType := DetectMIME(data)
	if !IsSupported(mimeType) {
		return nil, fmt.Errorf("unsupported image type: %s", mimeType)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width <= MaxDimension && height <= MaxDimension && len(data) <= MaxBytes {
		return &ImageData{Data: data, MimeType: mimeType, Width: width, Height: height}, nil
	}

	return shrink(img, width, height, format)
}

// shrink walks dimension and quality combinations until one fits.
func shrink(img image.Image, origWidth, origHeight int, format string) (*ImageData, error) {
	maxDim := origWidth
	if origHeight > maxDim {
		maxDim = origHeight
	}

	dimensions := []int{MaxDimension}
	if maxDim <= MaxDimension {
		dimensions = []int{maxDim}
	}
	for _, d := range dimensionLevels {
		if d < maxDim && d < dimensions[len(dimensions)-1] {
			dimensions = append(dimensions, d)
		}
	}

	for _, targetDim := range dimensions {
		resized := img
		newWidth, newHeight := origWidth, origHeight
		if origWidth > targetDim || origHeight > targetDim {
			resized = imaging.Fit(img, targetDim, targetDim, imaging.Lanczos)
			b := resized.Bounds()
			newWidth, newHeight = b.Dx(), b.Dy()
		}

		for _, quality := range qualityLevels {
			encoded, mimeType, err := encode(resized, format, quality)
			if err != nil {
				continue
			}
			if len(encoded) <= MaxBytes {
				return &ImageData{Data: encoded, MimeType: mimeType, Width: newWidth, Height: newHeight}, nil
			}
			// PNG and GIF have no quality knob; move to the next dimension.
			if format == "png" || format == "gif" {
				break
			}
		}
	}

	return nil, fmt.Errorf("image could not be reduced below %dMB", MaxBytes/(1024*1024))
}

func encode(img image.Image, format string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		err := png.Encode(&buf, img)
		return buf.Bytes(), "image/png", err
	case "gif":
		err := gif.Encode(&buf, img, nil)
		return buf.Bytes(), "image/gif", err
	default:
		// JPEG, webp (decode-only in Go) and anything unknown re-encode
		// as JPEG.
		err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
		return buf.Bytes(), "image/jpeg", err
	}
}
