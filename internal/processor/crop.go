package processor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DecodeImage decodes PNG or JPEG page data
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes img as PNG, the format handed to the OCR engine.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// CropImage returns the sub-image for r. The region must lie entirely inside
// the image.
func CropImage(img image.Image, r Region) (image.Image, error) {
	rect := r.Rect().Add(img.Bounds().Min)
	if r.Width <= 0 || r.Height <= 0 || !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("region %v outside image bounds %v", r.Rect(), img.Bounds())
	}
	return imaging.Crop(img, rect), nil
}

// EnhanceContrast raises contrast by pct percent (0 leaves img unchanged).
func EnhanceContrast(img image.Image, pct float64) image.Image {
	if pct == 0 {
		return img
	}
	return imaging.AdjustContrast(img, pct)
}
