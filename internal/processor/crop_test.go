package processor

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 400, 300))

	crop, err := CropImage(img, Region{X: 10, Y: 20, Width: 100, Height: 50})
	require.NoError(t, err)
	assert.Equal(t, 100, crop.Bounds().Dx())
	assert.Equal(t, 50, crop.Bounds().Dy())

	_, err = CropImage(img, Region{X: 350, Y: 20, Width: 100, Height: 50})
	assert.Error(t, err)
	_, err = CropImage(img, Region{X: 10, Y: 20, Width: 0, Height: 50})
	assert.Error(t, err)
}

func TestCoverCropRegionsFitA4At300DPI(t *testing.T) {
	page := image.Rect(0, 0, 2480, 3508)
	for i, r := range CoverCropRegions {
		assert.True(t, r.Rect().In(page), "region %d", i)
	}
}

func TestRegionScale(t *testing.T) {
	r := Region{X: 300, Y: 600, Width: 90, Height: 30}
	assert.Equal(t, r, r.Scale(TemplateDPI))
	assert.Equal(t, Region{X: 200, Y: 400, Width: 60, Height: 20}, r.Scale(200))
}

func TestCropPass(t *testing.T) {
	for i := 0; i < 8; i++ {
		assert.Equal(t, CropDigitPass, cropPass(i))
	}
	assert.Equal(t, CropHindiPass, cropPass(8))
	assert.Equal(t, CropHindiPass, cropPass(9))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data, err := EncodePNG(image.NewGray(image.Rect(0, 0, 12, 7)))
	require.NoError(t, err)

	img, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())

	_, err = DecodeImage([]byte("nope"))
	assert.Error(t, err)
}

func TestEnhanceContrastZeroIsIdentity(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	assert.Same(t, image.Image(img), EnhanceContrast(img, 0))
	assert.NotNil(t, EnhanceContrast(img, 35))
}

func TestPDFRendererArgs(t *testing.T) {
	r := NewPDFRenderer("", 0, "")
	assert.Equal(t, TemplateDPI, r.DPI())
	assert.Equal(t,
		[]string{"-png", "-f", "4", "-l", "4", "-r", "300", "-singlefile", "roll.pdf", "/tmp/x/page"},
		r.args("roll.pdf", 4, "/tmp/x/page"))
}

func TestPDFRendererErrors(t *testing.T) {
	r := NewPDFRenderer("", 300, t.TempDir())

	_, err := r.PageCount(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	_, err = r.RenderPage(context.Background(), "roll.pdf", 0)
	assert.Error(t, err)
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", detectMimeTypeFromMagicBytes([]byte("%PDF-1.7")))
	assert.Equal(t, "image/png", detectMimeTypeFromMagicBytes([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}))
	assert.Equal(t, "image/jpeg", detectMimeTypeFromMagicBytes([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.Equal(t, "", detectMimeTypeFromMagicBytes([]byte("hello")))
	assert.Equal(t, "", detectMimeTypeFromMagicBytes(nil))
}

func TestTesseractLanguageMapping(t *testing.T) {
	ocr, err := NewTesseractOCR(nil)
	require.NoError(t, err)

	lang, err := ocr.Language(LangHindi)
	require.NoError(t, err)
	assert.Equal(t, "hin", lang)
	lang, err = ocr.Language(LangEnglish)
	require.NoError(t, err)
	assert.Equal(t, "eng", lang)
	_, err = ocr.Language("fr")
	assert.Error(t, err)
}
