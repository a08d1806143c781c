/**
 * Tesseract OCR
 *
 * Offline OCR through gosseract. A client is created per call because the
 * underlying Tesseract handle is not safe for concurrent use.
 */

package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
)

// TesseractOCR handles OCR using Tesseract
type TesseractOCR struct {
	languages map[string]string
	logger    *logging.Logger
}

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	HindiLang   string // traineddata name, default "hin"
	EnglishLang string // traineddata name, default "eng"
	Logger      *logging.Logger
}

// NewTesseractOCR creates a new Tesseract OCR instance
func NewTesseractOCR(cfg *TesseractConfig) (*TesseractOCR, error) {
	if cfg == nil {
		cfg = &TesseractConfig{}
	}
	if cfg.HindiLang == "" {
		cfg.HindiLang = "hin"
	}
	if cfg.EnglishLang == "" {
		cfg.EnglishLang = "eng"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("tesseract")
	}

	return &TesseractOCR{
		languages: map[string]string{
			LangHindi:   cfg.HindiLang,
			LangEnglish: cfg.EnglishLang,
		},
		logger: logger,
	}, nil
}

// Language maps a language tag to the Tesseract traineddata name
func (t *TesseractOCR) Language(tag string) (string, error) {
	lang, ok := t.languages[tag]
	if !ok {
		return "", fmt.Errorf("unsupported OCR language %q", tag)
	}
	return lang, nil
}

// Recognize returns the text Tesseract reads from an encoded image. A failed
// recognition yields empty text; only unusable input is an error.
func (t *TesseractOCR) Recognize(ctx context.Context, imageData []byte, opts TextOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lang, err := t.Language(opts.Language)
	if err != nil {
		return "", err
	}

	startTime := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("failed to set language %s: %w", lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode %d: %w", opts.PSM, err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			return "", fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	if opts.Blacklist != "" {
		if err := client.SetBlacklist(opts.Blacklist); err != nil {
			return "", fmt.Errorf("failed to set blacklist: %w", err)
		}
	}

	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		t.logger.Warn("tesseract recognition failed", "pass", opts.Name, "error", err)
		return "", nil
	}

	t.logger.Debug("tesseract pass complete",
		"pass", opts.Name,
		"chars", len(text),
		"duration", time.Since(startTime).String(),
	)

	return strings.TrimSpace(text), nil
}
