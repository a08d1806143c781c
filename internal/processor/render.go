package processor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFRenderer rasterizes PDF pages with pdftoppm (poppler-utils). Page counts
// come from pdfcpu so a broken file fails before any rendering starts.
type PDFRenderer struct {
	pdftoppmPath string
	dpi          int
	tempDir      string
}

// NewPDFRenderer creates a renderer. Empty values fall back to pdftoppm on
// PATH, 300 DPI and the system temp dir.
func NewPDFRenderer(pdftoppmPath string, dpi int, tempDir string) *PDFRenderer {
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = TemplateDPI
	}
	return &PDFRenderer{pdftoppmPath: pdftoppmPath, dpi: dpi, tempDir: tempDir}
}

// DPI returns the render resolution
func (r *PDFRenderer) DPI() int { return r.dpi }

// PageCount returns the number of pages in the PDF at path.
func (r *PDFRenderer) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count for %s: %w", path, err)
	}
	return n, nil
}

// RenderPage renders one 1-indexed page to PNG bytes.
func (r *PDFRenderer) RenderPage(ctx context.Context, path string, page int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be 1-indexed, got %d", page)
	}

	if r.tempDir != "" {
		if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
	}
	tmpDir, err := os.MkdirTemp(r.tempDir, "roll-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, r.pdftoppmPath, r.args(path, page, outputPrefix)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(bytes.TrimSpace(output)))
	}

	// -singlefile writes <prefix>.png
	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}

func (r *PDFRenderer) args(path string, page int, outputPrefix string) []string {
	pageStr := strconv.Itoa(page)
	return []string{
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(r.dpi),
		"-singlefile",
		path,
		outputPrefix,
	}
}
