/**
 * Roll Processor for the electoral roll worker
 *
 * Drives the external collaborators (renderer, cropper, OCR) for each page and
 * feeds their text to the extraction engine:
 * - cover pages: full-page Hindi pass + ten fixed crops → reconciled PageRecord
 * - table pages: Hindi and English passes → 30-slot TablePage
 * Failures are per page; a batch never stops because one page could not be read.
 */

package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adverant/nexus/electoralroll-worker/internal/errors"
	"github.com/adverant/nexus/electoralroll-worker/internal/extraction"
	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
	"github.com/adverant/nexus/electoralroll-worker/internal/storage"
)

// OCREngine returns the text recognized in an encoded image
type OCREngine interface {
	Recognize(ctx context.Context, imageData []byte, opts TextOptions) (string, error)
}

// PageRenderer rasterizes document pages
type PageRenderer interface {
	PageCount(ctx context.Context, path string) (int, error)
	RenderPage(ctx context.Context, path string, page int) ([]byte, error)
}

// ResultStore persists job status and extracted records
type ResultStore interface {
	UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error
	StoreCoverRecord(ctx context.Context, jobID string, rec *extraction.PageRecord) error
	StoreTablePage(ctx context.Context, jobID string, page *extraction.TablePage) error
}

// RollProcessorInterface is what the queue consumers depend on
type RollProcessorInterface interface {
	ProcessJob(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, progress int, metadata map[string]interface{}) error
}

// Job kinds
const (
	KindCover  = "cover"
	KindTables = "tables"
)

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	OCR      OCREngine
	Renderer PageRenderer
	Store    ResultStore // optional; nil skips persistence
	Logger   *logging.Logger

	Library *extraction.Library // nil uses the built-in library

	RenderDPI          int
	ContrastBoost      float64
	TableFirstPage     int
	TableTrailingPages int
	Concurrency        int
}

// ProcessRequest represents one queued unit of work
type ProcessRequest struct {
	JobID     string
	Kind      string
	FilePath  string
	FileName  string
	AC        int
	FirstPage int
	LastPage  int
}

// ProcessResult summarizes a processed job
type ProcessResult struct {
	Cover            *extraction.PageRecord
	Tables           []*extraction.TablePage
	Failures         []PageFailure
	ProcessingTimeMs int64
}

// PageFailure records a page that could not be processed
type PageFailure struct {
	FileName string
	Page     int
	Err      error
}

// CoverResult is the outcome for one file of a cover batch
type CoverResult struct {
	Path   string
	Record *extraction.PageRecord
	Err    error
}

// RollProcessor runs the OCR passes and the extraction engine
type RollProcessor struct {
	config     *ProcessorConfig
	ocr        OCREngine
	renderer   PageRenderer
	store      ResultStore
	extractor  *extraction.Extractor
	reconciler *extraction.Reconciler
	logger     *logging.Logger
}

// NewRollProcessor creates a new roll processor
func NewRollProcessor(cfg *ProcessorConfig) (*RollProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if cfg.OCR == nil {
		return nil, fmt.Errorf("OCR engine is required")
	}

	if cfg.Renderer == nil {
		return nil, fmt.Errorf("page renderer is required")
	}

	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = TemplateDPI
	}
	if cfg.TableFirstPage < 1 {
		cfg.TableFirstPage = 3
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("processor")
	}

	return &RollProcessor{
		config:     cfg,
		ocr:        cfg.OCR,
		renderer:   cfg.Renderer,
		store:      cfg.Store,
		extractor:  extraction.NewExtractor(cfg.Library, extraction.WithLogger(logger)),
		reconciler: extraction.NewReconciler(logger),
		logger:     logger,
	}, nil
}

// ProcessCoverImage extracts and reconciles the cover record from a rendered
// cover page.
func (p *RollProcessor) ProcessCoverImage(ctx context.Context, imageData []byte, fileName string, pageIndex int) (*extraction.PageRecord, error) {
	img, err := DecodeImage(imageData)
	if err != nil {
		return nil, errors.NewStructuralError(fileName, pageIndex, "cover page is not a readable image", err)
	}
	img = EnhanceContrast(img, p.config.ContrastBoost)

	pageData, err := p.pageBytes(img, imageData)
	if err != nil {
		return nil, errors.NewStructuralError(fileName, pageIndex, "cover page could not be encoded", err)
	}

	text, err := p.recognize(ctx, pageData, CoverPass)
	if err != nil {
		return nil, errors.NewOCRFailedError(fileName, pageIndex, CoverPass.Name, err)
	}

	rec, err := p.extractor.ExtractCover(pageIndex, text.Text)
	if err != nil {
		return nil, errors.NewStructuralError(fileName, pageIndex, "cover text is unusable", err)
	}

	crops, err := p.readCrops(ctx, img, fileName, pageIndex)
	if err != nil {
		return nil, err
	}

	p.reconciler.Reconcile(rec, &crops, fileName)
	return rec, nil
}

// readCrops OCRs the ten fixed regions into a crop vector.
func (p *RollProcessor) readCrops(ctx context.Context, img image.Image, fileName string, pageIndex int) (extraction.CropVector, error) {
	values := make([]string, 0, len(CoverCropRegions))
	for i, region := range CoverCropRegions {
		crop, err := CropImage(img, region.Scale(p.config.RenderDPI))
		if err != nil {
			return extraction.CropVector{}, errors.NewStructuralError(fileName, pageIndex,
				fmt.Sprintf("crop %d not available", i), err)
		}
		data, err := EncodePNG(crop)
		if err != nil {
			return extraction.CropVector{}, errors.NewStructuralError(fileName, pageIndex,
				fmt.Sprintf("crop %d could not be encoded", i), err)
		}
		pass := cropPass(i)
		res, err := p.recognize(ctx, data, pass)
		if err != nil {
			return extraction.CropVector{}, errors.NewOCRFailedError(fileName, pageIndex, pass.Name, err)
		}
		values = append(values, res.Text)
	}

	crops, err := extraction.NewCropVector(values)
	if err != nil {
		return extraction.CropVector{}, errors.NewStructuralError(fileName, pageIndex, "incomplete crop vector", err)
	}
	return crops, nil
}

// ProcessCover renders the first page of the roll at path (or reads it as an
// image) and returns its reconciled cover record.
func (p *RollProcessor) ProcessCover(ctx context.Context, path string) (*extraction.PageRecord, error) {
	return p.processCover(ctx, path, filepath.Base(path))
}

// processCover reads the cover of path, attributing it to fileName.
func (p *RollProcessor) processCover(ctx context.Context, path, fileName string) (*extraction.PageRecord, error) {
	data, err := p.loadPage(ctx, path, 1)
	if err != nil {
		return nil, err
	}
	return p.ProcessCoverImage(ctx, data, fileName, 1)
}

// ProcessTableImage reconstructs the voter grid of one rendered table page.
func (p *RollProcessor) ProcessTableImage(ctx context.Context, imageData []byte, fileName string, pageIndex int) (*extraction.TablePage, error) {
	img, err := DecodeImage(imageData)
	if err != nil {
		return nil, errors.NewStructuralError(fileName, pageIndex, "table page is not a readable image", err)
	}
	img = EnhanceContrast(img, p.config.ContrastBoost)

	pageData, err := p.pageBytes(img, imageData)
	if err != nil {
		return nil, errors.NewStructuralError(fileName, pageIndex, "table page could not be encoded", err)
	}

	hindi, err := p.recognize(ctx, pageData, TableHindiPass)
	if err != nil {
		return nil, errors.NewOCRFailedError(fileName, pageIndex, TableHindiPass.Name, err)
	}
	english, err := p.recognize(ctx, pageData, TableEnglishPass)
	if err != nil {
		return nil, errors.NewOCRFailedError(fileName, pageIndex, TableEnglishPass.Name, err)
	}

	page, err := p.extractor.ReconstructTable(pageIndex, hindi.Text, english.Text)
	if err != nil {
		return nil, errors.NewStructuralError(fileName, pageIndex, "table text is unusable", err)
	}
	page.FileName = fileName
	return page, nil
}

// TablePageRange resolves the table pages of a roll with pageCount pages.
// Zero first/last select the configured defaults.
func (p *RollProcessor) TablePageRange(pageCount, first, last int) (int, int, error) {
	if first <= 0 {
		first = p.config.TableFirstPage
	}
	if last <= 0 {
		last = pageCount - p.config.TableTrailingPages
	}
	if last > pageCount {
		last = pageCount
	}
	if first > last {
		return 0, 0, fmt.Errorf("no table pages in range [%d, %d] of %d pages", first, last, pageCount)
	}
	return first, last, nil
}

// ProcessTables reconstructs every table page of the roll at path. Pages that
// fail are reported and skipped; the returned pages are in page order.
func (p *RollProcessor) ProcessTables(ctx context.Context, path string, first, last int) ([]*extraction.TablePage, []PageFailure, error) {
	fileName := filepath.Base(path)

	count, err := p.renderer.PageCount(ctx, path)
	if err != nil {
		return nil, nil, errors.NewStructuralError(fileName, 0, "roll could not be opened", err)
	}
	first, last, err = p.TablePageRange(count, first, last)
	if err != nil {
		return nil, nil, errors.NewStructuralError(fileName, 0, "no table pages", err)
	}

	var (
		mu       sync.Mutex
		pages    []*extraction.TablePage
		failures []PageFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for page := first; page <= last; page++ {
		page := page
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := p.renderer.RenderPage(gctx, path, page)
			var table *extraction.TablePage
			if err != nil {
				err = errors.NewRenderFailedError(fileName, page, err)
			} else {
				table, err = p.ProcessTableImage(gctx, data, fileName, page)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Warn("table page failed", "file", fileName, "page", page, "error", err)
				failures = append(failures, PageFailure{FileName: fileName, Page: page, Err: err})
				return nil
			}
			pages = append(pages, table)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].PageIndex < pages[j].PageIndex })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Page < failures[j].Page })
	return pages, failures, nil
}

// ProcessCovers processes the cover page of each path with bounded
// concurrency. Results are in input order; a failed file carries its error.
// The returned error is only set when ctx ends the batch.
func (p *RollProcessor) ProcessCovers(ctx context.Context, paths []string) ([]CoverResult, error) {
	results := make([]CoverResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := p.ProcessCover(gctx, path)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			if err != nil {
				p.logger.Warn("cover page failed", "file", filepath.Base(path), "error", err)
			}
			results[i] = CoverResult{Path: path, Record: rec, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// ProcessJob runs one queued job end to end and records its status.
func (p *RollProcessor) ProcessJob(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	startTime := time.Now()
	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.FilePath)
	}

	p.logger.Info(fmt.Sprintf("[Job %s] Starting %s job", req.JobID, req.Kind), "file", fileName)

	// Step 1: Mark job as processing
	if err := p.UpdateJobStatus(ctx, req.JobID, "processing", 0, map[string]interface{}{
		"kind":     req.Kind,
		"fileName": fileName,
		"ac":       req.AC,
	}); err != nil {
		p.logger.Warn(fmt.Sprintf("[Job %s] Failed to record processing status", req.JobID), "error", err)
	}

	result := &ProcessResult{}

	switch req.Kind {
	case KindCover:
		// Step 2: Cover page OCR + extraction
		p.logger.Info(fmt.Sprintf("[Job %s] Step 2: Reading cover page", req.JobID))
		rec, err := p.processCover(ctx, req.FilePath, fileName)
		if err != nil {
			return nil, p.withJob(err, req.JobID)
		}
		result.Cover = rec

		// Step 3: Persist
		if p.store != nil {
			p.logger.Info(fmt.Sprintf("[Job %s] Step 3: Storing cover record", req.JobID))
			if err := p.store.StoreCoverRecord(ctx, req.JobID, rec); err != nil {
				return nil, errors.NewStorageFailedError(req.JobID, err)
			}
		}

	case KindTables:
		// Step 2: Table pages
		p.logger.Info(fmt.Sprintf("[Job %s] Step 2: Reading table pages", req.JobID),
			"first", req.FirstPage, "last", req.LastPage)
		pages, failures, err := p.ProcessTables(ctx, req.FilePath, req.FirstPage, req.LastPage)
		if err != nil {
			return nil, p.withJob(err, req.JobID)
		}
		result.Tables = pages
		result.Failures = failures

		// Step 3: Persist
		if p.store != nil {
			p.logger.Info(fmt.Sprintf("[Job %s] Step 3: Storing %d table pages", req.JobID, len(pages)))
			for _, page := range pages {
				page.FileName = fileName
				if err := p.store.StoreTablePage(ctx, req.JobID, page); err != nil {
					return nil, errors.NewStorageFailedError(req.JobID, err)
				}
			}
		}

	default:
		return nil, errors.NewStructuralError(fileName, 0, fmt.Sprintf("unknown job kind %q", req.Kind), nil).WithJob(req.JobID)
	}

	result.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	p.logger.Info(fmt.Sprintf("[Job %s] Completed", req.JobID),
		"pages", result.pageCount(),
		"failedPages", len(result.Failures),
		"processingTimeMs", result.ProcessingTimeMs,
	)
	return result, nil
}

func (r *ProcessResult) pageCount() int {
	if r.Cover != nil {
		return 1
	}
	return len(r.Tables)
}

// Metadata returns the status metadata recorded for a completed job
func (r *ProcessResult) Metadata() map[string]interface{} {
	failed := make([]map[string]interface{}, 0, len(r.Failures))
	for _, f := range r.Failures {
		failed = append(failed, map[string]interface{}{"page": f.Page, "error": f.Err.Error()})
	}
	md := map[string]interface{}{
		"pagesProcessed": r.pageCount(),
		"pagesFailed":    len(r.Failures),
		"processingTime": r.ProcessingTimeMs,
		"failures":       failed,
	}
	if r.Cover != nil {
		md["conflicts"] = r.Cover.Conflicts()
		md["part"] = r.Cover.Part.String()
	}
	return md
}

// UpdateJobStatus updates job status in database
func (p *RollProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, progress int, metadata map[string]interface{}) error {
	if p.store == nil {
		return nil
	}

	update := &storage.JobUpdate{
		JobID:    jobID,
		Status:   status,
		Metadata: metadata,
	}

	if metadata != nil {
		if kind, ok := metadata["kind"].(string); ok {
			update.Kind = kind
		}
		if fileName, ok := metadata["fileName"].(string); ok {
			update.FileName = fileName
		}
		if n, ok := metadata["pagesProcessed"].(int); ok {
			update.PagesProcessed = n
		}
		if n, ok := metadata["pagesFailed"].(int); ok {
			update.PagesFailed = n
		}
		if processingTime, ok := metadata["processingTime"].(int64); ok {
			update.ProcessingTimeMs = processingTime
		}
		if errorMsg, ok := metadata["error"].(string); ok {
			update.ErrorCode = "PROCESSING_ERROR"
			if code, ok := metadata["errorCode"].(string); ok {
				update.ErrorCode = code
			}
			update.ErrorMessage = errorMsg
		}
	}
	if update.Metadata == nil {
		update.Metadata = map[string]interface{}{}
	}
	update.Metadata["progress"] = progress

	return p.store.UpdateJobStatus(ctx, update)
}

func (p *RollProcessor) withJob(err error, jobID string) error {
	if pe, ok := err.(*errors.ProcessingError); ok {
		return pe.WithJob(jobID)
	}
	return err
}

// recognize runs one OCR pass and times it
func (p *RollProcessor) recognize(ctx context.Context, data []byte, opts TextOptions) (OCRResult, error) {
	start := time.Now()
	text, err := p.ocr.Recognize(ctx, data, opts)
	if err != nil {
		return OCRResult{}, err
	}
	return OCRResult{Text: text, Pass: opts.Name, Duration: time.Since(start)}, nil
}

// pageBytes returns the bytes to OCR for the full page: the original data
// unless contrast enhancement produced a new image.
func (p *RollProcessor) pageBytes(img image.Image, original []byte) ([]byte, error) {
	if p.config.ContrastBoost == 0 {
		return original, nil
	}
	return EncodePNG(img)
}

// loadPage returns page bytes for path: rendered if it is a PDF, read as-is
// if it is already an image.
func (p *RollProcessor) loadPage(ctx context.Context, path string, page int) ([]byte, error) {
	fileName := filepath.Base(path)

	head, err := readHead(path, 8)
	if err != nil {
		return nil, errors.NewStructuralError(fileName, page, "roll file not readable", err)
	}

	switch detectMimeTypeFromMagicBytes(head) {
	case "application/pdf":
		data, err := p.renderer.RenderPage(ctx, path, page)
		if err != nil {
			return nil, errors.NewRenderFailedError(fileName, page, err)
		}
		return data, nil
	case "image/png", "image/jpeg":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewStructuralError(fileName, page, "page image not readable", err)
		}
		return data, nil
	default:
		return nil, errors.NewStructuralError(fileName, page, "unsupported file format", nil)
	}
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && read == 0 {
		return nil, err
	}
	return buf[:read], nil
}

// detectMimeTypeFromMagicBytes detects the file types a roll can arrive as
func detectMimeTypeFromMagicBytes(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	// PDF: %PDF-
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return "application/pdf"
	}

	// PNG: 0x89 'P' 'N' 'G' 0x0D 0x0A 0x1A 0x0A
	if len(data) >= 8 && bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "image/png"
	}

	// JPEG: 0xFF 0xD8 0xFF
	if bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) {
		return "image/jpeg"
	}

	return ""
}
