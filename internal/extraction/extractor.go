/**
 * Field Extractor
 *
 * Builds a best-effort PageRecord from one cover page's Hindi OCR text.
 * Each field pattern runs independently over the whole text; a miss leaves
 * the field without candidates, which renders as "unknown".
 */

package extraction

import (
	"errors"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
)

// ErrInvalidText is returned for OCR text that is not valid UTF-8.
var ErrInvalidText = errors.New("ocr text is not valid UTF-8")

// Extractor runs the pattern library against OCR text.
type Extractor struct {
	lib *Library
	log *logging.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger used for data-quality signals
func WithLogger(l *logging.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// NewExtractor creates an extractor over lib. A nil lib uses DefaultLibrary.
func NewExtractor(lib *Library, opts ...Option) *Extractor {
	if lib == nil {
		lib = DefaultLibrary()
	}
	e := &Extractor{lib: lib, log: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Library returns the library the extractor matches with
func (e *Extractor) Library() *Library { return e.lib }

// ExtractCover builds the base PageRecord for a cover page.
func (e *Extractor) ExtractCover(pageIndex int, text string) (*PageRecord, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}
	text = norm.NFC.String(text)

	rec := &PageRecord{PageIndex: pageIndex}
	for _, f := range rec.Fields() {
		p, ok := e.lib.Pattern(f.Label)
		if !ok {
			continue
		}
		values, ok := p.Find(text)
		if !ok || hasEmpty(values) {
			e.log.Debug("field not found", "page", pageIndex, "field", f.Label)
			continue
		}
		if f.Label == LabelPart {
			n, err := strconv.Atoi(values[0])
			if err != nil {
				continue
			}
			values = []string{strconv.Itoa(n)}
		}
		f.Value.Set(SourcePage, values...)
	}
	return rec, nil
}

// hasEmpty reports whether a capture was cut down to nothing by the next
// header, as in a header printed with no value.
func hasEmpty(values []string) bool {
	for _, v := range values {
		if v == "" {
			return true
		}
	}
	return false
}
