/**
 * Output writers for the electoral roll worker
 *
 * Cover records are written one row per part file, voter slots one row per
 * slot. CSV is the default; JSONL carries the candidate lists for audit.
 */

package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adverant/nexus/electoralroll-worker/internal/extraction"
)

// Format selects the serialization of cover records
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv", "json" or "jsonl".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json", "jsonl":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Extension is the file extension written for f.
func (f Format) Extension() string {
	if f == FormatJSON {
		return ".jsonl"
	}
	return ".csv"
}

// CoverPath is <dir>/output<AC>.<ext>
func CoverPath(dir string, ac int, f Format) string {
	return filepath.Join(dir, fmt.Sprintf("output%d%s", ac, f.Extension()))
}

// VoterPath is <dir>/voters_<base>.csv where base is the roll file name
// without its extension.
func VoterPath(dir, rollFile string) string {
	base := filepath.Base(rollFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "voters_"+base+".csv")
}

// CoverWriter streams cover records. Close flushes.
type CoverWriter struct {
	format Format
	csv    *csv.Writer
	enc    *json.Encoder
	closer io.Closer
	rows   int
}

// NewCoverWriter wraps w. The CSV header is written immediately.
func NewCoverWriter(w io.Writer, f Format) (*CoverWriter, error) {
	cw := &CoverWriter{format: f}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	switch f {
	case FormatJSON:
		cw.enc = json.NewEncoder(w)
		cw.enc.SetEscapeHTML(false)
	case FormatCSV:
		cw.csv = csv.NewWriter(w)
		if err := cw.csv.Write(extraction.CoverColumns); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
	return cw, nil
}

// CreateCoverFile creates the parent directory and opens path for writing.
func CreateCoverFile(path string, f Format) (*CoverWriter, error) {
	file, err := create(path)
	if err != nil {
		return nil, err
	}
	cw, err := NewCoverWriter(file, f)
	if err != nil {
		file.Close()
		return nil, err
	}
	return cw, nil
}

// Write appends one record
func (cw *CoverWriter) Write(rec *extraction.PageRecord) error {
	cw.rows++
	if cw.enc != nil {
		return cw.enc.Encode(extraction.NewCoverDocument(rec))
	}
	return cw.csv.Write(extraction.CoverRow(rec))
}

// Rows is the number of records written so far
func (cw *CoverWriter) Rows() int {
	return cw.rows
}

// Close flushes buffered rows and closes the underlying file, if any.
func (cw *CoverWriter) Close() error {
	var err error
	if cw.csv != nil {
		cw.csv.Flush()
		err = cw.csv.Error()
	}
	if cw.closer != nil {
		if cerr := cw.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// WriteVoters writes the header and every slot of pages, in page order as given.
func WriteVoters(w io.Writer, pages []*extraction.TablePage) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(extraction.VoterColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range pages {
		if err := cw.WriteAll(extraction.VoterRows(p)); err != nil {
			return fmt.Errorf("failed to write page %d: %w", p.PageIndex, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVoterFile writes pages to path, creating the parent directory.
func WriteVoterFile(path string, pages []*extraction.TablePage) error {
	file, err := create(path)
	if err != nil {
		return err
	}
	if err := WriteVoters(file, pages); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, nil
}
