/**
 * Grid Reconciler
 *
 * Overlays the crop vector and the file name onto a PageRecord. Every
 * candidate is kept with its source; precedence (filename > crop > page)
 * is applied when the record is rendered.
 */

package extraction

import (
	"strconv"
	"strings"

	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
)

// Reconciler merges secondary signals into PageRecords.
type Reconciler struct {
	log *logging.Logger
}

// NewReconciler creates a reconciler. A nil logger discards conflicts.
func NewReconciler(log *logging.Logger) *Reconciler {
	if log == nil {
		log = logging.Nop()
	}
	return &Reconciler{log: log}
}

// Reconcile mutates rec in place. crops may be nil when no crop vector was
// produced for the page; fileName may be empty.
func (r *Reconciler) Reconcile(rec *PageRecord, crops *CropVector, fileName string) {
	if fileName != "" {
		rec.FileName = fileName
	}

	if crops != nil {
		rec.Sanity = crops.SanityValues()
		for i := range rec.Sanity {
			rec.Sanity[i] = strings.TrimSpace(rec.Sanity[i])
		}
		if part, ok := normalizeNumber(crops.Part()); ok {
			rec.Part.Set(SourceCrop, part)
		}
		if zip := strings.TrimSpace(crops.ZipCode()); isDigits(zip) {
			rec.ZipCode.Set(SourceCrop, zip)
		}
		if po := strings.TrimSpace(crops.PostOffice()); po != "" {
			rec.PostOffice.Set(SourceCrop, po)
		}
		if d := strings.TrimSpace(crops.District()); d != "" {
			rec.District.Set(SourceCrop, d)
		}
	}

	if part, ok := PartFromFileName(rec.FileName); ok {
		rec.Part.Set(SourceFilename, strconv.Itoa(part))
	}

	for _, label := range rec.Conflicts() {
		f, _ := rec.Field(label)
		winner, _ := f.Resolve()
		r.log.Warn("sources disagree",
			"page", rec.PageIndex,
			"file", rec.FileName,
			"field", label,
			"winner", string(winner.Source),
			"candidates", f.Candidates,
		)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// normalizeNumber strips whitespace and zero padding from an all-digit string.
func normalizeNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return "", false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}
