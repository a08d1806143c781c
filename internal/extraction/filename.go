package extraction

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

// MaxParts is the highest part number the naming convention can encode.
const MaxParts = 999

var partFromFile = regexp.MustCompile(`PartNo_(\d{3})`)

// PartFromFileName extracts the zero-padded part number from a roll file name.
func PartFromFileName(name string) (int, bool) {
	m := partFromFile.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// RollFileMatcher matches <naming>No_<AC>PartNo_<part>.<ext> for one
// assembly constituency and an inclusive part range.
type RollFileMatcher struct {
	re        *regexp.Regexp
	startPart int
	endPart   int
}

// NewRollFileMatcher builds a matcher. endPart 0 means MaxParts.
func NewRollFileMatcher(naming string, ac, startPart, endPart int) (*RollFileMatcher, error) {
	if naming == "" {
		return nil, fmt.Errorf("naming prefix is required")
	}
	if ac < 0 || ac > 999 {
		return nil, fmt.Errorf("AC must be between 0 and 999, got %d", ac)
	}
	if endPart == 0 {
		endPart = MaxParts
	}
	if startPart < 0 || endPart > MaxParts || startPart > endPart {
		return nil, fmt.Errorf("invalid part range [%d, %d]", startPart, endPart)
	}
	expr := `^` + regexp.QuoteMeta(naming) + `No_` + fmt.Sprintf("%03d", ac) + `PartNo_(\d{3})\.[A-Za-z0-9]+$`
	return &RollFileMatcher{
		re:        regexp.MustCompile(expr),
		startPart: startPart,
		endPart:   endPart,
	}, nil
}

// Match returns the part number when name follows the convention and the
// part is inside the range.
func (m *RollFileMatcher) Match(name string) (int, bool) {
	sub := m.re.FindStringSubmatch(filepath.Base(name))
	if sub == nil {
		return 0, false
	}
	part, err := strconv.Atoi(sub[1])
	if err != nil {
		return 0, false
	}
	if part < m.startPart || part > m.endPart {
		return 0, false
	}
	return part, true
}
