/**
 * Pattern Library for electoral roll extraction
 *
 * Every semantic field on a cover page or voter table is located by the printed
 * Hindi header that precedes it. OCR reads the typeset headers far more reliably
 * than the variable text after them, so each pattern anchors on the header and
 * captures whatever follows in a field-specific character class.
 */

package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Cardinality is the number of capture groups a pattern yields
type Cardinality int

const (
	Single Cardinality = 1
	Pair   Cardinality = 2
)

// Pattern labels. Cover labels double as output column names.
const (
	LabelAssemblyConstituency      = "Assembly Constituency"
	LabelPart                      = "Part"
	LabelParliamentaryConstituency = "Parliamentary Constituency"
	LabelSubpart                   = "Subpart"
	LabelVillage                   = "Village"
	LabelPostOffice                = "Post Office"
	LabelPoliceStation             = "Police Station"
	LabelRajasvaHalka              = "Rajasva Halka"
	LabelPanchayat                 = "Panchayat"
	LabelAnchal                    = "Anchal"
	LabelPrakhand                  = "Prakhand"
	LabelDistrict                  = "District"
	LabelZipCode                   = "Zip Code"
	LabelPollingBooth              = "Polling Booth"
	LabelPollingAddress            = "Polling Address"

	LabelElectorName = "Elector Name"
	LabelFamilyName  = "Family Name"
	LabelAge         = "Age"
	LabelHouseNumber = "House Number"
	LabelSex         = "Sex"
	LabelVoterID     = "Voter ID"
)

// Character classes. devanagari spans the whole code block so that OCR
// substitutions inside the block (stray nukta, danda, vowel signs) still match.
const (
	devanagari       = `\x{0900}-\x{097F}`
	devanagariDigits = `\x{0966}-\x{096F}`

	// ClassPhrase is one line of space separated Devanagari words.
	ClassPhrase = `[` + devanagari + `]+(?:[ \t]+[` + devanagari + `]+)*`
	// ClassName is a one or two word personal name.
	ClassName = `[` + devanagari + `]+(?: [` + devanagari + `]+)?`
	// ClassMixed allows ASCII digits and hyphens between Devanagari words.
	ClassMixed = `[` + devanagari + `0-9]+(?:[ \t\-/,]+[` + devanagari + `0-9]+)*`
	// ClassWord is a single Devanagari word.
	ClassWord = `[` + devanagari + `]+`

	ClassPartNumber = `[0-9]{1,3}`
	ClassZipCode    = `[0-9]{6}`
	ClassHalka      = `[0-9]{1,4}`
	ClassHouse      = `[0-9]{1,4}`
	// ClassAge accepts Devanagari digits so a misread age still occupies its
	// slot; the integer coercion rejects them later.
	ClassAge = `[0-9` + devanagariDigits + `]{1,3}`

	ClassVoterID = `BR/[0-9]{2}/[0-9]{3}/[0-9]{6}|[A-Z]{3}[0-9]{7}`

	// pairNumber is the constituency number in front of the dash.
	pairNumber = `[0-9` + devanagariDigits + `]{1,3}`
)

// noiseSeparator is the optional glyph OCR puts where the printed colon was.
const noiseSeparator = `\s*(?:[:;|!.।ः\-]\s*)?`

// PatternSpec describes a pattern before compilation
type PatternSpec struct {
	Label       string
	Anchors     []string // alternative header phrases; empty means unanchored
	Class       string
	Cardinality Cardinality
}

// Pattern is a compiled, read-only field pattern
type Pattern struct {
	label       string
	anchors     []string
	class       string
	cardinality Cardinality
	re          *regexp.Regexp

	// boundary matches any header of the owning library; captures end where
	// the next header begins.
	boundary *regexp.Regexp
	window   int
}

// Label returns the field label
func (p *Pattern) Label() string { return p.label }

// Cardinality returns how many values a match yields
func (p *Pattern) Cardinality() Cardinality { return p.cardinality }

// Expr returns the compiled expression source
func (p *Pattern) Expr() string { return p.re.String() }

// Find returns the captured values of the left-most match in text.
func (p *Pattern) Find(text string) ([]string, bool) {
	values, _, ok := p.match(text, 0)
	return values, ok
}

// FindAll returns the captured values of every non-overlapping match, in
// document order.
func (p *Pattern) FindAll(text string) [][]string {
	var res [][]string
	for pos := 0; pos <= len(text); {
		values, next, ok := p.match(text, pos)
		if !ok {
			break
		}
		res = append(res, values)
		if next <= pos {
			next = pos + 1
		}
		pos = next
	}
	return res
}

// match finds the first match at or after from. Captures are cut at the
// first header that starts inside them, and next is the offset after the
// cut, so a header swallowed by a capture is still found by the next call.
func (p *Pattern) match(text string, from int) ([]string, int, bool) {
	loc := p.re.FindStringSubmatchIndex(text[from:])
	if loc == nil {
		return nil, 0, false
	}
	for i := range loc {
		if loc[i] >= 0 {
			loc[i] += from
		}
	}

	end := loc[1]
	if cut, ok := p.headerWithin(text, loc[2], end); ok {
		end = cut
	}

	groups := make([]string, 0, len(loc)/2-1)
	for i := 2; i+1 < len(loc); i += 2 {
		start, stop := loc[i], loc[i+1]
		if start < 0 {
			groups = append(groups, "")
			continue
		}
		if start > end {
			start = end
		}
		if stop > end {
			stop = end
		}
		groups = append(groups, strings.TrimRight(strings.TrimSpace(text[start:stop]), " \t-/,"))
	}
	return groups, end, true
}

// headerWithin reports the offset of the first library header that starts in
// text[start:end].
func (p *Pattern) headerWithin(text string, start, end int) (int, bool) {
	if p.boundary == nil || start < 0 || start >= end {
		return 0, false
	}
	limit := end + p.window
	if limit > len(text) {
		limit = len(text)
	}
	m := p.boundary.FindStringSubmatchIndex(text[start:limit])
	if m == nil || start+m[2] >= end {
		return 0, false
	}
	return start + m[2], true
}

// compile builds anchor + separator + capture for a spec.
func compile(spec PatternSpec) (*Pattern, error) {
	if spec.Label == "" {
		return nil, fmt.Errorf("pattern label is required")
	}
	if spec.Class == "" {
		return nil, fmt.Errorf("pattern %q: class is required", spec.Label)
	}

	var b strings.Builder
	if len(spec.Anchors) > 0 {
		alts := make([]string, 0, len(spec.Anchors))
		for _, a := range spec.Anchors {
			words := strings.Fields(a)
			if len(words) == 0 {
				return nil, fmt.Errorf("pattern %q: empty anchor", spec.Label)
			}
			for i, w := range words {
				words[i] = regexp.QuoteMeta(w)
			}
			alts = append(alts, strings.Join(words, `\s+`))
		}
		b.WriteString(`(?:` + strings.Join(alts, `|`) + `)`)
		b.WriteString(noiseSeparator)
	}

	switch spec.Cardinality {
	case Single:
		b.WriteString(`(` + spec.Class + `)`)
	case Pair:
		b.WriteString(`(` + pairNumber + `)\s*[-–—]\s*(` + spec.Class + `)`)
	default:
		return nil, fmt.Errorf("pattern %q: unsupported cardinality %d", spec.Label, spec.Cardinality)
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", spec.Label, err)
	}

	return &Pattern{
		label:       spec.Label,
		anchors:     append([]string(nil), spec.Anchors...),
		class:       spec.Class,
		cardinality: spec.Cardinality,
		re:          re,
	}, nil
}

// Library is an immutable set of compiled patterns keyed by label.
// Safe for concurrent use.
type Library struct {
	patterns map[string]*Pattern
	labels   []string
}

// NewLibrary compiles specs into a library. Labels must be unique.
func NewLibrary(specs []PatternSpec) (*Library, error) {
	lib := &Library{
		patterns: make(map[string]*Pattern, len(specs)),
		labels:   make([]string, 0, len(specs)),
	}
	for _, spec := range specs {
		if _, dup := lib.patterns[spec.Label]; dup {
			return nil, fmt.Errorf("duplicate pattern label %q", spec.Label)
		}
		p, err := compile(spec)
		if err != nil {
			return nil, err
		}
		lib.patterns[spec.Label] = p
		lib.labels = append(lib.labels, spec.Label)
	}

	boundary, window, err := headerBoundary(specs)
	if err != nil {
		return nil, err
	}
	for _, p := range lib.patterns {
		p.boundary = boundary
		p.window = window
	}
	return lib, nil
}

// headerSeparator must follow a one-word header for it to end a capture; a
// lone word like पंचायत is also an ordinary part of names and addresses.
const headerSeparator = `\s*[:;|!।ः]`

// headerBoundary compiles every anchor of specs into one expression whose
// first group is the header start. A header only counts at a word start.
func headerBoundary(specs []PatternSpec) (*regexp.Regexp, int, error) {
	var alts []string
	longest := 0
	for _, spec := range specs {
		for _, a := range spec.Anchors {
			words := strings.Fields(a)
			for i, w := range words {
				words[i] = regexp.QuoteMeta(w)
			}
			alt := strings.Join(words, `\s+`)
			if len(words) == 1 {
				alt += headerSeparator
			}
			alts = append(alts, alt)
			if len(a) > longest {
				longest = len(a)
			}
		}
	}
	if len(alts) == 0 {
		return nil, 0, nil
	}
	re, err := regexp.Compile(`(?:^|\s)((?:` + strings.Join(alts, `)|(?:`) + `))`)
	if err != nil {
		return nil, 0, fmt.Errorf("header boundary: %w", err)
	}
	// room for the rest of a header that starts just before the capture end
	return re, 2*longest + 16, nil
}

// Pattern returns the pattern for label
func (l *Library) Pattern(label string) (*Pattern, bool) {
	p, ok := l.patterns[label]
	return p, ok
}

// Labels returns labels in definition order
func (l *Library) Labels() []string {
	return append([]string(nil), l.labels...)
}

// mustPattern is used by the extractor for labels it requires.
func (l *Library) mustPattern(label string) (*Pattern, error) {
	p, ok := l.patterns[label]
	if !ok {
		return nil, fmt.Errorf("pattern library has no %q pattern", label)
	}
	return p, nil
}

// DefaultSpecs returns the pattern specs for the Bihar electoral roll template.
func DefaultSpecs() []PatternSpec {
	return []PatternSpec{
		{Label: LabelAssemblyConstituency, Anchors: []string{"विधान सभा निर्वाचन क्षेत्र की संख्या एवं नाम", "विधान सभा क्षेत्र की संख्या एवं नाम"}, Class: ClassPhrase, Cardinality: Pair},
		{Label: LabelPart, Anchors: []string{"भाग संख्या"}, Class: ClassPartNumber, Cardinality: Single},
		{Label: LabelParliamentaryConstituency, Anchors: []string{"संसदीय निर्वाचन क्षेत्र की संख्या एवं नाम", "संसदीय क्षेत्र की संख्या एवं नाम"}, Class: ClassPhrase, Cardinality: Pair},
		{Label: LabelSubpart, Anchors: []string{"उप-भाग की संख्या एवं नाम", "उप भाग की संख्या एवं नाम", "उप-भाग"}, Class: ClassMixed, Cardinality: Single},
		{Label: LabelVillage, Anchors: []string{"मुख्य ग्राम", "मुख्य शहर/ग्राम"}, Class: ClassPhrase, Cardinality: Single},
		{Label: LabelPostOffice, Anchors: []string{"डाकघर"}, Class: ClassPhrase, Cardinality: Single},
		{Label: LabelPoliceStation, Anchors: []string{"थाना"}, Class: ClassPhrase, Cardinality: Single},
		{Label: LabelRajasvaHalka, Anchors: []string{"राजस्व हल्का", "राजस्व हलका"}, Class: ClassHalka, Cardinality: Single},
		{Label: LabelPanchayat, Anchors: []string{"पंचायत"}, Class: ClassPhrase, Cardinality: Single},
		{Label: LabelAnchal, Anchors: []string{"अंचल"}, Class: ClassPhrase, Cardinality: Single},
		{Label: LabelPrakhand, Anchors: []string{"प्रखंड", "प्रखण्ड"}, Class: ClassPhrase, Cardinality: Single},
		{Label: LabelDistrict, Anchors: []string{"जिला"}, Class: ClassPhrase, Cardinality: Single},
		{Label: LabelZipCode, Anchors: []string{"पिन कोड", "पिनकोड"}, Class: ClassZipCode, Cardinality: Single},
		{Label: LabelPollingBooth, Anchors: []string{"मतदान केन्द्र की संख्या एवं नाम", "मतदान केंद्र की संख्या एवं नाम"}, Class: ClassMixed, Cardinality: Single},
		{Label: LabelPollingAddress, Anchors: []string{"मतदान केन्द्र का पता", "मतदान केंद्र का पता"}, Class: ClassMixed, Cardinality: Single},

		{Label: LabelElectorName, Anchors: []string{"निर्वाचक का नाम"}, Class: ClassName, Cardinality: Single},
		{Label: LabelFamilyName, Anchors: []string{"पिता का नाम", "पति का नाम"}, Class: ClassName, Cardinality: Single},
		{Label: LabelAge, Anchors: []string{"उम्र", "आयु"}, Class: ClassAge, Cardinality: Single},
		{Label: LabelHouseNumber, Anchors: []string{"गृह संख्या", "मकान संख्या"}, Class: ClassHouse, Cardinality: Single},
		{Label: LabelSex, Anchors: []string{"लिंग"}, Class: ClassWord, Cardinality: Single},
		{Label: LabelVoterID, Class: ClassVoterID, Cardinality: Single},
	}
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// DefaultLibrary returns the shared library built from DefaultSpecs.
// It panics if the built-in specs fail to compile.
func DefaultLibrary() *Library {
	defaultOnce.Do(func() {
		lib, err := NewLibrary(DefaultSpecs())
		if err != nil {
			panic(fmt.Sprintf("extraction: default pattern library: %v", err))
		}
		defaultLib = lib
	})
	return defaultLib
}
