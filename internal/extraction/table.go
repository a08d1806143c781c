/**
 * Table Reconstructor
 *
 * A table page prints 30 voters as three columns of ten. The Hindi pass reads
 * the boxes row by row, while the English pass returns voter IDs column by
 * column, so the IDs are transposed before the lists are zipped by slot.
 */

package extraction

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Table grid geometry
const (
	TableSlots   = 30
	TableRows    = 10
	TableColumns = 3
)

// AgeUnknown is stored when no age was read or the read value is not a number.
const AgeUnknown = 0

// Sex of a voter as printed on the roll
type Sex string

const (
	SexFemale  Sex = "female"
	SexMale    Sex = "male"
	SexUnknown Sex = Unknown
)

// ParseSex maps the printed Hindi word to a Sex.
func ParseSex(s string) Sex {
	switch strings.TrimSpace(s) {
	case "महिला", "स्त्री":
		return SexFemale
	case "पुरुष", "पुरूष":
		return SexMale
	}
	return SexUnknown
}

// FieldSet records which fields of a VoterEntry came from an actual match.
// A cleared bit means the slot was padded, not that the form was blank.
type FieldSet uint8

const (
	HasVoterID FieldSet = 1 << iota
	HasName
	HasAge
	HasSex
	HasHouseNumber
	HasFamilyName
)

// Has reports whether every bit in f is set
func (s FieldSet) Has(f FieldSet) bool { return s&f == f }

// VoterEntry is one slot of the voter grid.
type VoterEntry struct {
	Slot        int      `json:"slot"`
	VoterID     string   `json:"voterId"`
	Name        string   `json:"name"`
	Age         int      `json:"age"`
	RawAge      string   `json:"rawAge,omitempty"`
	Sex         Sex      `json:"sex"`
	HouseNumber string   `json:"houseNumber"`
	FamilyName  string   `json:"familyName"`
	Found       FieldSet `json:"found"`
}

// TablePage holds the fixed 30 slots for one table page.
type TablePage struct {
	PageIndex int                    `json:"page"`
	FileName  string                 `json:"fileName,omitempty"`
	Entries   [TableSlots]VoterEntry `json:"entries"`
}

// ReconstructTable builds the 30 voter entries for one table page from its
// Hindi and English OCR text.
func (e *Extractor) ReconstructTable(pageIndex int, hindi, english string) (*TablePage, error) {
	if !utf8.ValidString(hindi) || !utf8.ValidString(english) {
		return nil, ErrInvalidText
	}
	hindi = norm.NFC.String(hindi)

	names, nameFound, err := e.column(LabelElectorName, hindi, pageIndex)
	if err != nil {
		return nil, err
	}
	families, familyFound, err := e.column(LabelFamilyName, hindi, pageIndex)
	if err != nil {
		return nil, err
	}
	ages, ageFound, err := e.column(LabelAge, hindi, pageIndex)
	if err != nil {
		return nil, err
	}
	houses, houseFound, err := e.column(LabelHouseNumber, hindi, pageIndex)
	if err != nil {
		return nil, err
	}
	sexes, sexFound, err := e.column(LabelSex, hindi, pageIndex)
	if err != nil {
		return nil, err
	}
	ids, idFound, err := e.column(LabelVoterID, english, pageIndex)
	if err != nil {
		return nil, err
	}
	ids = ColumnToRowMajor(ids[:TableSlots])
	idFound = transpose(idFound[:TableSlots], TableRows, TableColumns)

	page := &TablePage{PageIndex: pageIndex}
	for i := 0; i < TableSlots; i++ {
		v := VoterEntry{
			Slot:        i,
			VoterID:     ids[i],
			Name:        names[i],
			RawAge:      ages[i],
			Age:         AgeUnknown,
			Sex:         SexUnknown,
			HouseNumber: houses[i],
			FamilyName:  families[i],
		}
		if idFound[i] {
			v.Found |= HasVoterID
		}
		if nameFound[i] {
			v.Found |= HasName
		}
		if familyFound[i] {
			v.Found |= HasFamilyName
		}
		if houseFound[i] {
			v.Found |= HasHouseNumber
		}
		if sexFound[i] {
			v.Found |= HasSex
			v.Sex = ParseSex(sexes[i])
		}
		if ageFound[i] {
			v.Found |= HasAge
			age, err := strconv.Atoi(ages[i])
			if err != nil {
				e.log.Warn("age is not a number", "page", pageIndex, "slot", i, "raw", ages[i])
			} else {
				v.Age = age
			}
		}
		page.Entries[i] = v
	}
	return page, nil
}

// column returns the first capture of every match for label, padded to at
// least TableSlots, and a parallel slice marking real matches.
func (e *Extractor) column(label, text string, pageIndex int) ([]string, []bool, error) {
	p, err := e.lib.mustPattern(label)
	if err != nil {
		return nil, nil, err
	}
	matches := p.FindAll(text)
	values := make([]string, 0, len(matches))
	for _, m := range matches {
		values = append(values, m[0])
	}
	if len(values) > TableSlots {
		e.log.Warn("more matches than table slots",
			"page", pageIndex, "field", label, "matches", len(values))
	}
	found := make([]bool, len(values))
	for i := range found {
		found[i] = true
	}
	return padTo(values, TableSlots, ""), padTo(found, TableSlots, false), nil
}

// padTo right-pads s with fill up to n elements. Longer slices are returned
// unchanged.
func padTo[T any](s []T, n int, fill T) []T {
	for len(s) < n {
		s = append(s, fill)
	}
	return s
}

// transpose reads in as a column-major rows x cols grid and returns it in
// row-major order: out[r*cols+c] = in[c*rows+r]. Short input is padded with
// the zero value; extra elements are ignored.
func transpose[T any](in []T, rows, cols int) []T {
	if len(in) < rows*cols {
		var zero T
		in = padTo(append([]T(nil), in...), rows*cols, zero)
	}
	out := make([]T, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[r*cols+c] = in[c*rows+r]
		}
	}
	return out
}

// ColumnToRowMajor reorders the 30 voter IDs read down each column into
// reading order: slot 3j+k takes column-major index j+10k.
func ColumnToRowMajor(in []string) []string {
	return transpose(in, TableRows, TableColumns)
}

// RowMajorToColumnMajor undoes ColumnToRowMajor.
func RowMajorToColumnMajor(in []string) []string {
	return transpose(in, TableColumns, TableRows)
}
