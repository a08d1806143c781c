package extraction

import (
	"fmt"
	"strings"
)

// Unknown is rendered for any field without a candidate value.
const Unknown = "unknown"

// Source identifies where a candidate value came from.
type Source string

const (
	SourceFilename Source = "filename"
	SourceCrop     Source = "crop"
	SourcePage     Source = "page"
)

// rank orders sources by precedence; lower wins.
func (s Source) rank() int {
	switch s {
	case SourceFilename:
		return 0
	case SourceCrop:
		return 1
	case SourcePage:
		return 2
	}
	return 3
}

// Candidate is one observed value for a field. Pair fields carry two values.
type Candidate struct {
	Source Source   `json:"source"`
	Values []string `json:"values"`
}

// String renders the candidate the way it appears in output rows.
func (c Candidate) String() string {
	return strings.Join(c.Values, " - ")
}

// FieldValue holds every candidate seen for one field, at most one per source.
type FieldValue struct {
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Set records a candidate, replacing any earlier one from the same source.
func (f *FieldValue) Set(src Source, values ...string) {
	c := Candidate{Source: src, Values: append([]string(nil), values...)}
	for i := range f.Candidates {
		if f.Candidates[i].Source == src {
			f.Candidates[i] = c
			return
		}
	}
	f.Candidates = append(f.Candidates, c)
}

// Candidate returns the candidate from src, if any
func (f FieldValue) Candidate(src Source) (Candidate, bool) {
	for _, c := range f.Candidates {
		if c.Source == src {
			return c, true
		}
	}
	return Candidate{}, false
}

// Resolve applies source precedence: filename, then crop, then page.
func (f FieldValue) Resolve() (Candidate, bool) {
	best := -1
	for i, c := range f.Candidates {
		if best < 0 || c.Source.rank() < f.Candidates[best].Source.rank() {
			best = i
		}
	}
	if best < 0 {
		return Candidate{}, false
	}
	return f.Candidates[best], true
}

// Known reports whether any candidate exists
func (f FieldValue) Known() bool { return len(f.Candidates) > 0 }

// String returns the resolved value or Unknown.
func (f FieldValue) String() string {
	c, ok := f.Resolve()
	if !ok {
		return Unknown
	}
	return c.String()
}

// Conflicting reports whether the candidates disagree.
func (f FieldValue) Conflicting() bool {
	for i := 1; i < len(f.Candidates); i++ {
		if f.Candidates[i].String() != f.Candidates[0].String() {
			return true
		}
	}
	return false
}

// PageRecord is the structured record for one cover page.
type PageRecord struct {
	PageIndex int
	FileName  string

	AssemblyConstituency      FieldValue
	Part                      FieldValue
	ParliamentaryConstituency FieldValue
	Subpart                   FieldValue
	Village                   FieldValue
	PostOffice                FieldValue
	PoliceStation             FieldValue
	RajasvaHalka              FieldValue
	Panchayat                 FieldValue
	Anchal                    FieldValue
	Prakhand                  FieldValue
	District                  FieldValue
	ZipCode                   FieldValue
	PollingBooth              FieldValue
	PollingAddress            FieldValue

	// Sanity holds the six raw sanity crops; nil until a crop vector is reconciled.
	Sanity []string
}

// NamedField pairs a label with the record field it addresses.
type NamedField struct {
	Label string
	Value *FieldValue
}

// Fields lists the extracted fields in output order.
func (r *PageRecord) Fields() []NamedField {
	return []NamedField{
		{LabelAssemblyConstituency, &r.AssemblyConstituency},
		{LabelPart, &r.Part},
		{LabelParliamentaryConstituency, &r.ParliamentaryConstituency},
		{LabelSubpart, &r.Subpart},
		{LabelVillage, &r.Village},
		{LabelPostOffice, &r.PostOffice},
		{LabelPoliceStation, &r.PoliceStation},
		{LabelRajasvaHalka, &r.RajasvaHalka},
		{LabelPanchayat, &r.Panchayat},
		{LabelAnchal, &r.Anchal},
		{LabelPrakhand, &r.Prakhand},
		{LabelDistrict, &r.District},
		{LabelZipCode, &r.ZipCode},
		{LabelPollingBooth, &r.PollingBooth},
		{LabelPollingAddress, &r.PollingAddress},
	}
}

// Field returns the field addressed by label
func (r *PageRecord) Field(label string) (*FieldValue, bool) {
	for _, f := range r.Fields() {
		if f.Label == label {
			return f.Value, true
		}
	}
	return nil, false
}

// Conflicts returns the labels whose candidates disagree.
func (r *PageRecord) Conflicts() []string {
	var labels []string
	for _, f := range r.Fields() {
		if f.Value.Conflicting() {
			labels = append(labels, f.Label)
		}
	}
	return labels
}

// Crop vector layout. Offsets are positional, not semantic.
const (
	CropVectorLen  = 10
	SanityCrops    = 6
	cropPart       = 6
	cropZipCode    = 7
	cropPostOffice = 8
	cropDistrict   = 9
)

// CropVector is the OCR text of the ten fixed cover page regions.
type CropVector [CropVectorLen]string

// NewCropVector builds a vector from exactly ten values.
func NewCropVector(values []string) (CropVector, error) {
	var v CropVector
	if len(values) != CropVectorLen {
		return v, fmt.Errorf("crop vector needs %d values, got %d", CropVectorLen, len(values))
	}
	copy(v[:], values)
	return v, nil
}

func (v CropVector) SanityValues() []string { return append([]string(nil), v[:SanityCrops]...) }
func (v CropVector) Part() string           { return v[cropPart] }
func (v CropVector) ZipCode() string        { return v[cropZipCode] }
func (v CropVector) PostOffice() string     { return v[cropPostOffice] }
func (v CropVector) District() string       { return v[cropDistrict] }
