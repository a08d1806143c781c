package extraction

import (
	"fmt"
	"strconv"
)

// Column names for cover rows. Order is part of the output contract.
var CoverColumns = []string{
	LabelAssemblyConstituency,
	LabelPart,
	LabelParliamentaryConstituency,
	LabelSubpart,
	LabelVillage,
	LabelPostOffice,
	LabelPoliceStation,
	LabelRajasvaHalka,
	LabelPanchayat,
	LabelAnchal,
	LabelPrakhand,
	LabelDistrict,
	LabelZipCode,
	LabelPollingBooth,
	LabelPollingAddress,
	"File Name",
	"Sanity 1",
	"Sanity 2",
	"Sanity 3",
	"Sanity 4",
	"Sanity 5",
	"Sanity 6",
}

// Column names for voter rows
var VoterColumns = []string{
	"Page",
	"Slot",
	LabelVoterID,
	LabelElectorName,
	LabelAge,
	LabelSex,
	LabelHouseNumber,
	LabelFamilyName,
}

// CoverRow flattens a record into CoverColumns order. Every column is
// populated; missing values render as Unknown.
func CoverRow(rec *PageRecord) []string {
	row := make([]string, 0, len(CoverColumns))
	for _, f := range rec.Fields() {
		row = append(row, f.Value.String())
	}
	row = append(row, orUnknown(rec.FileName))
	for i := 0; i < SanityCrops; i++ {
		v := ""
		if i < len(rec.Sanity) {
			v = rec.Sanity[i]
		}
		row = append(row, orUnknown(v))
	}
	return row
}

// VoterRows flattens the 30 slots of a table page into VoterColumns order.
func VoterRows(t *TablePage) [][]string {
	rows := make([][]string, 0, TableSlots)
	for _, v := range t.Entries {
		rows = append(rows, []string{
			strconv.Itoa(t.PageIndex),
			strconv.Itoa(v.Slot),
			v.VoterID,
			v.Name,
			strconv.Itoa(v.Age),
			string(v.Sex),
			v.HouseNumber,
			v.FamilyName,
		})
	}
	return rows
}

// CoverDocument is the JSON form of a cover record. Resolved values sit next
// to every candidate so disagreements stay auditable.
type CoverDocument struct {
	Page       int                    `json:"page"`
	FileName   string                 `json:"fileName"`
	Fields     map[string]string      `json:"fields"`
	Candidates map[string][]Candidate `json:"candidates"`
	Sanity     []string               `json:"sanity"`
	Conflicts  []string               `json:"conflicts,omitempty"`
}

// NewCoverDocument builds the JSON form of rec.
func NewCoverDocument(rec *PageRecord) CoverDocument {
	doc := CoverDocument{
		Page:       rec.PageIndex,
		FileName:   orUnknown(rec.FileName),
		Fields:     make(map[string]string, len(CoverColumns)),
		Candidates: make(map[string][]Candidate),
		Sanity:     make([]string, SanityCrops),
		Conflicts:  rec.Conflicts(),
	}
	for _, f := range rec.Fields() {
		doc.Fields[f.Label] = f.Value.String()
		if f.Value.Known() {
			doc.Candidates[f.Label] = append([]Candidate(nil), f.Value.Candidates...)
		}
	}
	for i := range doc.Sanity {
		doc.Sanity[i] = Unknown
		if i < len(rec.Sanity) {
			doc.Sanity[i] = orUnknown(rec.Sanity[i])
		}
	}
	return doc
}

// String is a short description used in logs
func (d CoverDocument) String() string {
	return fmt.Sprintf("page %d (%s): %d conflicts", d.Page, d.FileName, len(d.Conflicts))
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
