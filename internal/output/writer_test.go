package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/electoralroll-worker/internal/extraction"
)

func testRecord() *extraction.PageRecord {
	rec := &extraction.PageRecord{PageIndex: 0, FileName: "ABCNo_024PartNo_007.pdf"}
	rec.Part.Set(extraction.SourcePage, "9")
	rec.Part.Set(extraction.SourceFilename, "7")
	rec.District.Set(extraction.SourceCrop, "अररिया")
	rec.AssemblyConstituency.Set(extraction.SourcePage, "24", "सिकटी")
	rec.Sanity = []string{"1", "2", "3", "4", "5", "6"}
	return rec
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"json", FormatJSON, false},
		{"jsonl", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "output24.csv"), CoverPath("out", 24, FormatCSV))
	assert.Equal(t, filepath.Join("out", "output24.jsonl"), CoverPath("out", 24, FormatJSON))
	assert.Equal(t, filepath.Join("out", "voters_ABCNo_024PartNo_007.csv"), VoterPath("out", "/rolls/ABCNo_024PartNo_007.pdf"))
}

func TestCoverWriterCSV(t *testing.T) {
	var buf bytes.Buffer
	cw, err := NewCoverWriter(&buf, FormatCSV)
	require.NoError(t, err)
	require.NoError(t, cw.Write(testRecord()))
	require.NoError(t, cw.Close())
	assert.Equal(t, 1, cw.Rows())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, extraction.CoverColumns, rows[0])
	assert.Equal(t, "24 - सिकटी", rows[1][0])
	assert.Equal(t, "7", rows[1][1])
	assert.Equal(t, extraction.Unknown, rows[1][2])
}

func TestCoverWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	cw, err := NewCoverWriter(&buf, FormatJSON)
	require.NoError(t, err)
	require.NoError(t, cw.Write(testRecord()))
	require.NoError(t, cw.Write(testRecord()))
	require.NoError(t, cw.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var doc extraction.CoverDocument
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &doc))
	assert.Equal(t, "7", doc.Fields[extraction.LabelPart])
	assert.Len(t, doc.Candidates[extraction.LabelPart], 2)
	assert.Contains(t, doc.Conflicts, extraction.LabelPart)
	assert.Equal(t, "अररिया", doc.Fields[extraction.LabelDistrict])
}

func TestCreateCoverFileMakesDirectory(t *testing.T) {
	path := CoverPath(filepath.Join(t.TempDir(), "nested", "output"), 3, FormatCSV)
	cw, err := CreateCoverFile(path, FormatCSV)
	require.NoError(t, err)
	require.NoError(t, cw.Write(testRecord()))
	require.NoError(t, cw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Assembly Constituency,Part,"))
}

func TestWriteVoterFile(t *testing.T) {
	ex := extraction.NewExtractor(nil)
	p1, err := ex.ReconstructTable(2, "उम्र : 45 लिंग : महिला", "ABC1234567")
	require.NoError(t, err)
	p2, err := ex.ReconstructTable(3, "", "")
	require.NoError(t, err)

	path := VoterPath(t.TempDir(), "roll.pdf")
	require.NoError(t, WriteVoterFile(path, []*extraction.TablePage{p1, p2}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+2*extraction.TableSlots)
	assert.Equal(t, extraction.VoterColumns, rows[0])
	assert.Equal(t, []string{"2", "0", "ABC1234567", "", "45", "female", "", ""}, rows[1])
	assert.Equal(t, "3", rows[len(rows)-1][0])
}
