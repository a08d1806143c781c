package extraction

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/electoralroll-worker/internal/logging"
)

var hindiNames = []string{"रमेश कुमार", "सीता देवी", "मोहन", "गीता", "राम प्रसाद"}

// tableTexts renders n voter boxes in reading order, plus the English pass
// with IDs listed column by column.
func tableTexts(n int) (string, string) {
	var hindi strings.Builder
	for i := 0; i < n; i++ {
		sex := "पुरुष"
		if i%2 == 1 {
			sex = "महिला"
		}
		fmt.Fprintf(&hindi, "निर्वाचक का नाम : %s\n", hindiNames[i%len(hindiNames)])
		fmt.Fprintf(&hindi, "पिता का नाम : %s\n", hindiNames[(i+1)%len(hindiNames)])
		fmt.Fprintf(&hindi, "गृह संख्या : %d\n", i+1)
		fmt.Fprintf(&hindi, "उम्र : %d लिंग : %s\n", 20+i, sex)
	}

	ids := make([]string, TableSlots)
	for j := 0; j < TableRows; j++ {
		for k := 0; k < TableColumns; k++ {
			slot := TableColumns*j + k
			if slot < n {
				ids[j+TableRows*k] = fmt.Sprintf("ABC%07d", slot+1)
			}
		}
	}
	var english strings.Builder
	for _, id := range ids {
		if id != "" {
			english.WriteString(id + "\n")
		}
	}
	return hindi.String(), english.String()
}

func TestReconstructFullTable(t *testing.T) {
	hindi, english := tableTexts(TableSlots)

	page, err := NewExtractor(nil).ReconstructTable(4, hindi, english)
	require.NoError(t, err)
	require.Len(t, page.Entries, TableSlots)
	assert.Equal(t, 4, page.PageIndex)

	for i, v := range page.Entries {
		assert.Equal(t, i, v.Slot)
		assert.Equal(t, fmt.Sprintf("ABC%07d", i+1), v.VoterID, "slot %d", i)
		assert.Equal(t, hindiNames[i%len(hindiNames)], v.Name)
		assert.Equal(t, hindiNames[(i+1)%len(hindiNames)], v.FamilyName)
		assert.Equal(t, strconv.Itoa(i+1), v.HouseNumber)
		assert.Equal(t, 20+i, v.Age)
		if i%2 == 1 {
			assert.Equal(t, SexFemale, v.Sex)
		} else {
			assert.Equal(t, SexMale, v.Sex)
		}
		assert.True(t, v.Found.Has(HasVoterID|HasName|HasAge|HasSex|HasHouseNumber|HasFamilyName))
	}
}

func TestReconstructPartialTablePadsToThirty(t *testing.T) {
	hindi, _ := tableTexts(4)
	english := "ABC0000001\nABC0000002\n"

	page, err := NewExtractor(nil).ReconstructTable(0, hindi, english)
	require.NoError(t, err)
	require.Len(t, VoterRows(page), TableSlots)

	// Two IDs fill the top of the first column: slots 0 and 3.
	assert.Equal(t, "ABC0000001", page.Entries[0].VoterID)
	assert.Equal(t, "ABC0000002", page.Entries[3].VoterID)
	for i, v := range page.Entries {
		if i != 0 && i != 3 {
			assert.Empty(t, v.VoterID, "slot %d", i)
			assert.False(t, v.Found.Has(HasVoterID), "slot %d", i)
		}
	}

	for i := 0; i < 4; i++ {
		assert.True(t, page.Entries[i].Found.Has(HasName|HasAge|HasSex))
	}
	for i := 4; i < TableSlots; i++ {
		v := page.Entries[i]
		assert.Empty(t, v.Name, "slot %d", i)
		assert.Equal(t, AgeUnknown, v.Age)
		assert.Equal(t, SexUnknown, v.Sex)
		assert.False(t, v.Found.Has(HasName))
		assert.False(t, v.Found.Has(HasAge))
	}
}

func TestReconstructEmptyText(t *testing.T) {
	page, err := NewExtractor(nil).ReconstructTable(0, "", "")
	require.NoError(t, err)
	assert.Len(t, page.Entries, TableSlots)
	for _, v := range page.Entries {
		assert.Equal(t, FieldSet(0), v.Found)
	}
}

func TestReconstructAgeCoercion(t *testing.T) {
	tests := []struct {
		name string
		text string
		age  int
		raw  string
	}{
		{"ascii digits", "उम्र : 45", 45, "45"},
		{"devanagari digits", "उम्र : ४५", AgeUnknown, "४५"},
		{"alternate header", "आयु: 61", 61, "61"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := NewExtractor(nil).ReconstructTable(0, tt.text, "")
			require.NoError(t, err)

			v := page.Entries[0]
			assert.Equal(t, tt.age, v.Age)
			assert.Equal(t, tt.raw, v.RawAge)
			assert.True(t, v.Found.Has(HasAge))
		})
	}
}

func TestReconstructRejectsInvalidUTF8(t *testing.T) {
	_, err := NewExtractor(nil).ReconstructTable(0, "ok", "\xff")
	assert.ErrorIs(t, err, ErrInvalidText)
}

func TestColumnToRowMajor(t *testing.T) {
	in := make([]string, TableSlots)
	for i := range in {
		in[i] = strconv.Itoa(i)
	}

	out := ColumnToRowMajor(in)
	for j := 0; j < TableRows; j++ {
		for k := 0; k < TableColumns; k++ {
			assert.Equal(t, in[j+TableRows*k], out[TableColumns*j+k])
		}
	}
	assert.Equal(t, []string{"0", "10", "20", "1", "11", "21"}, out[:6])

	assert.Equal(t, in, RowMajorToColumnMajor(ColumnToRowMajor(in)))
	assert.Equal(t, in, ColumnToRowMajor(RowMajorToColumnMajor(in)))
	assert.Equal(t, in, transpose(transpose(in, TableRows, TableColumns), TableColumns, TableRows))
}

func TestTransposePadsShortInput(t *testing.T) {
	out := ColumnToRowMajor([]string{"a", "b"})
	require.Len(t, out, TableSlots)
	assert.Equal(t, "a", out[0])
	assert.Equal(t, "b", out[3])
	assert.Equal(t, "", out[1])
}

func TestParseSex(t *testing.T) {
	assert.Equal(t, SexFemale, ParseSex("महिला"))
	assert.Equal(t, SexFemale, ParseSex(" स्त्री "))
	assert.Equal(t, SexMale, ParseSex("पुरुष"))
	assert.Equal(t, SexUnknown, ParseSex("पु"))
	assert.Equal(t, SexUnknown, ParseSex(""))
}

func TestReconstructBoxesSharingALine(t *testing.T) {
	hindi := "निर्वाचक का नाम : मोहन निर्वाचक का नाम : गीता देवी निर्वाचक का नाम : राम प्रसाद\n" +
		"पिता का नाम : सोहन पति का नाम : रमेश पिता का नाम : श्याम लाल\n" +
		"उम्र : 31 लिंग : पुरुष उम्र : 28 लिंग : महिला उम्र : 45 लिंग : पुरुष\n"

	page, err := NewExtractor(nil).ReconstructTable(0, hindi, "")
	require.NoError(t, err)

	assert.Equal(t, "मोहन", page.Entries[0].Name)
	assert.Equal(t, "गीता देवी", page.Entries[1].Name)
	assert.Equal(t, "राम प्रसाद", page.Entries[2].Name)
	assert.Equal(t, "सोहन", page.Entries[0].FamilyName)
	assert.Equal(t, "रमेश", page.Entries[1].FamilyName)
	assert.Equal(t, "श्याम लाल", page.Entries[2].FamilyName)
	assert.Equal(t, []int{31, 28, 45}, []int{page.Entries[0].Age, page.Entries[1].Age, page.Entries[2].Age})
	assert.Equal(t, SexFemale, page.Entries[1].Sex)
	for i := 0; i < 3; i++ {
		assert.True(t, page.Entries[i].Found.Has(HasName|HasFamilyName|HasAge|HasSex), "slot %d", i)
	}
	assert.False(t, page.Entries[3].Found.Has(HasName))
}

func TestReconstructEmptyBoxKeepsItsSlot(t *testing.T) {
	hindi := "निर्वाचक का नाम : निर्वाचक का नाम : गीता देवी"

	page, err := NewExtractor(nil).ReconstructTable(0, hindi, "")
	require.NoError(t, err)

	assert.Equal(t, "", page.Entries[0].Name)
	assert.True(t, page.Entries[0].Found.Has(HasName))
	assert.Equal(t, "गीता देवी", page.Entries[1].Name)
}

func TestReconstructSurplusMatchesAreDropped(t *testing.T) {
	const n = TableSlots + 3
	hindi, _ := tableTexts(n)
	var english strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&english, "ABC%07d\n", i+1)
	}

	var buf bytes.Buffer
	log := logging.New("extraction", logging.Options{Level: "warn", Output: &buf})
	page, err := NewExtractor(nil, WithLogger(log)).ReconstructTable(5, hindi, english.String())
	require.NoError(t, err)

	require.Len(t, page.Entries, TableSlots)
	for slot := 0; slot < TableSlots; slot++ {
		v := page.Entries[slot]
		j, k := slot/TableColumns, slot%TableColumns
		assert.Equal(t, fmt.Sprintf("ABC%07d", j+TableRows*k+1), v.VoterID, "slot %d", slot)
		assert.Equal(t, hindiNames[slot%len(hindiNames)], v.Name, "slot %d", slot)
		assert.Equal(t, 20+slot, v.Age, "slot %d", slot)
		assert.Equal(t, strconv.Itoa(slot+1), v.HouseNumber, "slot %d", slot)
	}
	assert.Contains(t, buf.String(), "more matches than table slots")
	assert.Contains(t, buf.String(), `"matches":33`)
}
