package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLibraryCoversEveryField(t *testing.T) {
	lib := DefaultLibrary()

	var rec PageRecord
	for _, f := range rec.Fields() {
		_, ok := lib.Pattern(f.Label)
		assert.True(t, ok, "missing cover pattern %q", f.Label)
	}
	for _, label := range []string{LabelElectorName, LabelFamilyName, LabelAge, LabelHouseNumber, LabelSex, LabelVoterID} {
		_, ok := lib.Pattern(label)
		assert.True(t, ok, "missing table pattern %q", label)
	}
	assert.Same(t, lib, DefaultLibrary())
}

func TestNewLibraryRejectsBadSpecs(t *testing.T) {
	tests := []struct {
		name  string
		specs []PatternSpec
	}{
		{
			name: "duplicate label",
			specs: []PatternSpec{
				{Label: "A", Anchors: []string{"डाकघर"}, Class: ClassWord, Cardinality: Single},
				{Label: "A", Anchors: []string{"थाना"}, Class: ClassWord, Cardinality: Single},
			},
		},
		{
			name:  "missing class",
			specs: []PatternSpec{{Label: "A", Anchors: []string{"डाकघर"}, Cardinality: Single}},
		},
		{
			name:  "blank anchor",
			specs: []PatternSpec{{Label: "A", Anchors: []string{"  "}, Class: ClassWord, Cardinality: Single}},
		},
		{
			name:  "bad cardinality",
			specs: []PatternSpec{{Label: "A", Anchors: []string{"डाकघर"}, Class: ClassWord, Cardinality: 3}},
		},
		{
			name:  "invalid expression",
			specs: []PatternSpec{{Label: "A", Anchors: []string{"डाकघर"}, Class: `[0-9`, Cardinality: Single}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLibrary(tt.specs)
			assert.Error(t, err)
		})
	}
}

func TestPatternToleratesNoiseSeparators(t *testing.T) {
	p, ok := DefaultLibrary().Pattern(LabelElectorName)
	require.True(t, ok)

	for _, text := range []string{
		"निर्वाचक का नाम रमेश कुमार",
		"निर्वाचक का नाम : रमेश कुमार",
		"निर्वाचक का नाम: रमेश कुमार",
		"निर्वाचक का नाम ः रमेश कुमार",
		"निर्वाचक का नाम | रमेश कुमार",
		"निर्वाचक का नाम ; रमेश कुमार",
		"निर्वाचक  का\nनाम : रमेश कुमार",
	} {
		values, ok := p.Find(text)
		require.True(t, ok, text)
		assert.Equal(t, []string{"रमेश कुमार"}, values, text)
	}
}

func TestPatternPairCapturesNumberAndName(t *testing.T) {
	p, ok := DefaultLibrary().Pattern(LabelAssemblyConstituency)
	require.True(t, ok)
	assert.Equal(t, Pair, p.Cardinality())

	values, ok := p.Find("विधान सभा निर्वाचन क्षेत्र की संख्या एवं नाम : 24 - सिकटी\nभाग संख्या : 7")
	require.True(t, ok)
	assert.Equal(t, []string{"24", "सिकटी"}, values)
}

func TestPatternFindIsLeftMost(t *testing.T) {
	p, ok := DefaultLibrary().Pattern(LabelPostOffice)
	require.True(t, ok)

	values, ok := p.Find("डाकघर : कुर्साकांटा\nडाकघर : अररिया")
	require.True(t, ok)
	assert.Equal(t, []string{"कुर्साकांटा"}, values)

	all := p.FindAll("डाकघर : कुर्साकांटा\nडाकघर : अररिया")
	assert.Equal(t, [][]string{{"कुर्साकांटा"}, {"अररिया"}}, all)
}

func TestNumericClassesRejectDevanagari(t *testing.T) {
	p, ok := DefaultLibrary().Pattern(LabelZipCode)
	require.True(t, ok)

	_, ok = p.Find("पिन कोड : ८५४३३१")
	assert.False(t, ok)

	values, ok := p.Find("पिन कोड : 854331")
	require.True(t, ok)
	assert.Equal(t, []string{"854331"}, values)
}

func TestVoterIDFormats(t *testing.T) {
	p, ok := DefaultLibrary().Pattern(LabelVoterID)
	require.True(t, ok)

	all := p.FindAll("1 ABC1234567 2 BR/07/045/123456 3 AB12345")
	assert.Equal(t, [][]string{{"ABC1234567"}, {"BR/07/045/123456"}}, all)
}
