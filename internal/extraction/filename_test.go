package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartFromFileName(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		part   int
		wantOK bool
	}{
		{"plain", "ABCNo_024PartNo_007.pdf", 7, true},
		{"with dir", "/data/rolls/ABCNo_024PartNo_120.pdf", 120, true},
		{"zero", "ABCNo_024PartNo_000.pdf", 0, true},
		{"no part", "ABCNo_024.pdf", 0, false},
		{"short part", "ABCNo_024PartNo_7.pdf", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, ok := PartFromFileName(tt.file)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.part, part)
		})
	}
}

func TestRollFileMatcher(t *testing.T) {
	m, err := NewRollFileMatcher("ABC", 24, 5, 10)
	require.NoError(t, err)

	part, ok := m.Match("ABCNo_024PartNo_007.pdf")
	assert.True(t, ok)
	assert.Equal(t, 7, part)

	_, ok = m.Match("ABCNo_025PartNo_007.pdf")
	assert.False(t, ok, "other constituency")
	_, ok = m.Match("ABCNo_024PartNo_011.pdf")
	assert.False(t, ok, "past range end")
	_, ok = m.Match("ABCNo_024PartNo_004.pdf")
	assert.False(t, ok, "before range start")
	_, ok = m.Match("XYZNo_024PartNo_007.pdf")
	assert.False(t, ok, "other prefix")

	part, ok = m.Match("/in/ABCNo_024PartNo_010.pdf")
	assert.True(t, ok)
	assert.Equal(t, 10, part)
}

func TestRollFileMatcherOpenRange(t *testing.T) {
	m, err := NewRollFileMatcher("ABC", 24, 0, 0)
	require.NoError(t, err)

	part, ok := m.Match("ABCNo_024PartNo_999.pdf")
	assert.True(t, ok)
	assert.Equal(t, MaxParts, part)
}

func TestNewRollFileMatcherValidation(t *testing.T) {
	_, err := NewRollFileMatcher("", 24, 0, 0)
	assert.Error(t, err)
	_, err = NewRollFileMatcher("ABC", 1000, 0, 0)
	assert.Error(t, err)
	_, err = NewRollFileMatcher("ABC", 24, 10, 5)
	assert.Error(t, err)
}
