package storage

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeJSONForPostgres(t *testing.T) {
	raw, err := json.Marshal(map[string]string{"name": "राम\x00\x01कुमार"})
	require.NoError(t, err)

	clean := sanitizeJSONForPostgres(raw)
	assert.NotContains(t, string(clean), `\u0000`)
	assert.NotContains(t, string(clean), `\u0001`)

	var back map[string]string
	require.NoError(t, json.Unmarshal(clean, &back))
	assert.Equal(t, "राम कुमार", back["name"])
}

func TestSanitizeJSONLeavesTextAlone(t *testing.T) {
	in := []byte(`{"Part":"7","District":"अररिया"}`)
	assert.Equal(t, in, sanitizeJSONForPostgres(in))
}

func TestSanitizeJSONKeepsEscapedBackslash(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"literal text after backslash", `C:\u0001dir`, `C:\u0001dir`},
		{"literal null text", `x\u0000y`, `x\u0000y`},
		{"backslash then control", "a\\\x01b", `a\ b`},
		{"two backslashes then null", "a\\\\\x00b", `a\\b`},
		{"adjacent controls", "a\x01\x02b", "a  b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(map[string]string{"path": tt.in})
			require.NoError(t, err)

			clean := sanitizeJSONForPostgres(raw)
			var back map[string]string
			require.NoError(t, json.Unmarshal(clean, &back), string(clean))
			assert.Equal(t, tt.want, back["path"])
		})
	}
}

func TestSchemaStatementsAreIdempotent(t *testing.T) {
	for _, stmt := range schemaStatements {
		assert.Contains(t, stmt, "IF NOT EXISTS")
	}
}

func TestVoterColumnsMatchSchema(t *testing.T) {
	var table string
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "electoralroll.voter_entries (") {
			table = stmt
		}
	}
	require.NotEmpty(t, table)
	for _, col := range voterColumns {
		assert.Contains(t, table, "\t\t"+col+" ", "column %s", col)
	}
}

func TestNewPostgresClientRequiresURL(t *testing.T) {
	_, err := NewPostgresClient("")
	assert.Error(t, err)
}
