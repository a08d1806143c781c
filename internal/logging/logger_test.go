package logging

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New("extraction", Options{Level: "debug", Format: "json", Output: &buf})

	l.Warn("age is not a number", "page", 4, "slot", 12, "error", stderrors.New("bad digit"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "extraction", entry["component"])
	assert.Equal(t, "age is not a number", entry["message"])
	assert.Equal(t, float64(4), entry["page"])
	assert.Equal(t, "bad digit", entry["error"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New("x", Options{Level: "warn", Output: &buf})

	l.Info("dropped")
	l.Debug("dropped")
	assert.Empty(t, buf.String())

	l.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("x", Options{Output: &buf}).With("job", "j-1")
	l.Info("step")
	assert.Contains(t, buf.String(), `"job":"j-1"`)
}

func TestOddKeyValuesIgnored(t *testing.T) {
	var buf bytes.Buffer
	New("x", Options{Output: &buf}).Info("msg", "dangling")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.NotContains(t, buf.String(), "dangling")
}

func TestNopIsSilent(t *testing.T) {
	assert.NotPanics(t, func() {
		l := Nop()
		l.Info("nothing", "k", "v")
		l.With("a", 1).Warn("nothing")
	})
}
