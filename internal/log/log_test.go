package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" Warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "json", "info")
	t.Cleanup(func() { Configure(os.Stderr, "text", "info") })

	With("run_id", "r-1").Error("list failed", errors.New("boom"), "page", 2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "list failed", line["msg"])
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "boom", line["err"])
	assert.Equal(t, "r-1", line["run_id"])
	assert.Equal(t, float64(2), line["page"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "text", "warn")
	t.Cleanup(func() { Configure(os.Stderr, "text", "info") })

	Info("hidden")
	Debug("hidden too")
	Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "k=v")

	SetLevel(LevelDebug)
	Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
