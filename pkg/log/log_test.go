package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitText(t *testing.T) {
	var buf bytes.Buffer
	l, err := Init(Options{Format: FormatText, Stderr: &buf})
	require.NoError(t, err)

	l.Info("attaching", "pid", 42)
	l.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "attaching")
	assert.Contains(t, out, "pid=42")
	assert.NotContains(t, out, "hidden")
}

func TestInitVerboseJSON(t *testing.T) {
	var buf bytes.Buffer
	_, err := Init(Options{Format: FormatJSON, Verbose: true, Stderr: &buf})
	require.NoError(t, err)

	Debug("wait status", "status", "0x857f")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "wait status", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "0x857f", rec["status"])
}

func TestInitAutoNonFile(t *testing.T) {
	var buf bytes.Buffer
	_, err := Init(Options{Stderr: &buf})
	require.NoError(t, err)

	Warn("not a terminal")
	assert.True(t, strings.HasPrefix(buf.String(), "time="))
}

func TestInitUnknownFormat(t *testing.T) {
	_, err := Init(Options{Format: "xml", Stderr: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
