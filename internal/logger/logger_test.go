package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Info("mount completed", KeyArchive, "/data/a.sqsh", KeyMountPoint, "/work/mounts/a")

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "mount completed")
	assert.Contains(t, out, "archive=/data/a.sqsh")
	assert.Contains(t, out, "mount_point=/work/mounts/a")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")

	Info("unmount completed", KeyArchive, "/data/a.sqsh")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "unmount completed", entry["msg"])
	assert.Equal(t, "/data/a.sqsh", entry[KeyArchive])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")

	Debug("debug message")
	Info("info message")
	Warn("warn message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
}

func TestInvalidLevelIgnored(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")
	SetLevel("NOISY")

	Info("still logged")
	assert.Contains(t, buf.String(), "still logged")
}
