package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	f, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Archive", "Mount Point")
	table.AddRow("/data/a.sqsh", "/work/mounts/a")
	table.AddRow("/data/b.sqsh", "/work/mounts/b")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "ARCHIVE")
	assert.Contains(t, out, "/data/a.sqsh")
	assert.Contains(t, out, "/work/mounts/b")
}

func TestPrintJSONAndYAML(t *testing.T) {
	data := map[string]string{"archive": "/data/a.sqsh"}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatJSON, data))
	assert.Contains(t, buf.String(), `"archive": "/data/a.sqsh"`)

	buf.Reset()
	require.NoError(t, Print(&buf, FormatYAML, data))
	assert.Contains(t, buf.String(), "archive: /data/a.sqsh")
}

func TestPrintTableRequiresRenderer(t *testing.T) {
	var buf bytes.Buffer
	err := Print(&buf, FormatTable, map[string]string{})
	assert.Error(t, err)
}
