package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	accepted := map[string]Format{
		"":          FormatTable,
		"table":     FormatTable,
		"json":      FormatJSON,
		"JSON":      FormatJSON,
		"yaml":      FormatYAML,
		"yml":       FormatYAML,
		"  table  ": FormatTable,
	}
	for input, want := range accepted {
		got, err := ParseFormat(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err := ParseFormat("xml")
	assert.ErrorContains(t, err, "invalid output format")
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "table", FormatTable.String())
	assert.Equal(t, "json", FormatJSON.String())
	assert.Equal(t, "yaml", FormatYAML.String())
}

func TestPrintDispatch(t *testing.T) {
	table := NewTableData("NAME")
	table.AddRow("notes.txt")

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, table))
	assert.Contains(t, buf.String(), "notes.txt")

	buf.Reset()
	require.NoError(t, Print(&buf, FormatJSON, map[string]int{"words": 2}))
	assert.Contains(t, buf.String(), `"words": 2`)

	buf.Reset()
	require.NoError(t, Print(&buf, FormatYAML, map[string]int{"words": 2}))
	assert.Contains(t, buf.String(), "words: 2")

	assert.Error(t, Print(&buf, Format("xml"), nil))
}
