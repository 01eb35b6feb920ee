package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileRow struct {
	Name  string `json:"name" yaml:"name"`
	Words int    `json:"words" yaml:"words"`
}

func TestTableRendering(t *testing.T) {
	table := NewTableData("NAME", "OWNER")
	table.AddRow("doc.txt", "alice")
	table.AddRow("notes.txt", "bob")

	assert.Equal(t, []string{"NAME", "OWNER"}, table.Headers())
	require.Len(t, table.Rows(), 2)

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "doc.txt")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "bob")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, []fileRow{{Name: "a.txt", Words: 3}}))

	out := buf.String()
	assert.Contains(t, out, `"name": "a.txt"`)
	assert.Contains(t, out, `"words": 3`)
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintYAML(&buf, []fileRow{{Name: "a.txt", Words: 3}}))

	out := buf.String()
	assert.Contains(t, out, "- name: a.txt")
	assert.Contains(t, out, "words: 3")
}
