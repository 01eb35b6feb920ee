package output

import (
	"fmt"
	"io"
	"strings"
)

// Format selects how a command renders its result.
type Format string

const (
	// FormatTable renders a column-aligned table.
	FormatTable Format = "table"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatYAML renders YAML.
	FormatYAML Format = "yaml"
)

var formatNames = map[string]Format{
	"":      FormatTable,
	"table": FormatTable,
	"json":  FormatJSON,
	"yaml":  FormatYAML,
	"yml":   FormatYAML,
}

// ParseFormat parses a --output flag value. The empty string means
// table.
func ParseFormat(s string) (Format, error) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
	return f, nil
}

func (f Format) String() string {
	return string(f)
}

// Print renders data to w in the given format. Table format requires
// data to implement TableRenderer; structured formats marshal data
// directly.
func Print(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		return PrintJSON(w, data)
	case FormatYAML:
		return PrintYAML(w, data)
	case FormatTable:
		if renderer, ok := data.(TableRenderer); ok {
			return PrintTable(w, renderer)
		}
		return PrintJSON(w, data)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
