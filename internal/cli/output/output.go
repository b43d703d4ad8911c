// Package output renders command results as tables, JSON, or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format selects the rendering mode for commands that support -o.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format %q: must be table, json, or yaml", s)
	}
}

// Print renders data in the requested format. Table output requires data to
// implement TableRenderer; JSON and YAML accept anything marshalable.
func Print(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		return PrintJSON(w, data)
	case FormatYAML:
		return PrintYAML(w, data)
	default:
		table, ok := data.(TableRenderer)
		if !ok {
			return fmt.Errorf("data does not support table output")
		}
		return PrintTable(w, table)
	}
}
