// Package output renders analyzer reports.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/sambabib/depcheck/pkg/analyzer"
)

// Format names an output renderer.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatSARIF Format = "sarif"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatSARIF}

// Options tunes rendering.
type Options struct {
	// Color enables terminal styling in the table format.
	Color bool
	// ManifestPath is the artifact location reported in SARIF results.
	ManifestPath string
	// ToolVersion is the driver version reported in SARIF.
	ToolVersion string
}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Render writes report to w in the given format.
func Render(w io.Writer, report *analyzer.Report, format Format, opts Options) error {
	if report == nil {
		return fmt.Errorf("nil report")
	}
	switch format {
	case FormatTable, "":
		return WriteTable(w, report, opts)
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatCSV:
		return WriteCSV(w, report)
	case FormatSARIF:
		return WriteSARIF(w, report, opts)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
