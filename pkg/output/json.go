package output

import (
	"encoding/json"
	"io"

	"github.com/sambabib/depcheck/pkg/analyzer"
)

// WriteJSON writes the full report, summary included, as indented JSON.
func WriteJSON(w io.Writer, report *analyzer.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
