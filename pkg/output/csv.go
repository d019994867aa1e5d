package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/sambabib/depcheck/pkg/analyzer"
)

var csvHeader = []string{
	"name", "section", "declared", "latest", "update_type", "level",
	"recommendations", "vulnerabilities", "fix_version", "deprecated", "error",
}

// WriteCSV writes one row per dependency. Multi-valued cells are joined
// with ";".
func WriteCSV(w io.Writer, report *analyzer.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, it := range report.Items {
		recs := make([]string, 0, len(it.Recommendations))
		for _, r := range it.Recommendations {
			recs = append(recs, string(r.Bucket)+":"+r.Version)
		}
		vulns := make([]string, 0, len(it.Vulnerabilities))
		for _, f := range it.Vulnerabilities {
			vulns = append(vulns, f.ID+":"+string(f.Severity))
		}

		row := []string{
			it.Name,
			string(it.Section),
			it.CurrentVersion,
			it.LatestVersion,
			string(it.UpdateType),
			it.Level,
			strings.Join(recs, ";"),
			strings.Join(vulns, ";"),
			it.FixVersion,
			strconv.FormatBool(it.Deprecated),
			it.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
