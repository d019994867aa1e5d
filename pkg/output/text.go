package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/sambabib/depcheck/pkg/analyzer"
	"github.com/sambabib/depcheck/pkg/version"
	"github.com/sambabib/depcheck/pkg/vuln"
)

const notesLimit = 80 // max characters of a deprecation or error note

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	summaryStyle = lipgloss.NewStyle().Bold(true)
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	levelStyles = map[string]lipgloss.Style{
		analyzer.LevelOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		analyzer.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		analyzer.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		analyzer.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		analyzer.LevelUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		// audit levels are advisory severities
		"low":      lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		"moderate": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"high":     lipgloss.NewStyle().Foreground(lipgloss.Color("202")).Bold(true),
		"critical": lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

type painter struct{ color bool }

func (p painter) paint(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p painter) level(level string) string {
	s, ok := levelStyles[level]
	if !ok {
		return level
	}
	return p.paint(s, level)
}

// WriteTable prints the report as an aligned table followed by notes and
// the summary. The level column is last so styling cannot break alignment.
func WriteTable(out io.Writer, report *analyzer.Report, opts Options) error {
	p := painter{color: opts.Color}

	title := fmt.Sprintf("depcheck %s", report.Mode)
	if report.Package.Name != "" {
		title += ": " + report.Package.Name
		if report.Package.Version != "" {
			title += "@" + report.Package.Version
		}
	}
	if _, err := fmt.Fprintln(out, p.paint(titleStyle, title)); err != nil {
		return err
	}

	if len(report.Items) == 0 {
		_, err := fmt.Fprintln(out, "No dependencies found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	switch report.Mode {
	case analyzer.ModeUpdate:
		writeUpdateRows(w, report, p)
	case analyzer.ModeAudit:
		writeAuditRows(w, report, p)
	default:
		writeCheckRows(w, report, p)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if notes := collectNotes(report); len(notes) > 0 {
		fmt.Fprintln(out)
		for _, n := range notes {
			fmt.Fprintln(out, p.paint(noteStyle, n))
		}
	}

	fmt.Fprintln(out)
	_, err := fmt.Fprintln(out, p.paint(summaryStyle, summaryLine(report)))
	return err
}

func writeCheckRows(w io.Writer, report *analyzer.Report, p painter) {
	fmt.Fprintln(w, "NAME\tSECTION\tCURRENT\tLATEST\tUPDATE\tLEVEL")
	fmt.Fprintln(w, "----\t-------\t-------\t------\t------\t-----")
	for _, it := range report.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.Name,
			it.Section,
			it.CurrentVersion,
			dash(it.LatestVersion),
			it.UpdateType,
			p.level(it.Level),
		)
	}
}

func writeUpdateRows(w io.Writer, report *analyzer.Report, p painter) {
	fmt.Fprintln(w, "NAME\tCURRENT\tPATCH\tMINOR\tMAJOR\tLEVEL")
	fmt.Fprintln(w, "----\t-------\t-----\t-----\t-----\t-----")
	for _, it := range report.Items {
		byBucket := map[version.UpdateType]string{}
		for _, r := range it.Recommendations {
			byBucket[r.Bucket] = r.Version
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.Name,
			it.CurrentVersion,
			dash(byBucket[version.UpdatePatch]),
			dash(byBucket[version.UpdateMinor]),
			dash(byBucket[version.UpdateMajor]),
			p.level(it.Level),
		)
	}
}

func writeAuditRows(w io.Writer, report *analyzer.Report, p painter) {
	fmt.Fprintln(w, "NAME\tCURRENT\tADVISORIES\tFIX\tLEVEL")
	fmt.Fprintln(w, "----\t-------\t----------\t---\t-----")
	for _, it := range report.Items {
		ids := make([]string, 0, len(it.Vulnerabilities))
		for _, f := range it.Vulnerabilities {
			ids = append(ids, f.ID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			it.Name,
			it.CurrentVersion,
			dash(strings.Join(ids, ",")),
			dash(it.FixVersion),
			p.level(it.Level),
		)
	}
}

func collectNotes(report *analyzer.Report) []string {
	var notes []string
	for _, it := range report.Items {
		if it.Deprecated {
			notes = append(notes, fmt.Sprintf("%s is deprecated: %s", it.Name, truncate(it.DeprecationNote)))
		}
		if it.Error != "" {
			notes = append(notes, fmt.Sprintf("%s: %s", it.Name, truncate(it.Error)))
		}
	}
	return notes
}

func summaryLine(report *analyzer.Report) string {
	s := report.Summary
	switch report.Mode {
	case analyzer.ModeAudit:
		line := fmt.Sprintf("%d dependencies, %d vulnerable, %d advisories", s.Total, s.Vulnerable, s.Vulnerabilities)
		if s.Vulnerabilities > 0 {
			parts := make([]string, 0, len(s.BySeverity))
			for _, sev := range vuln.Severities {
				if n := s.BySeverity[sev]; n > 0 {
					parts = append(parts, fmt.Sprintf("%d %s", n, sev))
				}
			}
			line += " (" + strings.Join(parts, ", ") + ")"
		}
		if s.AdvisoryFailed > 0 {
			line += fmt.Sprintf(", %d advisory lookups failed", s.AdvisoryFailed)
		}
		return line
	default:
		line := fmt.Sprintf("%d dependencies: %d up to date, %d outdated (%d major, %d minor, %d patch)",
			s.Total, s.UpToDate, s.Outdated, s.Major, s.Minor, s.Patch)
		if s.Deprecated > 0 {
			line += fmt.Sprintf(", %d deprecated", s.Deprecated)
		}
		if s.LookupFailed > 0 {
			line += fmt.Sprintf(", %d lookups failed", s.LookupFailed)
		}
		return line
	}
}

// truncate shortens s to notesLimit characters, cutting on a rune boundary.
func truncate(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	if utf8.RuneCountInString(s) <= notesLimit {
		return s
	}
	return string([]rune(s)[:notesLimit-3]) + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
