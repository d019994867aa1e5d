package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/depcheck/pkg/analyzer"
	"github.com/sambabib/depcheck/pkg/manifest"
	"github.com/sambabib/depcheck/pkg/recommend"
	"github.com/sambabib/depcheck/pkg/version"
	"github.com/sambabib/depcheck/pkg/vuln"
)

func newTestReport(mode analyzer.Mode, items ...analyzer.ReportItem) *analyzer.Report {
	return &analyzer.Report{
		Package:     analyzer.Subject{Name: "demo-app", Version: "1.0.0"},
		Mode:        mode,
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Summary:     analyzer.Summarize(items),
		Items:       items,
	}
}

func checkItems() []analyzer.ReportItem {
	return []analyzer.ReportItem{
		{
			Name:            "express",
			CurrentVersion:  "4.17.1",
			Section:         manifest.SectionRuntime,
			LatestVersion:   "4.18.2",
			UpdateType:      version.UpdateMinor,
			UpdateAvailable: true,
			Level:           analyzer.LevelWarning,
		},
		{
			Name:           "lodash",
			CurrentVersion: "4.17.21",
			Section:        manifest.SectionRuntime,
			LatestVersion:  "4.17.21",
			UpdateType:     version.UpdateNone,
			Level:          analyzer.LevelOK,
		},
		{
			Name:            "request",
			CurrentVersion:  "2.88.2",
			Section:         manifest.SectionDev,
			LatestVersion:   "2.88.2",
			UpdateType:      version.UpdateNone,
			Level:           analyzer.LevelOK,
			Deprecated:      true,
			DeprecationNote: "request has been deprecated",
		},
		{
			Name:           "ghost-pkg",
			CurrentVersion: "1.0.0",
			Section:        manifest.SectionDev,
			UpdateType:     version.UpdateUnknown,
			Level:          analyzer.LevelError,
			LookupFailed:   true,
			Error:          "package not found: ghost-pkg",
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRender_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, newTestReport(analyzer.ModeCheck), Format("xml"), Options{})
	assert.Error(t, err)

	err = Render(&buf, nil, FormatJSON, Options{})
	assert.Error(t, err)
}

func TestWriteTable_Check(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, newTestReport(analyzer.ModeCheck, checkItems()...), FormatTable, Options{}))
	out := buf.String()

	assert.Contains(t, out, "depcheck check: demo-app@1.0.0")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "LATEST")
	assert.Contains(t, out, "express")
	assert.Contains(t, out, "4.18.2")
	assert.Contains(t, out, "request is deprecated: request has been deprecated")
	assert.Contains(t, out, "ghost-pkg: package not found: ghost-pkg")
	assert.Contains(t, out, "4 dependencies: 3 up to date, 1 outdated (0 major, 1 minor, 0 patch), 1 deprecated, 1 lookups failed")
	assert.NotContains(t, out, "\x1b[", "no escape codes without color")

	var row []string
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) == 6 && fields[0] == "ghost-pkg" {
			row = fields
		}
	}
	require.NotNil(t, row, "ghost-pkg table row")
	assert.Equal(t, []string{"ghost-pkg", "dev", "1.0.0", "-", "unknown", "error"}, row, "missing latest renders as a dash")
}

func TestTruncate(t *testing.T) {
	short := "left-pad is deprecated"
	assert.Equal(t, short, truncate(short))
	assert.Equal(t, "a b", truncate("a\tb"))

	long := strings.Repeat("a", 76) + "ééééé"
	got := truncate(long)
	assert.True(t, utf8.ValidString(got), "cut must fall on a rune boundary")
	assert.Equal(t, notesLimit, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("a", 76)+"é...", got)
}

func TestWriteTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, newTestReport(analyzer.ModeCheck), Options{}))
	assert.Contains(t, buf.String(), "No dependencies found.")
}

func TestWriteTable_Update(t *testing.T) {
	item := analyzer.ReportItem{
		Name:            "react",
		CurrentVersion:  "17.0.0",
		UpdateType:      version.UpdateMajor,
		UpdateAvailable: true,
		Level:           analyzer.LevelError,
		Recommendations: []recommend.Recommendation{
			{Bucket: version.UpdatePatch, Version: "17.0.2", Priority: recommend.PriorityHigh},
			{Bucket: version.UpdateMajor, Version: "18.2.0", Priority: recommend.PriorityLow, Breaking: true},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, newTestReport(analyzer.ModeUpdate, item), Options{}))
	out := buf.String()

	assert.Contains(t, out, "PATCH")
	assert.Contains(t, out, "MAJOR")
	assert.Contains(t, out, "17.0.2")
	assert.Contains(t, out, "18.2.0")
	assert.Contains(t, out, "(1 major, 0 minor, 1 patch)")
}

func TestWriteTable_Audit(t *testing.T) {
	item := analyzer.ReportItem{
		Name:           "minimist",
		CurrentVersion: "1.2.0",
		Level:          string(vuln.SeverityCritical),
		FixVersion:     "1.2.6",
		Vulnerabilities: []vuln.Finding{
			{ID: "GHSA-xvch-5gv4-984h", Severity: vuln.SeverityCritical},
			{ID: "GHSA-vh95-rmgr-6w4m", Severity: vuln.SeverityModerate},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, newTestReport(analyzer.ModeAudit, item), Options{}))
	out := buf.String()

	assert.Contains(t, out, "GHSA-xvch-5gv4-984h,GHSA-vh95-rmgr-6w4m")
	assert.Contains(t, out, "1.2.6")
	assert.Contains(t, out, "1 dependencies, 1 vulnerable, 2 advisories (1 critical, 1 moderate)")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, newTestReport(analyzer.ModeCheck, checkItems()...), FormatJSON, Options{}))

	var decoded struct {
		Package analyzer.Subject `json:"package"`
		Mode    string           `json:"mode"`
		Summary analyzer.Summary `json:"summary"`
		Items   []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "demo-app", decoded.Package.Name)
	assert.Equal(t, "check", decoded.Mode)
	assert.Equal(t, 4, decoded.Summary.Total)
	assert.Equal(t, 1, decoded.Summary.Outdated)
	require.Len(t, decoded.Items, 4)
	assert.Equal(t, "express", decoded.Items[0]["name"])
	assert.Equal(t, "minor", decoded.Items[0]["update_type"])
}

func TestWriteCSV(t *testing.T) {
	items := checkItems()
	items[0].Recommendations = []recommend.Recommendation{
		{Bucket: version.UpdatePatch, Version: "4.17.3"},
		{Bucket: version.UpdateMinor, Version: "4.18.2"},
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, newTestReport(analyzer.ModeUpdate, items...), FormatCSV, Options{}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "express", rows[1][0])
	assert.Equal(t, "patch:4.17.3;minor:4.18.2", rows[1][6])
	assert.Equal(t, "true", rows[3][9])
	assert.Equal(t, "package not found: ghost-pkg", rows[4][10])
}

func TestWriteSARIF(t *testing.T) {
	items := append(checkItems(), analyzer.ReportItem{
		Name:            "minimist",
		CurrentVersion:  "1.2.0",
		Level:           string(vuln.SeverityHigh),
		Vulnerabilities: []vuln.Finding{{ID: "GHSA-1", Severity: vuln.SeverityHigh, Description: "prototype pollution"}},
		FixVersion:      "1.2.6",
	})

	items = append(items, analyzer.ReportItem{
		Name:           "flaky",
		CurrentVersion: "1.0.0",
		Level:          analyzer.LevelError,
		AdvisoryFailed: true,
		Error:          "advisory backend unavailable",
	})

	var buf bytes.Buffer
	opts := Options{ManifestPath: "web/package.json", ToolVersion: "1.2.3"}
	require.NoError(t, Render(&buf, newTestReport(analyzer.ModeCheck, items...), FormatSARIF, opts))

	var log SarifReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))

	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)
	assert.Len(t, run.Tool.Driver.Rules, len(sarifRules))
	assert.False(t, run.Invocations[0].ExecutionSuccessful, "a failed lookup marks the run unsuccessful")

	rules := map[string]SarifResult{}
	for _, r := range run.Results {
		rules[r.RuleID] = r
		assert.Equal(t, "web/package.json", r.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	}
	// lodash is up to date and produces nothing
	assert.Len(t, run.Results, 5)
	assert.Equal(t, "note", rules[RuleOutdatedMinor].Level)
	assert.Equal(t, "warning", rules[RuleDeprecated].Level)
	assert.Equal(t, "error", rules[RuleLookupFailed].Level)
	assert.Contains(t, rules[RuleLookupFailed].Message.Text, "ghost-pkg")
	assert.Equal(t, "error", rules[RuleAdvisoryError].Level)
	assert.Contains(t, rules[RuleAdvisoryError].Message.Text, "flaky: advisory lookup failed")
	assert.Equal(t, "error", rules[RuleVulnerable].Level)
	assert.Contains(t, rules[RuleVulnerable].Message.Text, "fixed in 1.2.6")
	assert.Equal(t, "minimist", rules[RuleVulnerable].Properties["package"])
}

func TestWriteSARIF_DeprecatedSubject(t *testing.T) {
	exact := analyzer.ReportItem{
		Name:            "request",
		CurrentVersion:  "2.88.0",
		Range:           version.Analyze("2.88.0"),
		LatestVersion:   "2.88.2",
		Deprecated:      true,
		DeprecationNote: "request has been deprecated",
	}
	ranged := analyzer.ReportItem{
		Name:            "left-pad",
		CurrentVersion:  "^1.0.0",
		Range:           version.Analyze("^1.0.0"),
		LatestVersion:   "1.3.0",
		Deprecated:      true,
		DeprecationNote: "use String.prototype.padStart()",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, newTestReport(analyzer.ModeCheck, exact, ranged), Options{}))

	var log SarifReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	require.Len(t, log.Runs[0].Results, 2)
	assert.Equal(t, "request@2.88.0 is deprecated: request has been deprecated", log.Runs[0].Results[0].Message.Text)
	assert.Equal(t, "left-pad (latest 1.3.0) is deprecated: use String.prototype.padStart()", log.Runs[0].Results[1].Message.Text)
	assert.True(t, log.Runs[0].Invocations[0].ExecutionSuccessful)
}

func TestWriteTable_AuditAdvisoryFailure(t *testing.T) {
	item := analyzer.ReportItem{
		Name:           "flaky",
		CurrentVersion: "1.0.0",
		Level:          analyzer.LevelError,
		AdvisoryFailed: true,
		Error:          "advisory backend unavailable",
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, newTestReport(analyzer.ModeAudit, item), Options{}))
	out := buf.String()

	assert.Contains(t, out, "1 dependencies, 0 vulnerable, 0 advisories, 1 advisory lookups failed")
	assert.Contains(t, out, "flaky: advisory backend unavailable")
}
