package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sambabib/depcheck/pkg/analyzer"
	"github.com/sambabib/depcheck/pkg/version"
	"github.com/sambabib/depcheck/pkg/vuln"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
)

// Rule IDs.
const (
	RuleOutdatedMajor = "outdated-major"
	RuleOutdatedMinor = "outdated-minor"
	RuleOutdatedPatch = "outdated-patch"
	RuleDeprecated    = "deprecated"
	RuleVulnerable    = "vulnerable"
	RuleLookupFailed  = "lookup-failed"
	RuleAdvisoryError = "advisory-lookup-failed"
)

// SarifReport represents the top-level SARIF report structure
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun represents a single run of the analysis tool
type SarifRun struct {
	Tool        SarifTool         `json:"tool"`
	Results     []SarifResult     `json:"results"`
	Invocations []SarifInvocation `json:"invocations"`
}

// SarifTool represents the tool that performed the analysis
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver represents the driver of the tool
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule represents a rule that was evaluated during the analysis
type SarifRule struct {
	ID               string       `json:"id"`
	ShortDescription SarifMessage `json:"shortDescription"`
	FullDescription  SarifMessage `json:"fullDescription"`
	Help             SarifMessage `json:"help"`
}

// SarifResult represents a result of the analysis
type SarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    SarifMessage      `json:"message"`
	Locations  []SarifLocation   `json:"locations"`
	Properties map[string]string `json:"properties,omitempty"`
}

// SarifMessage represents a message in the SARIF report
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation represents a location in the code
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation represents a physical location in the code
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
}

// SarifArtifactLocation represents the location of an artifact
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// SarifInvocation represents an invocation of the tool
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

var sarifRules = []SarifRule{
	{
		ID:               RuleOutdatedMajor,
		ShortDescription: SarifMessage{Text: "Major version update available"},
		FullDescription:  SarifMessage{Text: "A major version update is available for this dependency, which may include breaking changes."},
		Help:             SarifMessage{Text: "Consider updating with caution and review the changelog for breaking changes."},
	},
	{
		ID:               RuleOutdatedMinor,
		ShortDescription: SarifMessage{Text: "Minor version update available"},
		FullDescription:  SarifMessage{Text: "A minor version update is available for this dependency, which may include new features."},
		Help:             SarifMessage{Text: "Consider updating to get new features."},
	},
	{
		ID:               RuleOutdatedPatch,
		ShortDescription: SarifMessage{Text: "Patch update available"},
		FullDescription:  SarifMessage{Text: "A patch update is available for this dependency, which may include bug fixes."},
		Help:             SarifMessage{Text: "Consider updating to get bug fixes."},
	},
	{
		ID:               RuleDeprecated,
		ShortDescription: SarifMessage{Text: "Deprecated dependency"},
		FullDescription:  SarifMessage{Text: "The declared version of this dependency (the latest release for a range) is marked as deprecated by its maintainers."},
		Help:             SarifMessage{Text: "Consider finding an alternative or replacement package."},
	},
	{
		ID:               RuleVulnerable,
		ShortDescription: SarifMessage{Text: "Vulnerable dependency"},
		FullDescription:  SarifMessage{Text: "A known security advisory affects the declared version of this dependency."},
		Help:             SarifMessage{Text: "Upgrade to a version outside the affected range."},
	},
	{
		ID:               RuleLookupFailed,
		ShortDescription: SarifMessage{Text: "Registry lookup failed"},
		FullDescription:  SarifMessage{Text: "The registry could not be queried for this dependency, so its status is unknown."},
		Help:             SarifMessage{Text: "Check the package name and registry access."},
	},
	{
		ID:               RuleAdvisoryError,
		ShortDescription: SarifMessage{Text: "Advisory lookup failed"},
		FullDescription:  SarifMessage{Text: "The advisory source could not be queried for this dependency, so its vulnerabilities are unknown."},
		Help:             SarifMessage{Text: "Check the advisory source configuration."},
	},
}

// WriteSARIF writes a SARIF 2.1.0 log with one result per finding.
// Up-to-date dependencies produce no result.
func WriteSARIF(w io.Writer, report *analyzer.Report, opts Options) error {
	toolVersion := opts.ToolVersion
	if toolVersion == "" {
		toolVersion = "dev"
	}
	location := opts.ManifestPath
	if location == "" {
		location = "package.json"
	}

	results := make([]SarifResult, 0, len(report.Items))
	for _, it := range report.Items {
		results = append(results, itemResults(it, location)...)
	}

	log := SarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []SarifRun{
			{
				Tool: SarifTool{
					Driver: SarifDriver{
						Name:           "depcheck",
						Version:        toolVersion,
						InformationURI: "https://github.com/sambabib/depcheck",
						Rules:          sarifRules,
					},
				},
				Results: results,
				Invocations: []SarifInvocation{
					{
						ExecutionSuccessful: report.Summary.LookupFailed == 0 && report.Summary.AdvisoryFailed == 0,
						EndTimeUtc:          report.GeneratedAt.UTC().Format(time.RFC3339),
					},
				},
			},
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func itemResults(it analyzer.ReportItem, location string) []SarifResult {
	newResult := func(rule, level, text string) SarifResult {
		return SarifResult{
			RuleID:  rule,
			Level:   level,
			Message: SarifMessage{Text: text},
			Locations: []SarifLocation{{
				PhysicalLocation: SarifPhysicalLocation{
					ArtifactLocation: SarifArtifactLocation{URI: location},
				},
			}},
			Properties: map[string]string{
				"package": it.Name,
				"section": string(it.Section),
			},
		}
	}

	var out []SarifResult
	if it.LookupFailed {
		out = append(out, newResult(RuleLookupFailed, "error",
			fmt.Sprintf("%s: registry lookup failed: %s", it.Name, it.Error)))
		return out
	}

	if len(it.Recommendations) > 0 {
		for _, r := range it.Recommendations {
			out = append(out, newResult(updateRule(r.Bucket), updateLevel(r.Bucket),
				fmt.Sprintf("%s: %s can be updated to %s (%s)", it.Name, it.CurrentVersion, r.Version, r.Bucket)))
		}
	} else if it.UpdateAvailable {
		out = append(out, newResult(updateRule(it.UpdateType), updateLevel(it.UpdateType),
			fmt.Sprintf("%s: current version %s, latest version %s", it.Name, it.CurrentVersion, it.LatestVersion)))
	}

	if it.AdvisoryFailed {
		out = append(out, newResult(RuleAdvisoryError, "error",
			fmt.Sprintf("%s: advisory lookup failed: %s", it.Name, it.Error)))
	}

	if it.Deprecated {
		subject := it.Name + "@" + it.Range.ResolvedExact
		if !it.Range.IsExact {
			subject = fmt.Sprintf("%s (latest %s)", it.Name, it.LatestVersion)
		}
		out = append(out, newResult(RuleDeprecated, "warning",
			fmt.Sprintf("%s is deprecated: %s", subject, it.DeprecationNote)))
	}

	for _, f := range it.Vulnerabilities {
		text := fmt.Sprintf("%s: %s (%s) %s", it.Name, f.ID, f.Severity, f.Description)
		if it.FixVersion != "" {
			text += fmt.Sprintf("; fixed in %s", it.FixVersion)
		}
		out = append(out, newResult(RuleVulnerable, vulnLevel(f.Severity), text))
	}
	return out
}

func updateRule(u version.UpdateType) string {
	switch u {
	case version.UpdateMajor:
		return RuleOutdatedMajor
	case version.UpdateMinor:
		return RuleOutdatedMinor
	default:
		return RuleOutdatedPatch
	}
}

func updateLevel(u version.UpdateType) string {
	if u == version.UpdateMajor {
		return "warning"
	}
	return "note"
}

func vulnLevel(s vuln.Severity) string {
	switch s {
	case vuln.SeverityCritical, vuln.SeverityHigh:
		return "error"
	case vuln.SeverityModerate:
		return "warning"
	default:
		return "note"
	}
}
