// Package vuln holds vulnerability findings, their severity ordering and the
// pluggable sources they come from.
package vuln

import (
	"fmt"
	"sort"
	"strings"
)

// Severity is the ordered advisory severity: low < moderate < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every level from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityModerate, SeverityLow}

// Rank returns the position of s in the total order, 0 for unknown values.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ParseSeverity accepts a level name case-insensitively. "medium" is
// accepted as an alias for moderate.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "moderate", "medium":
		return SeverityModerate, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return "", fmt.Errorf("unknown severity %q (want low, moderate, high or critical)", s)
	}
}

// Finding is a single advisory affecting a dependency.
type Finding struct {
	ID            string   `json:"id" yaml:"id"`
	Severity      Severity `json:"severity" yaml:"severity"`
	AffectedRange string   `json:"affected_range" yaml:"affected"`
	FixedRange    string   `json:"fixed_range,omitempty" yaml:"fixed"`
	Description   string   `json:"description" yaml:"description"`
}

// Filter keeps findings ranked at or above threshold and orders them from
// most to least severe. Equal severities keep their input order; duplicates
// are not removed.
func Filter(findings []Finding, threshold Severity) []Finding {
	floor := threshold.Rank()
	kept := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.Rank() >= floor {
			kept = append(kept, f)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Severity.Rank() > kept[j].Severity.Rank()
	})
	return kept
}

// Counts tallies findings per severity.
type Counts map[Severity]int

// Add records findings into the tally.
func (c Counts) Add(findings []Finding) {
	for _, f := range findings {
		c[f.Severity]++
	}
}

// Total is the number of findings across all severities.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
