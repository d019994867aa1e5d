package analyzer

import (
	"time"

	"github.com/sambabib/depcheck/pkg/manifest"
	"github.com/sambabib/depcheck/pkg/recommend"
	"github.com/sambabib/depcheck/pkg/version"
	"github.com/sambabib/depcheck/pkg/vuln"
)

// Mode is the pipeline a report was produced by.
type Mode string

const (
	ModeCheck  Mode = "check"
	ModeUpdate Mode = "update"
	ModeAudit  Mode = "audit"
)

// Report levels.
const (
	LevelOK      = "ok"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
	LevelUnknown = "unknown"
)

// ReportItem represents the status of a single dependency
type ReportItem struct {
	Name            string                     `json:"name"`            // package name
	CurrentVersion  string                     `json:"current_version"` // specifier as declared in the manifest
	Section         manifest.SectionKind       `json:"section"`
	Range           version.RangeInfo          `json:"range"`
	LatestVersion   string                     `json:"latest_version,omitempty"` // empty when the lookup failed
	UpdateType      version.UpdateType         `json:"update_type"`
	UpdateAvailable bool                       `json:"update_available"`
	Deprecated      bool                       `json:"deprecated"`
	DeprecationNote string                     `json:"deprecation_note,omitempty"`
	Recommendations []recommend.Recommendation `json:"recommendations,omitempty"`
	Vulnerabilities []vuln.Finding             `json:"vulnerabilities,omitempty"`
	FixVersion      string                     `json:"fix_version,omitempty"` // advisory only, never written
	Level           string                     `json:"level"`                 // "ok", "info", "warning", "error", "unknown"
	LookupFailed    bool                       `json:"lookup_failed"`         // registry lookup failed
	AdvisoryFailed  bool                       `json:"advisory_failed"`       // advisory source failed
	Error           string                     `json:"error,omitempty"`
}

func newItem(rec manifest.DependencyRecord) ReportItem {
	return ReportItem{
		Name:           rec.Name,
		CurrentVersion: rec.DeclaredVersion,
		Section:        rec.Section,
		Range:          rec.Range,
		UpdateType:     version.UpdateUnknown,
		Level:          LevelUnknown,
	}
}

// failAdvisory records a failed advisory query. The registry state of the
// item is untouched.
func (it *ReportItem) failAdvisory(err error) {
	it.AdvisoryFailed = true
	it.Level = LevelError
	it.Error = err.Error()
}

func (it *ReportItem) fail(err error) {
	it.LookupFailed = true
	it.LatestVersion = ""
	it.UpdateAvailable = false
	it.Level = LevelError
	it.Error = err.Error()
}

// Summary holds the aggregate counters of a report. UpToDate and Outdated
// partition Total. A failed lookup produces no update and is therefore
// counted as up to date; LookupFailed counts those separately.
type Summary struct {
	Total           int         `json:"total"`
	UpToDate        int         `json:"up_to_date"`
	Outdated        int         `json:"outdated"`
	Major           int         `json:"major"`
	Minor           int         `json:"minor"`
	Patch           int         `json:"patch"`
	Deprecated      int         `json:"deprecated"`
	LookupFailed    int         `json:"lookup_failed"`
	AdvisoryFailed  int         `json:"advisory_failed"`
	Vulnerable      int         `json:"vulnerable"`
	Vulnerabilities int         `json:"vulnerabilities"`
	BySeverity      vuln.Counts `json:"by_severity,omitempty"`
}

// Report is the result of one check, update or audit invocation.
type Report struct {
	Package     Subject      `json:"package"`
	Mode        Mode         `json:"mode"`
	GeneratedAt time.Time    `json:"generated_at"`
	Summary     Summary      `json:"summary"`
	Items       []ReportItem `json:"items"`
}

// Summarize computes the counters for items. Bucket counters count every
// recommendation when an item has any, otherwise the item's own update type.
func Summarize(items []ReportItem) Summary {
	s := Summary{Total: len(items)}
	counts := vuln.Counts{}

	for _, it := range items {
		if it.UpdateAvailable {
			s.Outdated++
		} else {
			s.UpToDate++
		}
		if it.LookupFailed {
			s.LookupFailed++
		}
		if it.AdvisoryFailed {
			s.AdvisoryFailed++
		}
		if it.Deprecated {
			s.Deprecated++
		}

		if len(it.Recommendations) > 0 {
			for _, r := range it.Recommendations {
				s.addBucket(r.Bucket)
			}
		} else if it.UpdateAvailable {
			s.addBucket(it.UpdateType)
		}

		if len(it.Vulnerabilities) > 0 {
			s.Vulnerable++
			counts.Add(it.Vulnerabilities)
		}
	}

	s.Vulnerabilities = counts.Total()
	if len(counts) > 0 {
		s.BySeverity = counts
	}
	return s
}

func (s *Summary) addBucket(u version.UpdateType) {
	switch u {
	case version.UpdateMajor:
		s.Major++
	case version.UpdateMinor:
		s.Minor++
	case version.UpdatePatch:
		s.Patch++
	}
}

func newReport(subject Subject, mode Mode, items []ReportItem) *Report {
	return &Report{
		Package:     subject,
		Mode:        mode,
		GeneratedAt: time.Now().UTC(),
		Summary:     Summarize(items),
		Items:       items,
	}
}
