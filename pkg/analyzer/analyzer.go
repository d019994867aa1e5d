package analyzer

import (
	"context"

	"github.com/sambabib/depcheck/pkg/manifest"
	"github.com/sambabib/depcheck/pkg/registry"
	"github.com/sambabib/depcheck/pkg/version"
	"github.com/sambabib/depcheck/pkg/vuln"
)

// DefaultConcurrency caps in-flight registry lookups when Options leaves it unset.
const DefaultConcurrency = 10

// DeprecationChecker is implemented by gateways that can tell whether a
// published version carries a deprecation notice.
type DeprecationChecker interface {
	Deprecated(ctx context.Context, name, version string) (string, error)
}

// PackageLookup is implemented by gateways that can return latest,
// versions and deprecation notices from a single registry document.
type PackageLookup interface {
	Lookup(ctx context.Context, name string) (registry.PackageInfo, error)
}

var _ PackageLookup = (*registry.Client)(nil)

// Options tunes an Analyzer.
type Options struct {
	// Concurrency is the maximum number of lookups in flight.
	Concurrency int
	// Level maps an update type to the report level ("ok", "info",
	// "warning", "error"). Nil uses DefaultLevel.
	Level func(version.UpdateType) string
}

// Analyzer runs the check, update and audit pipelines over a manifest's
// dependencies. Registry and advisory access are injected; the analyzer
// holds no other state and is safe for concurrent use.
type Analyzer struct {
	registry registry.Gateway
	vulns    vuln.Source
	opts     Options
}

// New creates an Analyzer. A nil vuln source reports no advisories.
func New(gw registry.Gateway, src vuln.Source, opts Options) *Analyzer {
	if src == nil {
		src = vuln.NoopSource{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Level == nil {
		opts.Level = DefaultLevel
	}
	return &Analyzer{registry: gw, vulns: src, opts: opts}
}

// DefaultLevel is the built-in update type to level mapping.
func DefaultLevel(u version.UpdateType) string {
	switch u {
	case version.UpdateMajor:
		return LevelError
	case version.UpdateMinor:
		return LevelWarning
	case version.UpdatePatch:
		return LevelInfo
	case version.UpdateNone:
		return LevelOK
	default:
		return LevelUnknown
	}
}

// Subject identifies the project whose manifest is being analyzed.
type Subject struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SubjectOf reads the subject from a manifest document.
func SubjectOf(doc manifest.Document) Subject {
	return Subject{Name: doc.Name(), Version: doc.Version()}
}
