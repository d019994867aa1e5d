package vuln

import (
	"context"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/sambabib/depcheck/pkg/logger"
)

// Source looks up the advisories affecting one package version.
type Source interface {
	Vulnerabilities(ctx context.Context, name, version string) ([]Finding, error)
}

// NoopSource reports no advisories. It is the default when no advisory
// database is configured.
type NoopSource struct{}

func (NoopSource) Vulnerabilities(context.Context, string, string) ([]Finding, error) {
	return nil, nil
}

// FileSource serves advisories from a local YAML file keyed by package name:
//
//	lodash:
//	  - id: GHSA-jf85-cpcp-j695
//	    severity: critical
//	    affected: "<4.17.12"
//	    fixed: ">=4.17.12"
//	    description: Prototype pollution
type FileSource struct {
	advisories map[string][]Finding
}

// LoadFileSource reads an advisory file.
func LoadFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read advisory file: %w", err)
	}
	return ParseFileSource(data)
}

// ParseFileSource decodes advisory YAML. Entries with an unknown severity
// or an unparseable affected range are rejected.
func ParseFileSource(data []byte) (*FileSource, error) {
	var advisories map[string][]Finding
	if err := yaml.Unmarshal(data, &advisories); err != nil {
		return nil, fmt.Errorf("failed to parse advisory file: %w", err)
	}

	for name, findings := range advisories {
		for i, f := range findings {
			sev, err := ParseSeverity(string(f.Severity))
			if err != nil {
				return nil, fmt.Errorf("advisory %s for %s: %w", f.ID, name, err)
			}
			findings[i].Severity = sev
			if f.AffectedRange == "" {
				findings[i].AffectedRange = "*"
			} else if _, err := semver.NewConstraint(f.AffectedRange); err != nil {
				return nil, fmt.Errorf("advisory %s for %s: invalid affected range %q: %w", f.ID, name, f.AffectedRange, err)
			}
		}
	}

	return &FileSource{advisories: advisories}, nil
}

// Vulnerabilities returns the advisories whose affected range contains
// version. When version is not an exact version (a range or a tag) the
// advisory cannot be ruled out and is reported.
func (s *FileSource) Vulnerabilities(ctx context.Context, name, version string) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	findings := s.advisories[name]
	if len(findings) == 0 {
		return nil, nil
	}

	v, verr := semver.StrictNewVersion(version)
	var out []Finding
	for _, f := range findings {
		if verr != nil {
			out = append(out, f)
			continue
		}
		c, err := semver.NewConstraint(f.AffectedRange)
		if err != nil {
			logger.Warnf("[vuln] Skipping advisory %s for %s: %v", f.ID, name, err)
			continue
		}
		if c.Check(v) {
			out = append(out, f)
		}
	}
	return out, nil
}
