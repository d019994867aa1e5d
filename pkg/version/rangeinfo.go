// Package version classifies npm version specifiers and the delta between
// two published versions.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind is the shape of a version specifier.
type Kind string

const (
	KindExact   Kind = "exact"
	KindRange   Kind = "range"
	KindInvalid Kind = "invalid"
)

// RangeInfo describes a declared version specifier. IsExact and IsRange are
// never both true; both are false only for specifiers that are neither a
// strict version nor a valid comparator range (dist-tags, git URLs, ...).
type RangeInfo struct {
	Original      string  `json:"original"`
	ResolvedExact string  `json:"resolved_exact,omitempty"`
	IsExact       bool    `json:"is_exact"`
	IsRange       bool    `json:"is_range"`
	Major         *uint64 `json:"major,omitempty"`
	Minor         *uint64 `json:"minor,omitempty"`
	Patch         *uint64 `json:"patch,omitempty"`
}

// Kind reports which of the three mutually exclusive shapes the specifier has.
func (r RangeInfo) Kind() Kind {
	switch {
	case r.IsExact:
		return KindExact
	case r.IsRange:
		return KindRange
	default:
		return KindInvalid
	}
}

// Exact returns the parsed resolved version, or nil when the specifier is
// not an exact version.
func (r RangeInfo) Exact() *semver.Version {
	if !r.IsExact {
		return nil
	}
	v, err := semver.StrictNewVersion(r.ResolvedExact)
	if err != nil {
		return nil
	}
	return v
}

// Analyze classifies a version specifier as exact, range or invalid.
// It never fails: unparseable input yields the all-false result.
func Analyze(spec string) RangeInfo {
	info := RangeInfo{Original: spec}

	if clean, ok := Clean(spec); ok {
		v, _ := semver.StrictNewVersion(clean)
		major, minor, patch := v.Major(), v.Minor(), v.Patch()
		info.IsExact = true
		info.ResolvedExact = clean
		info.Major = &major
		info.Minor = &minor
		info.Patch = &patch
		return info
	}

	if strings.TrimSpace(spec) != "" {
		if _, err := semver.NewConstraint(spec); err == nil {
			info.IsRange = true
		}
	}

	return info
}

// Clean strips surrounding whitespace and a leading "=" or "v" and returns
// the remainder if it is a strict MAJOR.MINOR.PATCH version. Comparator
// prefixes such as "^" or "~" are not stripped: those make a range.
func Clean(spec string) (string, bool) {
	s := strings.TrimSpace(spec)
	s = strings.TrimLeft(s, "=")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return "", false
	}
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return "", false
	}
	// Build metadata is dropped, the way npm normalizes versions.
	clean := v.String()
	if md := v.Metadata(); md != "" {
		clean = strings.TrimSuffix(clean, "+"+md)
	}
	return clean, true
}
