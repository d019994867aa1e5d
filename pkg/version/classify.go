package version

import (
	"github.com/Masterminds/semver/v3"
)

// UpdateType is the granularity of the delta between two versions.
type UpdateType string

const (
	UpdateNone    UpdateType = "none"
	UpdatePatch   UpdateType = "patch"
	UpdateMinor   UpdateType = "minor"
	UpdateMajor   UpdateType = "major"
	UpdateUnknown UpdateType = "unknown"
)

// IsUpdate reports whether the type is one of the patch, minor or major buckets.
func (u UpdateType) IsUpdate() bool {
	return u == UpdatePatch || u == UpdateMinor || u == UpdateMajor
}

// Classify compares candidate against current numerically, component by
// component. The first differing component decides: a greater candidate
// yields that bucket, a smaller one yields UpdateNone. Pre-release and build
// suffixes do not take part. Either side failing a strict parse yields
// UpdateUnknown.
func Classify(current, candidate string) UpdateType {
	cur, err := semver.StrictNewVersion(current)
	if err != nil {
		return UpdateUnknown
	}
	cand, err := semver.StrictNewVersion(candidate)
	if err != nil {
		return UpdateUnknown
	}
	return classifyParsed(cur, cand)
}

func classifyParsed(cur, cand *semver.Version) UpdateType {
	switch {
	case cand.Major() > cur.Major():
		return UpdateMajor
	case cand.Major() < cur.Major():
		return UpdateNone
	case cand.Minor() > cur.Minor():
		return UpdateMinor
	case cand.Minor() < cur.Minor():
		return UpdateNone
	case cand.Patch() > cur.Patch():
		return UpdatePatch
	default:
		return UpdateNone
	}
}

// ClassifyVersions is Classify for already parsed versions.
func ClassifyVersions(cur, cand *semver.Version) UpdateType {
	if cur == nil || cand == nil {
		return UpdateUnknown
	}
	return classifyParsed(cur, cand)
}
