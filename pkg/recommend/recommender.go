// Package recommend picks the update targets worth proposing for a
// dependency out of every version the registry has published.
package recommend

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/sambabib/depcheck/pkg/version"
)

// Priority ranks how strongly an update is recommended.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Candidate is a published version newer than the current one.
type Candidate struct {
	Version  string             `json:"version"`
	Bucket   version.UpdateType `json:"bucket"`
	Breaking bool               `json:"breaking"`

	parsed *semver.Version
}

// Recommendation is the single newest version proposed for one bucket.
type Recommendation struct {
	Bucket    version.UpdateType `json:"bucket"`
	Version   string             `json:"version"`
	Priority  Priority           `json:"priority"`
	Breaking  bool               `json:"breaking"`
	Rationale string             `json:"rationale"`
}

// bucketOrder is also the emission order.
var bucketOrder = []version.UpdateType{version.UpdatePatch, version.UpdateMinor, version.UpdateMajor}

// PriorityFor maps a bucket to its fixed priority.
func PriorityFor(bucket version.UpdateType) Priority {
	switch bucket {
	case version.UpdatePatch:
		return PriorityHigh
	case version.UpdateMinor:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func rationale(bucket version.UpdateType, from, to string) string {
	switch bucket {
	case version.UpdatePatch:
		return fmt.Sprintf("%s -> %s is a patch release with bug fixes; safe to apply", from, to)
	case version.UpdateMinor:
		return fmt.Sprintf("%s -> %s adds backwards-compatible features", from, to)
	default:
		return fmt.Sprintf("%s -> %s is a new major version and may contain breaking changes; review the changelog", from, to)
	}
}

// Candidates returns every parseable version strictly greater than current,
// classified into its bucket, in ascending version order. It returns nil
// when current does not resolve to an exact version.
func Candidates(current version.RangeInfo, versions []string) []Candidate {
	base := current.Exact()
	if base == nil {
		return nil
	}

	parsed := make([]*semver.Version, 0, len(versions))
	for _, raw := range versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			continue
		}
		if !v.GreaterThan(base) {
			continue
		}
		parsed = append(parsed, v)
	}
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].LessThan(parsed[j]) })

	out := make([]Candidate, 0, len(parsed))
	for _, v := range parsed {
		bucket := version.ClassifyVersions(base, v)
		if !bucket.IsUpdate() {
			continue
		}
		out = append(out, Candidate{
			Version:  v.Original(),
			Bucket:   bucket,
			Breaking: bucket == version.UpdateMajor,
			parsed:   v,
		})
	}
	return out
}

// Recommend returns at most one recommendation per bucket, each naming the
// newest version in that bucket. The major bucket is only included when
// includeMajor is set.
func Recommend(current version.RangeInfo, versions []string, includeMajor bool) []Recommendation {
	candidates := Candidates(current, versions)
	if len(candidates) == 0 {
		return nil
	}

	// candidates are ascending, so the last one seen per bucket is the newest;
	// equal versions keep the first occurrence.
	top := make(map[version.UpdateType]Candidate, len(bucketOrder))
	for _, c := range candidates {
		prev, ok := top[c.Bucket]
		if ok && !c.parsed.GreaterThan(prev.parsed) {
			continue
		}
		top[c.Bucket] = c
	}

	var recs []Recommendation
	for _, bucket := range bucketOrder {
		c, ok := top[bucket]
		if !ok {
			continue
		}
		if bucket == version.UpdateMajor && !includeMajor {
			continue
		}
		recs = append(recs, Recommendation{
			Bucket:    bucket,
			Version:   c.Version,
			Priority:  PriorityFor(bucket),
			Breaking:  c.Breaking,
			Rationale: rationale(bucket, current.ResolvedExact, c.Version),
		})
	}
	return recs
}
