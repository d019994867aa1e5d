package manifest

import (
	"github.com/sambabib/depcheck/pkg/logger"
	"github.com/sambabib/depcheck/pkg/version"
)

// SectionKind is the dependency section a record was declared in.
type SectionKind string

const (
	SectionRuntime  SectionKind = "runtime"
	SectionDev      SectionKind = "dev"
	SectionPeer     SectionKind = "peer"
	SectionOptional SectionKind = "optional"
)

// sections is the fixed iteration order. A later section overwrites an
// earlier one when the same package is declared twice.
var sections = []struct {
	key  string
	kind SectionKind
}{
	{"dependencies", SectionRuntime},
	{"devDependencies", SectionDev},
	{"peerDependencies", SectionPeer},
	{"optionalDependencies", SectionOptional},
}

// DependencyRecord is one declared dependency.
type DependencyRecord struct {
	Name            string            `json:"name"`
	DeclaredVersion string            `json:"declared_version"`
	Section         SectionKind       `json:"section"`
	Range           version.RangeInfo `json:"range"`
}

// DependencySet is an insertion-ordered set of records keyed by name.
type DependencySet struct {
	order   []string
	records map[string]DependencyRecord
}

func newDependencySet() *DependencySet {
	return &DependencySet{records: make(map[string]DependencyRecord)}
}

func (s *DependencySet) put(rec DependencyRecord) {
	if _, ok := s.records[rec.Name]; !ok {
		s.order = append(s.order, rec.Name)
	}
	s.records[rec.Name] = rec
}

// Len is the number of distinct dependencies.
func (s *DependencySet) Len() int { return len(s.order) }

// Names returns dependency names in extraction order.
func (s *DependencySet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the record for name.
func (s *DependencySet) Get(name string) (DependencyRecord, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Records returns the records in extraction order.
func (s *DependencySet) Records() []DependencyRecord {
	out := make([]DependencyRecord, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.records[name])
	}
	return out
}

// Filter returns a new set without the records for which drop returns true.
func (s *DependencySet) Filter(drop func(name string) bool) *DependencySet {
	out := newDependencySet()
	for _, rec := range s.Records() {
		if drop(rec.Name) {
			logger.Debugf("[manifest] Ignoring %s", rec.Name)
			continue
		}
		out.put(rec)
	}
	return out
}

// Extract walks the dependency sections of doc and returns every declared
// dependency with its analyzed version specifier.
func Extract(doc Document) (*DependencySet, error) {
	if doc == nil {
		return nil, ErrNotAMapping
	}

	set := newDependencySet()
	for _, section := range sections {
		raw, ok := doc.Get(section.key)
		if !ok {
			continue
		}
		entries, ok := raw.(*Object)
		if !ok {
			logger.Debugf("[manifest] Skipping %s: not an object", section.key)
			continue
		}
		for _, name := range entries.Keys() {
			val, _ := entries.Get(name)
			spec, ok := val.(string)
			if !ok {
				logger.Debugf("[manifest] Skipping %s in %s: version is not a string", name, section.key)
				continue
			}
			if prev, dup := set.Get(name); dup {
				logger.Debugf("[manifest] %s declared in %s and %s, keeping %s", name, prev.Section, section.kind, section.kind)
			}
			set.put(DependencyRecord{
				Name:            name,
				DeclaredVersion: spec,
				Section:         section.kind,
				Range:           version.Analyze(spec),
			})
		}
	}

	return set, nil
}
