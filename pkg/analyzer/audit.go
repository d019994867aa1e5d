package analyzer

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/sambabib/depcheck/pkg/batch"
	"github.com/sambabib/depcheck/pkg/logger"
	"github.com/sambabib/depcheck/pkg/manifest"
	"github.com/sambabib/depcheck/pkg/vuln"
)

type auditLookup struct {
	findings   []vuln.Finding
	fixVersion string
	fixErr     error
}

// Audit collects the advisories at or above threshold for every
// dependency, most severe first. With fix set, each vulnerable dependency
// gets the newest published version that satisfies all of its fixed ranges
// as an advisory FixVersion; the manifest is never modified.
func (a *Analyzer) Audit(ctx context.Context, subject Subject, set *manifest.DependencySet, threshold vuln.Severity, fix bool) *Report {
	records := set.Records()
	logger.Infof("[audit] Auditing %d dependencies (severity >= %s)", len(records), threshold)

	outcomes := batch.Settle(ctx, records, a.opts.Concurrency, func(ctx context.Context, rec manifest.DependencyRecord) (auditLookup, error) {
		queryVersion := rec.DeclaredVersion
		if rec.Range.IsExact {
			queryVersion = rec.Range.ResolvedExact
		}
		found, err := a.vulns.Vulnerabilities(ctx, rec.Name, queryVersion)
		if err != nil {
			return auditLookup{}, err
		}
		res := auditLookup{findings: vuln.Filter(found, threshold)}
		if fix && len(res.findings) > 0 {
			res.fixVersion, res.fixErr = a.fixVersion(ctx, rec, res.findings)
		}
		return res, nil
	})

	items := make([]ReportItem, len(records))
	for i, rec := range records {
		item := newItem(rec)
		o := outcomes[i]
		if !o.OK() {
			logger.Warnf("[audit] %s: %v", rec.Name, o.Err)
			item.failAdvisory(o.Err)
			items[i] = item
			continue
		}

		item.Vulnerabilities = o.Value.findings
		item.FixVersion = o.Value.fixVersion
		if o.Value.fixErr != nil {
			item.Error = o.Value.fixErr.Error()
		}
		item.Level = LevelOK
		if len(item.Vulnerabilities) > 0 {
			item.Level = string(item.Vulnerabilities[0].Severity)
			logger.Debugf("[audit] %s: %d advisories", rec.Name, len(item.Vulnerabilities))
		}
		items[i] = item
	}

	return newReport(subject, ModeAudit, items)
}

// fixVersion picks the newest published version satisfying every fixed
// range of findings and, for an exact current version, newer than it.
func (a *Analyzer) fixVersion(ctx context.Context, rec manifest.DependencyRecord, findings []vuln.Finding) (string, error) {
	var constraints []*semver.Constraints
	for _, f := range findings {
		if f.FixedRange == "" {
			continue
		}
		c, err := semver.NewConstraint(f.FixedRange)
		if err != nil {
			return "", fmt.Errorf("advisory %s: invalid fixed range %q: %w", f.ID, f.FixedRange, err)
		}
		constraints = append(constraints, c)
	}
	if len(constraints) == 0 {
		return "", nil
	}

	versions, err := a.registry.Versions(ctx, rec.Name)
	if err != nil {
		return "", fmt.Errorf("fix lookup failed: %w", err)
	}

	current := rec.Range.Exact()
	// versions are ascending; walk from the newest
	for i := len(versions) - 1; i >= 0; i-- {
		v, err := semver.StrictNewVersion(versions[i])
		if err != nil {
			continue
		}
		if current != nil && !v.GreaterThan(current) {
			break
		}
		if satisfiesAll(v, constraints) {
			return versions[i], nil
		}
	}
	return "", nil
}

func satisfiesAll(v *semver.Version, constraints []*semver.Constraints) bool {
	for _, c := range constraints {
		if !c.Check(v) {
			return false
		}
	}
	return true
}

// PlannedFixes lists the advisory fixes of an audit report. Nothing is written.
func PlannedFixes(r *Report) []string {
	var out []string
	for _, it := range r.Items {
		if it.FixVersion == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s -> %s (fixes %d advisories)", it.Name, it.CurrentVersion, it.FixVersion, len(it.Vulnerabilities)))
	}
	return out
}
