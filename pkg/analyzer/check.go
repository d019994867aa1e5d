package analyzer

import (
	"context"

	"github.com/sambabib/depcheck/pkg/batch"
	"github.com/sambabib/depcheck/pkg/logger"
	"github.com/sambabib/depcheck/pkg/manifest"
	"github.com/sambabib/depcheck/pkg/version"
)

// Check looks up the latest version of every dependency and classifies how
// far behind the declared version is. Lookup failures are recorded on the
// item and never fail the report.
func (a *Analyzer) Check(ctx context.Context, subject Subject, set *manifest.DependencySet) *Report {
	records := set.Records()
	logger.Infof("[check] Checking %d dependencies (concurrency %d)", len(records), a.opts.Concurrency)

	outcomes := batch.Settle(ctx, records, a.opts.Concurrency, func(ctx context.Context, rec manifest.DependencyRecord) (packageLookup, error) {
		return a.lookup(ctx, rec, false)
	})

	items := make([]ReportItem, len(records))
	for i, rec := range records {
		item := newItem(rec)
		if o := outcomes[i]; !o.OK() {
			logger.Warnf("[check] %s: %v", rec.Name, o.Err)
			item.fail(o.Err)
		} else {
			a.applyLatest(&item, o.Value)
		}
		items[i] = item
	}

	return newReport(subject, ModeCheck, items)
}

func (a *Analyzer) applyLatest(item *ReportItem, l packageLookup) {
	item.LatestVersion = l.latest
	item.UpdateType = version.Classify(item.Range.ResolvedExact, l.latest)
	item.UpdateAvailable = item.UpdateType.IsUpdate()
	item.Level = a.opts.Level(item.UpdateType)
	if l.deprecationNote != "" {
		item.Deprecated = true
		item.DeprecationNote = l.deprecationNote
	}
	logger.Debugf("[check] %s: %s -> %s (%s)", item.Name, item.CurrentVersion, item.LatestVersion, item.UpdateType)
}

// packageLookup is what one registry round trip yields for a dependency.
type packageLookup struct {
	latest          string
	versions        []string
	deprecationNote string
}

// lookup fetches latest (and, with withVersions, every published version)
// for rec. Gateways implementing PackageLookup answer from one document.
func (a *Analyzer) lookup(ctx context.Context, rec manifest.DependencyRecord, withVersions bool) (packageLookup, error) {
	if pl, ok := a.registry.(PackageLookup); ok {
		info, err := pl.Lookup(ctx, rec.Name)
		if err != nil {
			return packageLookup{}, err
		}
		return packageLookup{
			latest:          info.Latest,
			versions:        info.Versions,
			deprecationNote: info.Deprecation(deprecationTarget(rec, info.Latest)),
		}, nil
	}

	latest, err := a.registry.LatestVersion(ctx, rec.Name)
	if err != nil {
		return packageLookup{}, err
	}
	res := packageLookup{latest: latest}
	if withVersions {
		if res.versions, err = a.registry.Versions(ctx, rec.Name); err != nil {
			return packageLookup{}, err
		}
	}
	res.deprecationNote = a.deprecation(ctx, rec.Name, deprecationTarget(rec, latest))
	return res, nil
}

// deprecationTarget is the version whose notice applies to rec: the
// declared version when exact, latest otherwise.
func deprecationTarget(rec manifest.DependencyRecord, latest string) string {
	if rec.Range.IsExact {
		return rec.Range.ResolvedExact
	}
	return latest
}

// deprecation returns the deprecation notice of name@ver when the gateway
// supports it. Failures only cost the notice.
func (a *Analyzer) deprecation(ctx context.Context, name, ver string) string {
	dc, ok := a.registry.(DeprecationChecker)
	if !ok {
		return ""
	}
	note, err := dc.Deprecated(ctx, name, ver)
	if err != nil {
		logger.Debugf("[check] %s: deprecation lookup failed: %v", name, err)
		return ""
	}
	return note
}
