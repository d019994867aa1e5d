package analyzer

import (
	"context"
	"fmt"

	"github.com/sambabib/depcheck/pkg/batch"
	"github.com/sambabib/depcheck/pkg/logger"
	"github.com/sambabib/depcheck/pkg/manifest"
	"github.com/sambabib/depcheck/pkg/recommend"
)

// Update computes update recommendations for every dependency. A
// dependency counts as outdated only when at least one recommendation was
// produced, so with includeMajor unset a dependency whose only newer
// versions are majors is reported as up to date (its UpdateType still says
// major).
func (a *Analyzer) Update(ctx context.Context, subject Subject, set *manifest.DependencySet, includeMajor bool) *Report {
	records := set.Records()
	logger.Infof("[update] Computing recommendations for %d dependencies (major: %v)", len(records), includeMajor)

	outcomes := batch.Settle(ctx, records, a.opts.Concurrency, func(ctx context.Context, rec manifest.DependencyRecord) (packageLookup, error) {
		return a.lookup(ctx, rec, true)
	})

	items := make([]ReportItem, len(records))
	for i, rec := range records {
		item := newItem(rec)
		o := outcomes[i]
		if !o.OK() {
			logger.Warnf("[update] %s: %v", rec.Name, o.Err)
			item.fail(o.Err)
			items[i] = item
			continue
		}

		a.applyLatest(&item, o.Value)
		item.Recommendations = recommend.Recommend(rec.Range, o.Value.versions, includeMajor)
		item.UpdateAvailable = len(item.Recommendations) > 0
		if !item.UpdateAvailable {
			item.Level = LevelOK
			if !rec.Range.IsExact {
				item.Level = LevelUnknown
			}
		}
		items[i] = item
	}

	return newReport(subject, ModeUpdate, items)
}

// PlannedChanges lists the manifest edits an update report proposes, one
// line per recommendation. Nothing is written.
func PlannedChanges(r *Report) []string {
	var out []string
	for _, it := range r.Items {
		for _, rec := range it.Recommendations {
			out = append(out, fmt.Sprintf("%s: %s -> %s (%s, priority %s)", it.Name, it.CurrentVersion, rec.Version, rec.Bucket, rec.Priority))
		}
	}
	return out
}
