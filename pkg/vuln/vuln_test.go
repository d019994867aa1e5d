package vuln

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.ID)
	}
	return out
}

func TestFilter_ThresholdAndOrder(t *testing.T) {
	findings := []Finding{
		{ID: "A", Severity: SeverityModerate},
		{ID: "B", Severity: SeverityHigh},
		{ID: "C", Severity: SeverityCritical},
	}

	got := Filter(findings, SeverityHigh)

	assert.Equal(t, []string{"C", "B"}, ids(got))
}

func TestFilter_StableAndNoDedup(t *testing.T) {
	findings := []Finding{
		{ID: "low-1", Severity: SeverityLow},
		{ID: "high-1", Severity: SeverityHigh},
		{ID: "dup", Severity: SeverityCritical},
		{ID: "high-2", Severity: SeverityHigh},
		{ID: "dup", Severity: SeverityCritical},
		{ID: "mod-1", Severity: SeverityModerate},
	}

	got := Filter(findings, SeverityLow)

	assert.Equal(t, []string{"dup", "dup", "high-1", "high-2", "mod-1", "low-1"}, ids(got))
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	findings := []Finding{{ID: "a", Severity: SeverityLow}, {ID: "b", Severity: SeverityCritical}}

	_ = Filter(findings, SeverityLow)

	assert.Equal(t, []string{"a", "b"}, ids(findings))
}

func TestFilter_Empty(t *testing.T) {
	assert.Empty(t, Filter(nil, SeverityCritical))
	assert.Empty(t, Filter([]Finding{{ID: "x", Severity: SeverityLow}}, SeverityCritical))
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"low":      SeverityLow,
		"Moderate": SeverityModerate,
		"medium":   SeverityModerate,
		" HIGH ":   SeverityHigh,
		"critical": SeverityCritical,
	}
	for in, want := range tests {
		got, err := ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseSeverity("severe")
	assert.Error(t, err)
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityLow.Rank(), SeverityModerate.Rank())
	assert.Less(t, SeverityModerate.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityCritical.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())
}

func TestCounts(t *testing.T) {
	c := Counts{}
	c.Add([]Finding{{Severity: SeverityHigh}, {Severity: SeverityHigh}, {Severity: SeverityLow}})

	assert.Equal(t, 2, c[SeverityHigh])
	assert.Equal(t, 1, c[SeverityLow])
	assert.Equal(t, 3, c.Total())
}

func TestNoopSource(t *testing.T) {
	findings, err := NoopSource{}.Vulnerabilities(context.Background(), "lodash", "4.17.20")
	assert.NoError(t, err)
	assert.Empty(t, findings)
}

const advisoryYAML = `
lodash:
  - id: GHSA-old
    severity: critical
    affected: "<4.17.12"
    fixed: ">=4.17.12"
    description: Prototype pollution
  - id: GHSA-new
    severity: High
    affected: ">=4.17.0 <4.17.21"
    fixed: ">=4.17.21"
    description: Command injection
minimist:
  - id: GHSA-any
    severity: low
    description: Applies to every version
`

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(advisoryYAML), 0o644))

	src, err := LoadFileSource(path)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("matches affected range", func(t *testing.T) {
		findings, err := src.Vulnerabilities(ctx, "lodash", "4.17.20")
		require.NoError(t, err)
		assert.Equal(t, []string{"GHSA-new"}, ids(findings))
		assert.Equal(t, SeverityHigh, findings[0].Severity)
	})

	t.Run("fixed version is clean", func(t *testing.T) {
		findings, err := src.Vulnerabilities(ctx, "lodash", "4.17.21")
		require.NoError(t, err)
		assert.Empty(t, findings)
	})

	t.Run("old version hits both", func(t *testing.T) {
		findings, err := src.Vulnerabilities(ctx, "lodash", "4.17.5")
		require.NoError(t, err)
		assert.Equal(t, []string{"GHSA-old", "GHSA-new"}, ids(findings))
	})

	t.Run("range specifier cannot be ruled out", func(t *testing.T) {
		findings, err := src.Vulnerabilities(ctx, "lodash", "^4.17.0")
		require.NoError(t, err)
		assert.Len(t, findings, 2)
	})

	t.Run("missing affected means every version", func(t *testing.T) {
		findings, err := src.Vulnerabilities(ctx, "minimist", "1.2.8")
		require.NoError(t, err)
		assert.Equal(t, []string{"GHSA-any"}, ids(findings))
	})

	t.Run("unknown package", func(t *testing.T) {
		findings, err := src.Vulnerabilities(ctx, "react", "18.2.0")
		require.NoError(t, err)
		assert.Empty(t, findings)
	})
}

func TestParseFileSource_Invalid(t *testing.T) {
	_, err := ParseFileSource([]byte("lodash:\n  - id: X\n    severity: severe\n"))
	assert.Error(t, err)

	_, err = ParseFileSource([]byte("lodash:\n  - id: X\n    severity: low\n    affected: \"not a range\"\n"))
	assert.Error(t, err)

	_, err = ParseFileSource([]byte("::: not yaml"))
	assert.Error(t, err)
}

func TestLoadFileSource_Missing(t *testing.T) {
	_, err := LoadFileSource(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
