package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sambabib/depcheck/pkg/analyzer"
	"github.com/sambabib/depcheck/pkg/config"
	"github.com/sambabib/depcheck/pkg/logger"
	"github.com/sambabib/depcheck/pkg/manifest"
	"github.com/sambabib/depcheck/pkg/output"
)

// project is a loaded manifest plus the configuration that applies to it.
type project struct {
	cfg          *config.Config
	manifestPath string
	subject      analyzer.Subject
	deps         *manifest.DependencySet
	analyzer     *analyzer.Analyzer
}

// runFlags are the per-command overrides of configuration values.
type runFlags struct {
	format      string
	concurrency int
	noCache     bool
}

func (f *runFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.format, "format", "f", "", "Output format: table, json, csv or sarif")
	flags.IntVar(&f.concurrency, "concurrency", 0, "Maximum concurrent registry lookups")
	flags.BoolVar(&f.noCache, "no-cache", false, "Disable the registry response cache")
}

func (f *runFlags) apply(cfg *config.Config) error {
	if f.format != "" {
		format, err := output.ParseFormat(f.format)
		if err != nil {
			return err
		}
		cfg.Output.Format = string(format)
	}
	if f.concurrency < 0 {
		return fmt.Errorf("--concurrency must be positive, got %d", f.concurrency)
	}
	if f.concurrency > 0 {
		cfg.Concurrency = f.concurrency
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	// NO_COLOR and CLICOLOR=0 are honoured like --no-color
	if noColor || termenv.EnvNoColor() {
		cfg.Output.Color = false
	}
	return cfg.Validate()
}

func projectPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// loadProject reads the manifest at path, loads configuration, drops
// ignored packages and builds the analyzer.
func loadProject(path string, flags *runFlags) (*project, error) {
	res := manifest.Parse(path)
	if !res.Success {
		return nil, res.Err
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.FindAndLoadConfig(filepath.Dir(res.Path))
	}
	if err != nil {
		return nil, err
	}
	if err := flags.apply(cfg); err != nil {
		return nil, err
	}

	deps, err := manifest.Extract(res.Document)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", res.Path, err)
	}
	total := deps.Len()
	deps = deps.Filter(cfg.IsPackageIgnored)
	if skipped := total - deps.Len(); skipped > 0 {
		logger.Debugf("[cmd] Ignoring %d packages per configuration", skipped)
	}

	a, err := injectAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	logger.WithField("manifest", res.Path).Debugf("Found %d dependencies", deps.Len())
	return &project{
		cfg:          cfg,
		manifestPath: res.Path,
		subject:      analyzer.SubjectOf(res.Document),
		deps:         deps,
		analyzer:     a,
	}, nil
}

func (p *project) render(cmd *cobra.Command, report *analyzer.Report) error {
	return output.Render(cmd.OutOrStdout(), report, output.Format(p.cfg.Output.Format), output.Options{
		Color:        p.cfg.Output.Color,
		ManifestPath: p.manifestPath,
		ToolVersion:  Version,
	})
}
