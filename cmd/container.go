package cmd

import (
	"go.uber.org/dig"

	"github.com/sambabib/depcheck/pkg/analyzer"
	"github.com/sambabib/depcheck/pkg/config"
	"github.com/sambabib/depcheck/pkg/logger"
	"github.com/sambabib/depcheck/pkg/registry"
	"github.com/sambabib/depcheck/pkg/version"
	"github.com/sambabib/depcheck/pkg/vuln"
)

// registerProviders wires the analyzer graph around cfg:
// config -> registry client -> vuln source -> analyzer.
func registerProviders(container *dig.Container, cfg *config.Config) error {
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return err
	}
	if err := container.Provide(newRegistryClient); err != nil {
		return err
	}
	if err := container.Provide(func(c *registry.Client) registry.Gateway { return c }); err != nil {
		return err
	}
	if err := container.Provide(newVulnSource); err != nil {
		return err
	}
	if err := container.Provide(newAnalyzerOptions); err != nil {
		return err
	}
	if err := container.Provide(analyzer.New); err != nil {
		return err
	}
	return nil
}

func newRegistryClient(cfg *config.Config) *registry.Client {
	return registry.NewClient(
		registry.WithBaseURL(cfg.Registry.URL),
		registry.WithToken(cfg.Registry.Token),
		registry.WithTimeout(cfg.Registry.Timeout),
		registry.WithCache(cfg.Cache.Enabled, cfg.Cache.TTL, cfg.Cache.Size),
		registry.WithMaxIdleConns(cfg.Concurrency),
	)
}

func newVulnSource(cfg *config.Config) (vuln.Source, error) {
	if cfg.Audit.Advisories == "" {
		return vuln.NoopSource{}, nil
	}
	src, err := vuln.LoadFileSource(cfg.Audit.Advisories)
	if err != nil {
		return nil, err
	}
	logger.Debugf("[container] Using advisories from %s", cfg.Audit.Advisories)
	return src, nil
}

func newAnalyzerOptions(cfg *config.Config) analyzer.Options {
	return analyzer.Options{
		Concurrency: cfg.Concurrency,
		Level: func(u version.UpdateType) string {
			return cfg.GetSeverityForUpdate(string(u))
		},
	}
}

// injectAnalyzer builds the analyzer for cfg.
func injectAnalyzer(cfg *config.Config) (*analyzer.Analyzer, error) {
	container := dig.New()
	if err := registerProviders(container, cfg); err != nil {
		return nil, err
	}

	var a *analyzer.Analyzer
	if err := container.Invoke(func(built *analyzer.Analyzer) {
		a = built
	}); err != nil {
		return nil, err
	}
	return a, nil
}
