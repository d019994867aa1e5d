package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sambabib/depcheck/pkg/logger"
)

// FileName is the configuration file searched for in the project directory
// and its parents.
const FileName = ".depcheck.yaml"

// Environment overrides.
const (
	EnvRegistry = "DEPCHECK_REGISTRY"
	EnvToken    = "NPM_TOKEN"
)

// Config represents the configuration for the dependency checker
type Config struct {
	Registry struct {
		URL     string        `yaml:"url"`
		Token   string        `yaml:"token"` // usually supplied through NPM_TOKEN instead
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"registry"`

	// Concurrency caps simultaneous registry lookups.
	Concurrency int `yaml:"concurrency"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
		Size    int           `yaml:"size"`
	} `yaml:"cache"`

	// Report levels per update type
	Severity struct {
		Major string `yaml:"major"` // Default: error
		Minor string `yaml:"minor"` // Default: warning
		Patch string `yaml:"patch"` // Default: info
	} `yaml:"severity"`

	Audit struct {
		Severity   string `yaml:"severity"`   // minimum advisory severity, default low
		Advisories string `yaml:"advisories"` // optional advisory YAML file
	} `yaml:"audit"`

	// Output configuration
	Output struct {
		Format string `yaml:"format"` // table, json, csv, sarif
		Color  bool   `yaml:"color"`
	} `yaml:"output"`

	// Ignore specific packages
	IgnorePackages []string `yaml:"ignorePackages"`

	// path the config was loaded from, empty for defaults
	source string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	config := &Config{}

	config.Registry.URL = "https://registry.npmjs.org"
	config.Registry.Timeout = 30 * time.Second
	config.Concurrency = 10

	config.Cache.Enabled = true
	config.Cache.TTL = 5 * time.Minute
	config.Cache.Size = 1024

	config.Severity.Major = "error"
	config.Severity.Minor = "warning"
	config.Severity.Patch = "info"

	config.Audit.Severity = "low"

	config.Output.Format = "table"
	config.Output.Color = true

	return config
}

// Source returns the file the configuration was read from, or "" when
// only defaults apply.
func (c *Config) Source() string {
	return c.source
}

// LoadConfig loads the configuration from the specified file path
// If no path is provided, it looks for .depcheck.yaml in the current directory
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	explicit := configPath != ""
	if !explicit {
		configPath = FileName
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file %s does not exist", configPath)
		}
		return config.applyEnv(), nil
	}

	if err := config.readFile(configPath); err != nil {
		return nil, err
	}
	return config.applyEnv(), nil
}

// FindAndLoadConfig searches for a config file in the project directory and its parents
func FindAndLoadConfig(projectPath string) (*Config, error) {
	config := DefaultConfig()

	currentDir, err := filepath.Abs(projectPath)
	if err != nil {
		currentDir = projectPath
	}
	if info, statErr := os.Stat(currentDir); statErr == nil && !info.IsDir() {
		currentDir = filepath.Dir(currentDir)
	}

	for {
		configPath := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			if err := config.readFile(configPath); err != nil {
				return nil, err
			}
			return config.applyEnv(), nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return config.applyEnv(), nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	c.source = path
	logger.Debugf("[config] Loaded %s", path)
	return c.Validate()
}

// applyEnv loads a .env file from the working directory, if present, and
// applies environment overrides.
func (c *Config) applyEnv() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Debugf("[config] Loaded .env")
	}
	if v := strings.TrimSpace(os.Getenv(EnvRegistry)); v != "" {
		c.Registry.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		c.Registry.Token = v
	}
	return c
}

// Validate rejects values that cannot work.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Cache.Enabled && c.Cache.Size < 1 {
		return fmt.Errorf("cache size must be at least 1, got %d", c.Cache.Size)
	}
	switch c.Output.Format {
	case "table", "json", "csv", "sarif":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	return nil
}

// IsPackageIgnored checks if a package should be ignored based on the configuration
func (c *Config) IsPackageIgnored(packageName string) bool {
	for _, ignoredPackage := range c.IgnorePackages {
		if ignoredPackage == packageName {
			return true
		}
		// "@scope/*" ignores a whole scope
		if strings.HasSuffix(ignoredPackage, "/*") && strings.HasPrefix(packageName, strings.TrimSuffix(ignoredPackage, "*")) {
			return true
		}
	}
	return false
}

// GetSeverityForUpdate returns the configured severity level for the given update type
func (c *Config) GetSeverityForUpdate(updateType string) string {
	switch updateType {
	case "major":
		return c.Severity.Major
	case "minor":
		return c.Severity.Minor
	case "patch":
		return c.Severity.Patch
	case "none":
		return "ok"
	default:
		return "unknown"
	}
}
