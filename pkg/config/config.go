// Package config loads agriquery settings from defaults, an optional YAML
// file, AGRIQUERY_* environment variables and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	DefaultCropsSource    = "data/crop_production.csv"
	DefaultRainfallSource = "data/rainfall.csv"
	DefaultAddr           = ":8430"
	DefaultSourcesDB      = ".agriquery/sources.db"
	DefaultLogLevel       = "info"
	DefaultFetchTimeout   = 2 * time.Minute
	DefaultFetchAttempts  = 3
	DefaultCheckInterval  = 6 * time.Hour

	envPrefix = "AGRIQUERY_"
)

// Config is the merged configuration.
type Config struct {
	CropsSource    string        `koanf:"crops_source"`
	RainfallSource string        `koanf:"rainfall_source"`
	Encoding       string        `koanf:"encoding"`
	RegionsFile    string        `koanf:"regions_file"`
	Addr           string        `koanf:"addr"`
	SourcesDB      string        `koanf:"sources_db"` // empty disables the source table
	LogLevel       string        `koanf:"log_level"`
	FetchTimeout   time.Duration `koanf:"fetch_timeout"`
	FetchAttempts  int           `koanf:"fetch_attempts"`
	CheckInterval  time.Duration `koanf:"check_interval"`
}

// flagKeys maps CLI flag names that differ from their config key.
var flagKeys = map[string]string{
	"crops":    "crops_source",
	"rainfall": "rainfall_source",
	"db":       "sources_db",
	"regions":  "regions_file",
}

// findConfigFile returns explicit, or the first agriquery.y(a)ml in the
// working directory, or "".
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"agriquery.yaml", "agriquery.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load merges configuration sources.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"crops_source":    DefaultCropsSource,
		"rainfall_source": DefaultRainfallSource,
		"encoding":        "",
		"regions_file":    "",
		"addr":            DefaultAddr,
		"sources_db":      DefaultSourcesDB,
		"log_level":       DefaultLogLevel,
		"fetch_timeout":   DefaultFetchTimeout.String(),
		"fetch_attempts":  DefaultFetchAttempts,
		"check_interval":  DefaultCheckInterval.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment: AGRIQUERY_CROPS_SOURCE -> crops_source
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CropsSource) == "" {
		return fmt.Errorf("crops_source is required")
	}
	if strings.TrimSpace(c.RainfallSource) == "" {
		return fmt.Errorf("rainfall_source is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.FetchAttempts < 1 {
		return fmt.Errorf("fetch_attempts must be at least 1, got %d", c.FetchAttempts)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must not be negative")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive")
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	return lvl, nil
}
