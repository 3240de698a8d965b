// Package config resolves benchmark run settings from defaults, an optional
// config file, QRBENCH_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// QRBENCH_ITERATIONS.
const EnvPrefix = "QRBENCH"

// Output formats for the stdout summary.
const (
	FormatMarkdown = "markdown"
	FormatTable    = "table"
	FormatJSON     = "json"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting of a benchmark run.
type Config struct {
	Libs               []string      `mapstructure:"libs"`
	Categories         []string      `mapstructure:"categories"`
	Iterations         int           `mapstructure:"iterations"`
	Warmup             int           `mapstructure:"warmup"`
	Timeout            time.Duration `mapstructure:"timeout"`
	CornerTolerance    float64       `mapstructure:"corner_tolerance"`
	Output             string        `mapstructure:"output"`
	Data               []string      `mapstructure:"data"`
	Summary            string        `mapstructure:"summary"`
	Format             string        `mapstructure:"format"`
	Charts             string        `mapstructure:"charts"`
	LogLevel           string        `mapstructure:"log_level"`
	RequireGroundTruth bool          `mapstructure:"require_ground_truth"`
	LimitPerCategory   int           `mapstructure:"limit_per_category"`
	Concurrency        int           `mapstructure:"concurrency"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Iterations:      5,
		CornerTolerance: 50,
		Output:          "raw_measurements.csv",
		Data:            []string{"./data"},
		Format:          FormatMarkdown,
		LogLevel:        "info",
		Concurrency:     8,
	}
}

// Load builds a Config. Precedence, highest first: flags explicitly set in
// flags, environment, the file at path (if non-empty), defaults. Flag names
// map to keys by replacing '-' with '_'.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := Default()
	known := map[string]any{
		"libs":                 defaults.Libs,
		"categories":           defaults.Categories,
		"iterations":           defaults.Iterations,
		"warmup":               defaults.Warmup,
		"timeout":              defaults.Timeout,
		"corner_tolerance":     defaults.CornerTolerance,
		"output":               defaults.Output,
		"data":                 defaults.Data,
		"summary":              defaults.Summary,
		"format":               defaults.Format,
		"charts":               defaults.Charts,
		"log_level":            defaults.LogLevel,
		"require_ground_truth": defaults.RequireGroundTruth,
		"limit_per_category":   defaults.LimitPerCategory,
		"concurrency":          defaults.Concurrency,
	}

	for key, value := range known {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error

		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := known[key]; !ok {
				return
			}

			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})

		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Validate reports the first setting that cannot be used for a run.
func (c *Config) Validate() error {
	switch {
	case c.Iterations < 1:
		return fmt.Errorf("%w: iterations must be at least 1, got %d",
			ErrInvalid, c.Iterations)
	case c.Warmup < 0:
		return fmt.Errorf("%w: warmup must not be negative, got %d",
			ErrInvalid, c.Warmup)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative, got %s",
			ErrInvalid, c.Timeout)
	case c.CornerTolerance < 0:
		return fmt.Errorf("%w: corner tolerance must not be negative, got %g",
			ErrInvalid, c.CornerTolerance)
	case c.LimitPerCategory < 0:
		return fmt.Errorf("%w: limit per category must not be negative, got %d",
			ErrInvalid, c.LimitPerCategory)
	case c.Output == "":
		return fmt.Errorf("%w: output path must not be empty", ErrInvalid)
	case len(c.Data) == 0:
		return fmt.Errorf("%w: at least one data root is required", ErrInvalid)
	}

	if err := ValidateFormat(c.Format); err != nil {
		return err
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel)
	}

	return nil
}

// ValidateFormat rejects summary formats other than markdown, table and
// json.
func ValidateFormat(format string) error {
	switch format {
	case FormatMarkdown, FormatTable, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q (want %s, %s or %s)",
			ErrInvalid, format, FormatMarkdown, FormatTable, FormatJSON)
	}
}
