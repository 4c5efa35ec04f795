// Package config holds the run configuration: input layout (tree and column
// names), binning, and plot output settings. Values are layered from
// defaults, an optional YAML file, and ROCPLOT_* environment variables.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	yamlv3 "gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix of the environment variables read by Load.
	EnvPrefix = "ROCPLOT_"
	// EnvConfigFile names the variable holding a config file path.
	EnvConfigFile = EnvPrefix + "CONFIG"

	ErrorsNone     = "none"
	ErrorsBinomial = "binomial"

	dirMode  = 0700
	fileMode = 0600
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Columns names the four branches read from each input tree.
type Columns struct {
	Signal          string `koanf:"signal" yaml:"signal"`
	SignalScore     string `koanf:"signal_score" yaml:"signal_score"`
	Background      string `koanf:"background" yaml:"background"`
	BackgroundScore string `koanf:"background_score" yaml:"background_score"`
}

// Names returns the column names in row order.
func (c Columns) Names() []string {
	return []string{c.Signal, c.SignalScore, c.Background, c.BackgroundScore}
}

// Config represents the run configuration.
type Config struct {
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	Tree    string  `koanf:"tree" yaml:"tree"`
	Columns Columns `koanf:"columns" yaml:"columns"`

	// Bins is the number of equal-width score bins over [Min, Max].
	Bins int     `koanf:"bins" yaml:"bins"`
	Min  float64 `koanf:"min" yaml:"min"`
	Max  float64 `koanf:"max" yaml:"max"`

	// Errors selects the efficiency error bars: none or binomial.
	Errors string `koanf:"errors" yaml:"errors"`

	OutputDir string   `koanf:"output_dir" yaml:"output_dir"`
	Formats   []string `koanf:"formats" yaml:"formats"`
	LogY      bool     `koanf:"log_y" yaml:"log_y"`

	// FloorY is the lower y limit of the log-scaled score plot.
	FloorY float64 `koanf:"floor_y" yaml:"floor_y"`

	// Width and Height are the canvas size in inches.
	Width  float64 `koanf:"width" yaml:"width"`
	Height float64 `koanf:"height" yaml:"height"`
}

// New returns a Config with the default analysis settings.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Tree:     "tree",
		Columns: Columns{
			Signal:          "is_signal_new",
			SignalScore:     "score_is_signal_new",
			Background:      "is_bkg",
			BackgroundScore: "score_is_bkg",
		},
		Bins:      100,
		Min:       0,
		Max:       1,
		Errors:    ErrorsNone,
		OutputDir: "plots",
		Formats:   []string{"pdf"},
		FloorY:    1e-4,
		Width:     6,
		Height:    4,
	}
}

// Load builds a Config by layering, low to high:
//  1. defaults (New)
//  2. YAML file at path, or at $ROCPLOT_CONFIG when path is empty
//  3. env (prefix ROCPLOT_, "__" separates nested keys)
func Load(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(ErrLoadConfig, "%s: %v", path, err)
		}
	}

	// ROCPLOT_COLUMNS__SIGNAL_SCORE -> columns.signal_score
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrapf(ErrLoadConfig, "env: %v", err)
	}
	// the file path itself is not a config key
	k.Delete("config")

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrapf(ErrLoadConfig, "unmarshal: %v", err)
	}
	cfg.Formats = splitList(cfg.Formats)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.Wrap(ErrInvalidConfig, "config required")
	}
	if c.Tree == "" {
		return errors.Wrap(ErrInvalidConfig, "tree name must not be empty")
	}
	for _, n := range c.Columns.Names() {
		if n == "" {
			return errors.Wrap(ErrInvalidConfig, "column names must not be empty")
		}
	}
	if c.Bins < 1 {
		return errors.Wrapf(ErrInvalidConfig, "bins must be positive: %d", c.Bins)
	}
	if c.Min >= c.Max {
		return errors.Wrapf(ErrInvalidConfig, "min (%g) must be lower than max (%g)", c.Min, c.Max)
	}
	if c.Errors != ErrorsNone && c.Errors != ErrorsBinomial {
		return errors.Wrapf(ErrInvalidConfig, "unknown error policy: %q", c.Errors)
	}
	if c.OutputDir == "" {
		return errors.Wrap(ErrInvalidConfig, "output directory must not be empty")
	}
	if len(c.Formats) == 0 {
		return errors.Wrap(ErrInvalidConfig, "at least one output format required")
	}
	if c.FloorY <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "floor_y must be positive: %g", c.FloorY)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "canvas size must be positive: %gx%g", c.Width, c.Height)
	}
	return nil
}

// Save writes the config as YAML to path, creating the parent dir if needed.
func Save(path string, c *Config) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yamlv3.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return errors.Wrapf(err, "failed to create dir for: %s", path)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", path)
	}
	return nil
}

// splitList expands comma-separated entries, which is how list values
// arrive from the environment.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
