// Package config loads the coordinator's ambient settings file: the
// non-experiment knobs (log level, pretty-print width, results directory,
// pricing table path) that apply regardless of which experiments are
// loaded. Experiment definitions themselves stay JSON (§6); this is the
// YAML sibling for process-level configuration, adapted from this
// codebase's own Load/validate/default-fill config shape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel    string `yaml:"log_level"`
	PrettyWidth int    `yaml:"pretty_width"`
	ResultsDir  string `yaml:"results_dir"`
	PricingPath string `yaml:"pricing_path"`
}

func Default() *Config {
	return &Config{
		LogLevel:    "info",
		PrettyWidth: 100,
		ResultsDir:  "results",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	case "":
		cfg.LogLevel = "info"
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	if cfg.PrettyWidth <= 0 {
		cfg.PrettyWidth = 100
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "results"
	}
	return nil
}
