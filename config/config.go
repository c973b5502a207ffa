// Package config loads olsfit model definitions from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/obrafacil/regression"
)

// Config holds a model definition and how to run it.
type Config struct {
	// Project the runs and valuations are stored under
	ProjectID string `yaml:"project_id"`

	// Model definition
	Target     string                     `yaml:"target"`
	Features   []string                   `yaml:"features"`
	Transforms regression.TransformConfig `yaml:"transforms"`

	// Estimation
	Permissive      bool    `yaml:"permissive"`
	ConfidenceLevel float64 `yaml:"confidence_level"`

	Database DatabaseConfig `yaml:"database"`
	Stepwise StepwiseConfig `yaml:"stepwise"`
	Predict  PredictConfig  `yaml:"predict"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StepwiseConfig configures backward elimination.
type StepwiseConfig struct {
	Enabled bool     `yaml:"enabled"`
	PValue  float64  `yaml:"p_value"`
	Forced  []string `yaml:"forced"` // features never eliminated
}

// PredictConfig is a raw observation to value with the fitted model.
type PredictConfig struct {
	Features   map[string]float64 `yaml:"features"`   // numeric inputs by original name
	Categories map[string]string  `yaml:"categories"` // dummy field values
}

// Observation returns the categories as a raw observation.
func (p PredictConfig) Observation() regression.Observation {
	obs := make(regression.Observation, len(p.Categories))
	for k, v := range p.Categories {
		obs[k] = v
	}
	return obs
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ProjectID:       "default",
		ConfidenceLevel: regression.DefaultConfidenceLevel,
		Database: DatabaseConfig{
			Path: "olsfit.db",
		},
		Stepwise: StepwiseConfig{
			PValue: 0.05,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("OLSFIT_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if id := os.Getenv("OLSFIT_PROJECT_ID"); id != "" {
		c.ProjectID = id
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target column not configured")
	}
	if !(c.ConfidenceLevel > 0 && c.ConfidenceLevel < 1) {
		return fmt.Errorf("confidence_level must be in (0, 1), got %v", c.ConfidenceLevel)
	}
	if c.Transforms.LogFloor < 0 {
		return fmt.Errorf("transforms.log_floor must not be negative, got %v", c.Transforms.LogFloor)
	}

	seen := make(map[string]struct{}, len(c.Features)+len(c.Transforms.DummyFeatures))
	for _, f := range c.Features {
		if f == c.Target {
			return fmt.Errorf("target %q is also listed as a feature", f)
		}
		if _, ok := seen[f]; ok {
			return fmt.Errorf("duplicate feature %q", f)
		}
		seen[f] = struct{}{}
	}
	for _, f := range c.Transforms.LogFeatures {
		if _, ok := seen[f]; !ok {
			return fmt.Errorf("log feature %q is not a configured feature", f)
		}
	}
	for _, f := range c.Transforms.DummyFeatures {
		if _, ok := seen[f]; ok {
			return fmt.Errorf("dummy feature %q is also a numeric feature", f)
		}
	}
	if len(c.Features)+len(c.Transforms.DummyFeatures) == 0 {
		return fmt.Errorf("no features configured")
	}

	if c.Stepwise.Enabled && !(c.Stepwise.PValue > 0 && c.Stepwise.PValue < 1) {
		return fmt.Errorf("stepwise.p_value must be in (0, 1), got %v", c.Stepwise.PValue)
	}
	return nil
}

// Options returns the estimation options of the configuration.
func (c *Config) Options() []regression.Option {
	opts := []regression.Option{regression.WithConfidenceLevel(c.ConfidenceLevel)}
	if c.Permissive {
		opts = append(opts, regression.WithPermissive())
	}
	if c.Transforms.LogFloor > 0 {
		opts = append(opts, regression.WithLogFloor(c.Transforms.LogFloor))
	}
	return opts
}
