package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrafacil/regression"
)

const sampleYAML = `
project_id: obra-42
target: price
features: [area, age]
transforms:
  log_target: true
  log_features: [area]
  dummy_features: [district]
confidence_level: 0.9
database:
  path: /tmp/runs.db
stepwise:
  enabled: true
  p_value: 0.1
  forced: [area]
predict:
  features:
    area: 120
    age: 5
  categories:
    district: Norte
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("OLSFIT_DB_PATH", "")
	t.Setenv("OLSFIT_PROJECT_ID", "")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "obra-42", cfg.ProjectID)
	assert.Equal(t, "price", cfg.Target)
	assert.Equal(t, []string{"area", "age"}, cfg.Features)
	assert.True(t, cfg.Transforms.LogTarget)
	assert.Equal(t, []string{"area"}, cfg.Transforms.LogFeatures)
	assert.Equal(t, []string{"district"}, cfg.Transforms.DummyFeatures)
	assert.Equal(t, 0.9, cfg.ConfidenceLevel)
	assert.Equal(t, "/tmp/runs.db", cfg.Database.Path)
	assert.True(t, cfg.Stepwise.Enabled)
	assert.Equal(t, 0.1, cfg.Stepwise.PValue)
	assert.Equal(t, []string{"area"}, cfg.Stepwise.Forced)
	assert.Equal(t, map[string]float64{"area": 120, "age": 5}, cfg.Predict.Features)
	assert.Equal(t, regression.Observation{"district": "Norte"}, cfg.Predict.Observation())
}

func TestLoadKeepsDefaults(t *testing.T) {
	t.Setenv("OLSFIT_DB_PATH", "")
	t.Setenv("OLSFIT_PROJECT_ID", "")

	cfg, err := Load(writeConfig(t, "target: price\nfeatures: [area]\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	def := DefaultConfig()
	assert.Equal(t, def.ProjectID, cfg.ProjectID)
	assert.Equal(t, regression.DefaultConfidenceLevel, cfg.ConfidenceLevel)
	assert.Equal(t, def.Database.Path, cfg.Database.Path)
	assert.Equal(t, 0.05, cfg.Stepwise.PValue)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "features: [area\n"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OLSFIT_DB_PATH", "/var/lib/olsfit.db")
	t.Setenv("OLSFIT_PROJECT_ID", "from-env")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/olsfit.db", cfg.Database.Path)
	assert.Equal(t, "from-env", cfg.ProjectID)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Target = "price"
		cfg.Features = []string{"area", "age"}
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no target", func(c *Config) { c.Target = "" }},
		{"target as feature", func(c *Config) { c.Features = append(c.Features, "price") }},
		{"duplicate feature", func(c *Config) { c.Features = append(c.Features, "area") }},
		{"no features", func(c *Config) { c.Features = nil }},
		{"unknown log feature", func(c *Config) { c.Transforms.LogFeatures = []string{"rooms"} }},
		{"dummy also numeric", func(c *Config) { c.Transforms.DummyFeatures = []string{"age"} }},
		{"confidence level", func(c *Config) { c.ConfidenceLevel = 1 }},
		{"negative log floor", func(c *Config) { c.Transforms.LogFloor = -1 }},
		{"stepwise p-value", func(c *Config) { c.Stepwise.Enabled = true; c.Stepwise.PValue = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("OLSFIT_DB_PATH", "")
	t.Setenv("OLSFIT_PROJECT_ID", "")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "model.yaml")
	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.Options(), 1)

	cfg.Permissive = true
	cfg.Transforms.LogFloor = 0.5
	assert.Len(t, cfg.Options(), 3)
}
