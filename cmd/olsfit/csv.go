package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/obrafacil/regression"
	"github.com/obrafacil/regression/config"
	"github.com/obrafacil/regression/logger"
)

// table is a parsed CSV file.
type table struct {
	header []string
	rows   [][]string
}

func readTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}

	t := &table{header: records[0], rows: records[1:]}
	for i, h := range t.header {
		t.header[i] = strings.TrimSpace(h)
	}
	return t, nil
}

func readTableFile(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data: %w", err)
	}
	defer f.Close()
	return readTable(f)
}

func (t *table) column(name string) (int, bool) {
	for i, h := range t.header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

func (t *table) floats(name string) ([]float64, error) {
	idx, ok := t.column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	values := make([]float64, len(t.rows))
	for i, row := range t.rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		if err != nil {
			return nil, fmt.Errorf("column %q, row %d: %w", name, i+2, err)
		}
		values[i] = v
	}
	return values, nil
}

// numericColumns returns the columns whose every value parses as a number,
// in header order, leaving out the excluded names.
func (t *table) numericColumns(exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	var names []string
	for _, name := range t.header {
		if _, ok := skip[name]; ok {
			continue
		}
		if _, err := t.floats(name); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// modelData builds the estimation input described by cfg.
// Every column is kept in the raw observations for dummy expansion.
func (t *table) modelData(cfg *config.Config) (regression.ModelData, error) {
	target, err := t.floats(cfg.Target)
	if err != nil {
		return regression.ModelData{}, fmt.Errorf("target: %w", err)
	}

	data := regression.ModelData{Target: target}
	for _, name := range cfg.Features {
		values, err := t.floats(name)
		if err != nil {
			return regression.ModelData{}, fmt.Errorf("feature: %w", err)
		}
		data.Features = append(data.Features, regression.Feature{Name: name, Values: values})
	}

	if len(cfg.Transforms.DummyFeatures) > 0 {
		for _, field := range cfg.Transforms.DummyFeatures {
			if _, ok := t.column(field); !ok {
				return regression.ModelData{}, fmt.Errorf("dummy feature: column %q not found", field)
			}
		}
		data.Observations = make([]regression.Observation, len(t.rows))
		for i, row := range t.rows {
			obs := make(regression.Observation, len(t.header))
			for j, h := range t.header {
				obs[h] = strings.TrimSpace(row[j])
			}
			data.Observations[i] = obs
		}
	}
	return data, nil
}

// loadModel reads the config and the data and returns the validated model definition.
// Numeric columns are used as features when the config names none.
func loadModel(cfgPath, csvPath string) (*config.Config, regression.ModelData, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, regression.ModelData{}, err
	}
	if csvPath == "" {
		return nil, regression.ModelData{}, fmt.Errorf("no data file given (use --data)")
	}
	t, err := readTableFile(csvPath)
	if err != nil {
		return nil, regression.ModelData{}, err
	}

	if len(cfg.Features) == 0 {
		exclude := append([]string{cfg.Target}, cfg.Transforms.DummyFeatures...)
		cfg.Features = t.numericColumns(exclude...)
		logger.Debug.With("Detected numeric features", "features", cfg.Features)
	}
	if err := cfg.Validate(); err != nil {
		return nil, regression.ModelData{}, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	data, err := t.modelData(cfg)
	if err != nil {
		return nil, regression.ModelData{}, err
	}
	return cfg, data, nil
}
