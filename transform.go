package regression

import (
	"fmt"
	"math"
)

// Feature is a named explanatory variable with one value per observation.
type Feature struct {
	Name   string
	Values []float64
}

// Observation is a raw record of a single observation, keyed by field name.
// It is only consulted when expanding categorical fields into dummy variables.
type Observation map[string]interface{}

// ModelData is the input of an estimation.
// The order of Features fixes the column order of the design matrix and of every result.
type ModelData struct {
	Target       []float64
	Features     []Feature
	Observations []Observation
}

// NumOfObservations returns the length of the target vector.
func (d ModelData) NumOfObservations() int {
	return len(d.Target)
}

// FeatureNames returns the feature names in column order.
func (d ModelData) FeatureNames() []string {
	names := make([]string, len(d.Features))
	for i, f := range d.Features {
		names[i] = f.Name
	}
	return names
}

// Feature returns the values of the named feature.
func (d ModelData) Feature(name string) ([]float64, bool) {
	for _, f := range d.Features {
		if f.Name == name {
			return f.Values, true
		}
	}
	return nil, false
}

// Validate checks that every vector has the same length as the target and
// that feature names are unique and distinct from InterceptLabel.
func (d ModelData) Validate() error {
	n := len(d.Target)
	seen := make(map[string]struct{}, len(d.Features))
	for _, f := range d.Features {
		if f.Name == "" {
			return fmt.Errorf("feature without a name: %w", ErrInvalidArgument)
		}
		if f.Name == InterceptLabel {
			return fmt.Errorf("feature name %q is reserved for the intercept: %w", f.Name, ErrInvalidArgument)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("duplicate feature %q: %w", f.Name, ErrInvalidArgument)
		}
		seen[f.Name] = struct{}{}
		if len(f.Values) != n {
			return fmt.Errorf("feature %q has %d values, target has %d: %w", f.Name, len(f.Values), n, ErrShapeMismatch)
		}
	}
	if len(d.Observations) != 0 && len(d.Observations) != n {
		return fmt.Errorf("%d observations, target has %d values: %w", len(d.Observations), n, ErrShapeMismatch)
	}
	return nil
}

// TransformConfig declares how raw ModelData is transformed before estimation.
// Applying it to already transformed data transforms it again.
type TransformConfig struct {
	LogTarget     bool     `yaml:"log_target" json:"logTarget"`
	LogFeatures   []string `yaml:"log_features" json:"logFeatures"`
	DummyFeatures []string `yaml:"dummy_features" json:"dummyFeatures"`
	// LogFloor is the clamp applied before every logarithm. Zero means DefaultLogFloor.
	LogFloor float64 `yaml:"log_floor,omitempty" json:"logFloor,omitempty"`
}

func (c TransformConfig) floor(fallback float64) float64 {
	if c.LogFloor > 0 {
		return c.LogFloor
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultLogFloor
}

// ApplyTransforms returns a transformed copy of data. The input is never modified.
//
// Logs are applied first (target, then each listed feature), then each
// categorical field is replaced by 0/1 indicators for every category except
// the first one seen, named "{field}_{category}" and appended to the features.
func ApplyTransforms(data ModelData, cfg TransformConfig) (ModelData, error) {
	return applyTransforms(data, cfg, DefaultLogFloor)
}

func applyTransforms(data ModelData, cfg TransformConfig, fallbackFloor float64) (ModelData, error) {
	if err := data.Validate(); err != nil {
		return ModelData{}, err
	}
	floor := cfg.floor(fallbackFloor)

	out := ModelData{
		Target:       data.Target,
		Features:     make([]Feature, len(data.Features)),
		Observations: data.Observations,
	}
	copy(out.Features, data.Features)

	if cfg.LogTarget {
		out.Target = clampedLog(data.Target, floor)
	}

	for _, name := range cfg.LogFeatures {
		idx := indexOfFeature(out.Features, name)
		if idx < 0 {
			return ModelData{}, fmt.Errorf("log transform of unknown feature %q: %w", name, ErrInvalidArgument)
		}
		out.Features[idx] = Feature{Name: name, Values: clampedLog(out.Features[idx].Values, floor)}
	}

	for _, field := range cfg.DummyFeatures {
		dummies, err := expandDummies(data.Observations, field, len(data.Target))
		if err != nil {
			return ModelData{}, err
		}
		if idx := indexOfFeature(out.Features, field); idx >= 0 {
			out.Features = append(out.Features[:idx:idx], out.Features[idx+1:]...)
		}
		out.Features = append(out.Features, dummies...)
	}

	if err := out.Validate(); err != nil {
		return ModelData{}, err
	}
	return out, nil
}

func clampedLog(values []float64, floor float64) []float64 {
	logged := make([]float64, len(values))
	for i, v := range values {
		logged[i] = math.Log(math.Max(v, floor))
	}
	return logged
}

func indexOfFeature(features []Feature, name string) int {
	for i, f := range features {
		if f.Name == name {
			return i
		}
	}
	return -1
}

type category struct {
	key   string
	label string
}

// categoryOf normalizes numeric kinds so that 1 and 1.0 fall into the same category.
func categoryOf(v interface{}) category {
	switch n := v.(type) {
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case float32:
		v = float64(n)
	}
	return category{key: fmt.Sprintf("%T|%v", v, v), label: fmt.Sprint(v)}
}

func expandDummies(observations []Observation, field string, n int) ([]Feature, error) {
	if len(observations) != n {
		return nil, fmt.Errorf("dummy expansion of %q needs %d observations, got %d: %w", field, n, len(observations), ErrShapeMismatch)
	}

	// 出現順にカテゴリを収集する
	var categories []category
	indexes := map[string]int{}
	members := make([]int, n)
	for i, obs := range observations {
		v, ok := obs[field]
		if !ok {
			return nil, fmt.Errorf("observation %d has no field %q: %w", i, field, ErrInvalidArgument)
		}
		c := categoryOf(v)
		idx, ok := indexes[c.key]
		if !ok {
			idx = len(categories)
			indexes[c.key] = idx
			categories = append(categories, c)
		}
		members[i] = idx
	}

	// 最初のカテゴリを基準として落とす
	dummies := make([]Feature, 0, len(categories))
	for idx := 1; idx < len(categories); idx++ {
		values := make([]float64, n)
		for i, m := range members {
			if m == idx {
				values[i] = 1
			}
		}
		dummies = append(dummies, Feature{Name: field + "_" + categories[idx].label, Values: values})
	}
	return dummies, nil
}
