package regression

import "fmt"

// Regression is the exposed data structure for building a model step by step.
type Regression struct {
	targetLabel          *string             // 目的変数の名称
	target               []float64           // 目的変数の観測値
	features             []Feature           // 説明変数
	observations         []Observation       // カテゴリ変数を含む観測値
	transforms           TransformConfig     // 変換の設定
	disregardingFeatures map[string]struct{} // 分析に使わない説明変数（変換後の名称）のセット
}

// NewRegression initializes the structure and returns it for interacting with regression APIs.
func NewRegression() *Regression {
	return &Regression{
		disregardingFeatures: map[string]struct{}{},
	}
}

// SetTargetLabel sets the label of the target variable.
func (r *Regression) SetTargetLabel(label string) {
	r.targetLabel = &label
}

// GetTargetLabel gets the label of the target variable.
func (r *Regression) GetTargetLabel() string {
	if r.targetLabel == nil {
		return "Y"
	}
	return *r.targetLabel
}

// SetTarget sets the observed values of the target variable.
func (r *Regression) SetTarget(values []float64) {
	r.target = append([]float64(nil), values...)
}

// AddFeature appends a feature. Its length must match the target.
func (r *Regression) AddFeature(name string, values []float64) error {
	if len(values) != len(r.target) {
		return fmt.Errorf("feature %q has %d values, target has %d: %w", name, len(values), len(r.target), ErrShapeMismatch)
	}
	if name == InterceptLabel {
		return fmt.Errorf("feature name %q is reserved for the intercept: %w", name, ErrInvalidArgument)
	}
	if indexOfFeature(r.features, name) >= 0 {
		return fmt.Errorf("duplicate feature %q: %w", name, ErrInvalidArgument)
	}
	r.features = append(r.features, Feature{Name: name, Values: append([]float64(nil), values...)})
	return nil
}

// SetObservations sets the raw records used for dummy expansion.
func (r *Regression) SetObservations(observations []Observation) {
	r.observations = observations
}

// SetTransforms sets the transforms applied before every run.
func (r *Regression) SetTransforms(cfg TransformConfig) {
	r.transforms = cfg
}

// Disregard excludes the named feature from the following runs.
// Dummy variables are disregarded by their expanded name, e.g. "region_B".
func (r *Regression) Disregard(name string) {
	r.disregardingFeatures[name] = struct{}{}
}

// ResetDisregarding : 無視する説明変数の設定をリセットする
func (r *Regression) ResetDisregarding() {
	r.disregardingFeatures = map[string]struct{}{}
}

// Data returns the raw data held by the builder.
func (r *Regression) Data() ModelData {
	return ModelData{Target: r.target, Features: r.features, Observations: r.observations}
}

// Run calculates a model with the configured transforms, leaving out disregarded features.
func (r *Regression) Run(opts ...Option) (*Result, error) {
	return run(r.Data(), r.transforms, r.disregardingFeatures, r.GetTargetLabel(), opts)
}
