package regression

import (
	"github.com/obrafacil/regression/logger"
)

// ZeroVarianceFeatures returns the names of features whose observed values are all the same.
// Such features make XᵗX singular.
func ZeroVarianceFeatures(data ModelData) []string {
	var names []string
	for _, f := range data.Features {
		if len(f.Values) == 0 {
			continue
		}
		if isConstant(f.Values) {
			names = append(names, f.Name)
		}
	}
	return names
}

// ValidateFeatures returns the names of features that cannot be estimated after the configured transforms.
func (r *Regression) ValidateFeatures() ([]string, error) {
	transformed, err := ApplyTransforms(r.Data(), r.transforms)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range ZeroVarianceFeatures(transformed) {
		if _, ok := r.disregardingFeatures[name]; ok {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// BackwardElimination : 変数減少法で解析する
//
// The feature with the largest p-value above p is removed and the model is
// refitted until every remaining feature is significant or one is left.
// Features named in forced are always kept. Every intermediate model is returned.
func (r *Regression) BackwardElimination(p float64, forced map[string]struct{}, opts ...Option) ([]*Result, error) {
	originalDisregarding := make(map[string]struct{}, len(r.disregardingFeatures))
	for k, v := range r.disregardingFeatures {
		originalDisregarding[k] = v
	}
	defer func() {
		r.disregardingFeatures = originalDisregarding
	}()

	var models []*Result
	for {
		model, err := r.Run(opts...)
		if err != nil {
			return models, err
		}
		models = append(models, model)
		if model.NumOfFeatures <= 1 {
			break
		}
		eliminationTarget, border := "", p
		for _, name := range model.FeatureNames {
			// 強制投入する変数は除かない
			if _, ok := forced[name]; ok {
				continue
			}
			if prob := model.PValues[name]; prob > border {
				eliminationTarget = name
				border = prob
			}
		}
		if eliminationTarget == "" {
			break
		}
		logger.Info.Printf("Eliminate %s having p-value = %f", eliminationTarget, border)
		r.Disregard(eliminationTarget)
	}
	return models, nil
}

// BackwardElimination runs backward elimination on data with the given transforms.
func BackwardElimination(data ModelData, cfg TransformConfig, p float64, forced []string, opts ...Option) ([]*Result, error) {
	r := NewRegression()
	r.target = data.Target
	r.features = data.Features
	r.observations = data.Observations
	r.SetTransforms(cfg)

	forcedSet := make(map[string]struct{}, len(forced))
	for _, name := range forced {
		forcedSet[name] = struct{}{}
	}
	return r.BackwardElimination(p, forcedSet, opts...)
}
