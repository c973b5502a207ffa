package regression

import (
	"github.com/obrafacil/regression/logger"
)

// calcVIFs returns 1/(1-R²) of each feature regressed on all the others.
// A model with fewer than two features, or an auxiliary regression that
// fails, yields a VIF of 1.
func calcVIFs(features []Feature, o *options) map[string]float64 {
	vifs := make(map[string]float64, len(features))
	if len(features) < 2 {
		for _, f := range features {
			vifs[f.Name] = 1
		}
		return vifs
	}

	auxOpts := *o
	for idx, f := range features {
		others := make([]Feature, 0, len(features)-1)
		others = append(others, features[:idx]...)
		others = append(others, features[idx+1:]...)

		aux, err := estimate(ModelData{Target: f.Values, Features: others}, &auxOpts, false)
		if err != nil {
			logger.Warn.Printf("Cannot estimate VIF of %s, falling back to 1: %v", f.Name, err)
			vifs[f.Name] = 1
			continue
		}
		// 許容度 TOL = 1 - R²
		vifs[f.Name] = 1 / (1 - aux.RSquared)
	}
	return vifs
}
