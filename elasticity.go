package regression

// calcElasticities evaluates the elasticity of each feature at the sample means.
// For a logged target the coefficient is already a relative effect.
func calcElasticities(res *Result, features []Feature, logTarget bool) map[string]float64 {
	elasticities := make(map[string]float64, len(features))
	for _, f := range features {
		coeff := res.Coefficients[f.Name]
		if logTarget {
			elasticities[f.Name] = coeff
			continue
		}
		elasticities[f.Name] = coeff * (res.MeansOfFeatures[f.Name] / res.MeanOfTarget)
	}
	return elasticities
}
