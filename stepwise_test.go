package regression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// irrelevantFeatureData has y = 1 + 2*x1 with a second feature x2 that carries no signal:
// for every x1 the four observations cover x2 ∈ {0, 1} with noise ±s each.
func irrelevantFeatureData() ModelData {
	data := ModelData{Features: []Feature{{Name: "x1"}, {Name: "x2"}}}
	for i := 0; i < 6; i++ {
		x1 := float64(i)
		for _, x2 := range []float64{0, 1} {
			for _, e := range []float64{0.3, -0.3} {
				data.Target = append(data.Target, 1+2*x1+e)
				data.Features[0].Values = append(data.Features[0].Values, x1)
				data.Features[1].Values = append(data.Features[1].Values, x2)
			}
		}
	}
	return data
}

func TestBackwardElimination(t *testing.T) {
	models, err := BackwardElimination(irrelevantFeatureData(), TransformConfig{}, 0.05, nil)
	require.NoError(t, err)
	require.Len(t, models, 2)

	assert.Equal(t, []string{"x1", "x2"}, models[0].FeatureNames)
	assert.InDelta(t, 1, models[0].PValues["x2"], 1e-9)
	assert.Equal(t, []string{"x1"}, models[1].FeatureNames)
	assert.InDelta(t, 2, models[1].Coefficients["x1"], 1e-9)
}

func TestBackwardEliminationKeepsForcedFeatures(t *testing.T) {
	models, err := BackwardElimination(irrelevantFeatureData(), TransformConfig{}, 0.05, []string{"x2"})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, []string{"x1", "x2"}, models[0].FeatureNames)
}

func TestBackwardEliminationRestoresDisregarding(t *testing.T) {
	data := irrelevantFeatureData()
	r := NewRegression()
	r.SetTarget(data.Target)
	require.NoError(t, r.AddFeature("x1", data.Features[0].Values))
	require.NoError(t, r.AddFeature("x2", data.Features[1].Values))

	_, err := r.BackwardElimination(0.05, nil)
	require.NoError(t, err)

	res, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, res.NumOfFeatures)
}

func TestZeroVarianceFeatures(t *testing.T) {
	data := ModelData{
		Target: []float64{1, 2, 3},
		Features: []Feature{
			{Name: "a", Values: []float64{1, 2, 3}},
			{Name: "b", Values: []float64{4, 4, 4}},
		},
	}
	assert.Equal(t, []string{"b"}, ZeroVarianceFeatures(data))

	r := NewRegression()
	r.SetTarget(data.Target)
	require.NoError(t, r.AddFeature("a", data.Features[0].Values))
	require.NoError(t, r.AddFeature("b", data.Features[1].Values))
	names, err := r.ValidateFeatures()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)

	r.Disregard("b")
	names, err = r.ValidateFeatures()
	require.NoError(t, err)
	assert.Empty(t, names)
}
