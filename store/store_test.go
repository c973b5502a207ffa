package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrafacil/regression"
)

func newTestStore(t *testing.T) *DBService {
	t.Helper()
	s, err := NewDBService(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// 単調増加する時刻で作成順を決定的にする
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func fitResult(t *testing.T) *regression.Result {
	t.Helper()
	data := regression.ModelData{
		Target: []float64{10.5, 13.5, 17.5, 19.5, 24.5, 25.5},
		Features: []regression.Feature{
			{Name: "area", Values: []float64{1, 2, 3, 4, 5, 6}},
		},
	}
	res, err := regression.RunOLS(data, regression.TransformConfig{LogFeatures: []string{"area"}})
	require.NoError(t, err)
	return res
}

func TestSaveAndGetModelRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res := fitResult(t)

	run := NewModelRun("project-1", "price", res, []string{"charts/residuals.png"})
	runID, err := s.SaveModelRun(ctx, run)
	require.NoError(t, err)
	_, err = uuid.Parse(runID)
	require.NoError(t, err)

	got, err := s.GetModelRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, runID, got.RunID)
	assert.Equal(t, "project-1", got.ProjectID)
	assert.Equal(t, "price", got.TargetColumn)
	assert.Equal(t, []string{"area"}, got.FeatureNames)
	assert.Equal(t, []string{"area"}, got.Transforms.LogFeatures)
	assert.Equal(t, []string{"charts/residuals.png"}, got.Artifacts)
	assert.InDelta(t, res.RSquared, got.Metrics.RSquared, 1e-12)
	assert.InDelta(t, res.RMSE, got.Metrics.RMSE, 1e-12)
	assert.Equal(t, 6, got.Metrics.NumOfObservations)
	assert.Contains(t, got.Diagnostics, "durbinWatson")
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetModelRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetModelRun(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveModelRunRejectsNonFiniteMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &ModelRun{
		ProjectID:    "project-1",
		TargetColumn: "price",
		Metrics:      FitMetrics{RSquared: math.NaN(), NumOfObservations: 3},
	}
	_, err := s.SaveModelRun(ctx, run)
	require.ErrorIs(t, err, ErrNonFiniteMetrics)

	run.Metrics.RSquared = 0.5
	run.Diagnostics = map[string]float64{"durbinWatson": math.Inf(1)}
	_, err = s.SaveModelRun(ctx, run)
	require.ErrorIs(t, err, ErrNonFiniteMetrics)

	runs, err := s.ListModelRuns(ctx, "project-1")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListModelRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res := fitResult(t)

	first, err := s.SaveModelRun(ctx, NewModelRun("project-1", "price", res, nil))
	require.NoError(t, err)
	second, err := s.SaveModelRun(ctx, NewModelRun("project-1", "price", res, nil))
	require.NoError(t, err)
	_, err = s.SaveModelRun(ctx, NewModelRun("project-2", "price", res, nil))
	require.NoError(t, err)

	runs, err := s.ListModelRuns(ctx, "project-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].RunID)
	assert.Equal(t, first, runs[1].RunID)
}

func TestSaveValuation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res := fitResult(t)

	runID, err := s.SaveModelRun(ctx, NewModelRun("project-1", "price", res, nil))
	require.NoError(t, err)

	pred, err := res.PredictRaw(map[string]float64{"area": 3.5}, nil)
	require.NoError(t, err)

	v := &Valuation{
		ProjectID:          "project-1",
		RunID:              runID,
		PointEstimate:      pred.Value,
		ConfidenceInterval: pred.ValueInterval,
		Elasticities:       res.Elasticities,
	}
	firstID, err := s.SaveValuation(ctx, v)
	require.NoError(t, err)
	secondID, err := s.SaveValuation(ctx, v)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	valuations, err := s.ListValuations(ctx, runID)
	require.NoError(t, err)
	require.Len(t, valuations, 2)
	assert.Equal(t, secondID, valuations[0].ResultID)
	assert.Equal(t, firstID, valuations[1].ResultID)
	assert.InDelta(t, pred.Value, valuations[0].PointEstimate, 1e-12)
	assert.True(t, valuations[0].ConfidenceInterval.Contains(valuations[0].PointEstimate))
	assert.InDelta(t, res.Elasticities["area"], valuations[0].Elasticities["area"], 1e-12)
}

func TestSaveValuationRequiresExistingRun(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveValuation(context.Background(), &Valuation{
		ProjectID:          "project-1",
		RunID:              uuid.NewString(),
		PointEstimate:      100,
		ConfidenceInterval: regression.Interval{Lower: 90, Upper: 110},
	})
	require.Error(t, err)
}

func TestSaveValuationRejectsNonFinite(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveValuation(context.Background(), &Valuation{
		ProjectID:          "project-1",
		RunID:              uuid.NewString(),
		PointEstimate:      math.Inf(1),
		ConfidenceInterval: regression.Interval{Lower: 90, Upper: 110},
	})
	require.ErrorIs(t, err, ErrNonFiniteMetrics)
}
