package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obrafacil/regression"
	"github.com/obrafacil/regression/config"
	"github.com/obrafacil/regression/store"
)

var (
	save   bool
	dbPath string
)

// fitCmd fits the configured model and prints its summary
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the model and print a summary",
	Long: `Fits the model described by --config on the observations in --data.

When stepwise elimination is enabled in the config, insignificant features
are dropped one at a time and the final model is reported.`,
	Args: cobra.NoArgs,
	RunE: runFit,
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, data, err := loadModel(configPath, dataPath)
	if err != nil {
		return err
	}
	res, err := fitModel(cfg, data)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res))

	if !save {
		return nil
	}
	return withStore(cfg, func(s store.Store) error {
		runID, err := s.SaveModelRun(cmd.Context(), store.NewModelRun(cfg.ProjectID, cfg.Target, res, nil))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSaved("run", runID))
		return nil
	})
}

// fitModel runs the estimation, with backward elimination when configured.
func fitModel(cfg *config.Config, data regression.ModelData) (*regression.Result, error) {
	r := regression.NewRegression()
	r.SetTargetLabel(cfg.Target)
	r.SetTarget(data.Target)
	for _, f := range data.Features {
		if err := r.AddFeature(f.Name, f.Values); err != nil {
			return nil, err
		}
	}
	r.SetObservations(data.Observations)
	r.SetTransforms(cfg.Transforms)

	if !cfg.Stepwise.Enabled {
		return r.Run(cfg.Options()...)
	}

	forced := make(map[string]struct{}, len(cfg.Stepwise.Forced))
	for _, name := range cfg.Stepwise.Forced {
		forced[name] = struct{}{}
	}
	models, err := r.BackwardElimination(cfg.Stepwise.PValue, forced, cfg.Options()...)
	if err != nil {
		return nil, err
	}
	return models[len(models)-1], nil
}

// withStore opens the configured database for the duration of fn.
func withStore(cfg *config.Config, fn func(store.Store) error) error {
	path := cfg.Database.Path
	if dbPath != "" {
		path = dbPath
	}
	s, err := store.NewDBService(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func saveValuation(ctx context.Context, s store.Store, cfg *config.Config, res *regression.Result, p *regression.Prediction) (runID, resultID string, err error) {
	runID, err = s.SaveModelRun(ctx, store.NewModelRun(cfg.ProjectID, cfg.Target, res, nil))
	if err != nil {
		return "", "", err
	}
	resultID, err = s.SaveValuation(ctx, &store.Valuation{
		ProjectID:          cfg.ProjectID,
		RunID:              runID,
		PointEstimate:      p.Value,
		ConfidenceInterval: p.ValueInterval,
		Elasticities:       res.Elasticities,
	})
	if err != nil {
		return runID, "", err
	}
	return runID, resultID, nil
}
