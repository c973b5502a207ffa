package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obrafacil/regression/store"
)

// predictCmd fits the model and values the observation of the config's predict section
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Fit the model and value a single observation",
	Long: `Fits the model, then predicts the observation given in the predict
section of the config. Inputs are raw values: configured logarithms and
dummy variables are applied before predicting.`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, data, err := loadModel(configPath, dataPath)
	if err != nil {
		return err
	}
	if len(cfg.Predict.Features) == 0 && len(cfg.Predict.Categories) == 0 {
		return fmt.Errorf("nothing to predict: the config has no predict section")
	}
	res, err := fitModel(cfg, data)
	if err != nil {
		return err
	}

	p, err := res.PredictRaw(cfg.Predict.Features, cfg.Predict.Observation())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderPrediction(res, p))

	if !save {
		return nil
	}
	return withStore(cfg, func(s store.Store) error {
		runID, resultID, err := saveValuation(cmd.Context(), s, cfg, res, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSaved("run", runID))
		fmt.Fprintln(cmd.OutOrStdout(), renderSaved("valuation", resultID))
		return nil
	})
}
