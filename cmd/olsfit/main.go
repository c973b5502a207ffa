// Command olsfit fits OLS valuation models from CSV data.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/obrafacil/regression/logger"
)

var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	dataPath   string

	zlog *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "olsfit",
	Short: "Fit and apply OLS valuation models",
	Long: `olsfit estimates ordinary least squares models from a CSV file.

The model is described by a YAML file naming the target column, the
features and the transforms (logarithms, dummy variables) to apply.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		zlog, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.SetLogger(zlog)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zlog != nil {
			_ = zlog.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "olsfit %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "model.yaml", "Model definition (YAML)")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "Observations (CSV with a header row)")

	fitCmd.Flags().BoolVar(&save, "save", false, "Store the run in the database")
	fitCmd.Flags().StringVar(&dbPath, "db", "", "Database path (overrides the config)")
	predictCmd.Flags().BoolVar(&save, "save", false, "Store the run and the valuation in the database")
	predictCmd.Flags().StringVar(&dbPath, "db", "", "Database path (overrides the config)")

	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
