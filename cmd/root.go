package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/config"
)

var cfg *config.Config

var (
	dataPath   string
	metroFlags []string
	allMetros  bool
)

var rootCmd = &cobra.Command{
	Use:   "sld",
	Short: "Smart Location Database walkability dashboard pipeline",
	Long:  "Loads EPA Smart Location Database block groups, aggregates them into dashboard series (correlations, walkability to car ownership flows, state averages, regional sustainability) and serves, renders, exports or snapshots the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if dataPath != "" {
			cfg.Data.RecordsPath = dataPath
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "block group dataset path or URL (default from config)")
	rootCmd.PersistentFlags().StringArrayVar(&metroFlags, "metro", nil, "metro to select, repeatable (default from config)")
	rootCmd.PersistentFlags().BoolVar(&allMetros, "all", false, "select every metro")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
