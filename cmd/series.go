package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/sld-insights/internal/aggregate"
	"github.com/sells-group/sld-insights/internal/dashboard"
	"github.com/sells-group/sld-insights/internal/export"
	"github.com/sells-group/sld-insights/internal/model"
)

var (
	metrosTop     int
	flowThreshold float64
	flowTieBreak  string
	flowFormat    string
	statesMetric  string
	statesGeoJSON string
	scatterX      string
	scatterY      string
)

var metrosCmd = &cobra.Command{
	Use:   "metros",
	Short: "List selectable metros, or the top metros by walkability",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}
		if metrosTop > 0 {
			return writeJSON(cmd.OutOrStdout(), dashboard.TopMetros(ds, metrosTop))
		}
		return writeJSON(cmd.OutOrStdout(), dashboard.Metros(ds))
	},
}

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Print the metric correlation matrix for the selected metros",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}
		records := currentSelection().Apply(ds.Records)
		return writeJSON(cmd.OutOrStdout(), aggregate.Correlate(records, nil))
	},
}

var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Print the walkability to car ownership flow for the selected metros",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := cfg.FlowOptions()
		if cmd.Flags().Changed("threshold") {
			if flowThreshold < 0 {
				return eris.Errorf("flow: threshold must be >= 0, got %g", flowThreshold)
			}
			opts.Threshold = flowThreshold
		}
		if flowTieBreak != "" {
			policy, err := aggregate.ParseTieBreak(flowTieBreak)
			if err != nil {
				return err
			}
			opts.TieBreak = policy
		}

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}
		g := aggregate.Flow(currentSelection().Apply(ds.Records), opts)

		switch flowFormat {
		case "json":
			return writeJSON(cmd.OutOrStdout(), g)
		case "text":
			return writeFlowText(cmd.OutOrStdout(), g)
		default:
			return eris.Errorf("flow: unknown format %q", flowFormat)
		}
	},
}

func writeFlowText(w io.Writer, g aggregate.FlowGraph) error {
	p := message.NewPrinter(language.English)
	for i, l := range g.Links {
		ofSource, ofTarget := g.LinkShares(i)
		if _, err := p.Fprintf(w, "%s -> %s: %.0f households (%.1f%% of source, %.1f%% of target)\n",
			g.Nodes[l.Source].Name, g.Nodes[l.Target].Name, l.Value, ofSource*100, ofTarget*100); err != nil {
			return eris.Wrap(err, "flow: write link")
		}
	}
	_, err := p.Fprintf(w, "%d block groups processed, %d skipped, %.0f households\n", g.Processed, g.Skipped, g.TotalValue())
	return eris.Wrap(err, "flow: write summary")
}

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "Print per-state averages of a metric over the whole dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		metric := model.Metric(statesMetric)
		if metric == "" {
			metric = model.Metric(cfg.States.Metric)
		}

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}
		avgs := aggregate.AverageByState(ds.Records, metric)

		if statesGeoJSON != "" {
			w, closeFn, err := createOutput(statesGeoJSON, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := export.WriteStatesGeoJSON(w, ds.Shapes, avgs, metric); err != nil {
				closeFn() //nolint:errcheck
				return err
			}
			return closeFn()
		}
		return writeJSON(cmd.OutOrStdout(), avgs.Rows(metric))
	},
}

var sustainabilityCmd = &cobra.Command{
	Use:   "sustainability",
	Short: "Print the normalized regional sustainability series",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), dashboard.Sustainability(ds))
	},
}

var scatterCmd = &cobra.Command{
	Use:   "scatter",
	Short: "Print scatter points for two metrics over the selected metros",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}
		records := currentSelection().Apply(ds.Records)
		return writeJSON(cmd.OutOrStdout(), aggregate.Scatter(records, model.Metric(scatterX), model.Metric(scatterY)))
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print every dashboard series for the selected metros",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), dashboard.Build(ds, currentSelection(), cfg.DashboardOptions()))
	},
}

func init() {
	metrosCmd.Flags().IntVar(&metrosTop, "top", 0, "print the top N metros by walkability instead of the name list")

	flowCmd.Flags().Float64Var(&flowThreshold, "threshold", 0, "household sum a link must exceed (default from config)")
	flowCmd.Flags().StringVar(&flowTieBreak, "tie-break", "", "car tier tie-break policy: fewer_cars or legacy (default from config)")
	flowCmd.Flags().StringVar(&flowFormat, "format", "json", "output format: json or text")

	statesCmd.Flags().StringVar(&statesMetric, "metric", "", "metric to average (default from config)")
	statesCmd.Flags().StringVar(&statesGeoJSON, "geojson", "", "write a GeoJSON feature collection to this path (- for stdout)")

	scatterCmd.Flags().StringVar(&scatterX, "x", string(aggregate.DefaultScatterX), "x axis metric")
	scatterCmd.Flags().StringVar(&scatterY, "y", string(aggregate.DefaultScatterY), "y axis metric")

	rootCmd.AddCommand(metrosCmd, correlateCmd, flowCmd, statesCmd, sustainabilityCmd, scatterCmd, dashboardCmd)
}
