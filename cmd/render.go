package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/dashboard"
	"github.com/sells-group/sld-insights/internal/render"
)

var (
	renderChart  string
	renderTheme  string
	renderOut    string
	renderOutDir string
	renderWidth  int
	renderHeight int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render dashboard charts as SVG",
	Long:  "Renders one chart to --out (stdout by default), or every chart into --out-dir.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		size := cfg.Render
		if renderWidth > 0 {
			size.Width = renderWidth
		}
		if renderHeight > 0 {
			size.Height = renderHeight
		}
		theme := render.ParseTheme(renderTheme)

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}
		b := dashboard.Build(ds, currentSelection(), cfg.DashboardOptions())

		if renderOutDir != "" {
			if err := os.MkdirAll(renderOutDir, 0o755); err != nil {
				return eris.Wrapf(err, "render: create %s", renderOutDir)
			}
			for _, chart := range dashboard.Charts() {
				path := filepath.Join(renderOutDir, chart+".svg")
				f, err := os.Create(path)
				if err != nil {
					return eris.Wrapf(err, "render: create %s", path)
				}
				if err := dashboard.RenderChart(f, b, chart, theme, size); err != nil {
					f.Close() //nolint:errcheck
					return err
				}
				if err := f.Close(); err != nil {
					return eris.Wrapf(err, "render: close %s", path)
				}
				zap.L().Info("rendered chart", zap.String("chart", chart), zap.String("path", path))
			}
			return nil
		}

		if renderChart == "" {
			return eris.Errorf("render: --chart is required without --out-dir (one of %v)", dashboard.Charts())
		}
		w, closeFn, err := createOutput(renderOut, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := dashboard.RenderChart(w, b, renderChart, theme, size); err != nil {
			closeFn() //nolint:errcheck
			return err
		}
		return closeFn()
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderChart, "chart", "", "chart to render: scatter, heatmap or sustainability")
	renderCmd.Flags().StringVar(&renderTheme, "theme", "light", "colour theme: light or dark")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output file (default stdout)")
	renderCmd.Flags().StringVar(&renderOutDir, "out-dir", "", "render every chart into this directory")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "chart width in pixels (default from config)")
	renderCmd.Flags().IntVar(&renderHeight, "height", 0, "chart height in pixels (default from config)")
	rootCmd.AddCommand(renderCmd)
}
