package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sld-insights/internal/dashboard"
	"github.com/sells-group/sld-insights/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dashboard as an xlsx workbook, state GeoJSON or record CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var write func(io.Writer, *dashboard.Dataset) error
		sel := currentSelection()
		opts := cfg.DashboardOptions()

		switch exportFormat {
		case "xlsx":
			write = func(w io.Writer, ds *dashboard.Dataset) error {
				return export.WriteWorkbook(w, dashboard.Build(ds, sel, opts))
			}
		case "geojson":
			write = func(w io.Writer, ds *dashboard.Dataset) error {
				b := dashboard.Build(ds, sel, opts)
				return export.WriteStatesGeoJSON(w, ds.Shapes, b.States, b.StateMetric)
			}
		case "csv":
			write = func(w io.Writer, ds *dashboard.Dataset) error {
				return export.WriteRecordsCSV(w, sel.Apply(ds.Records), nil)
			}
		default:
			return eris.Errorf("export: unknown format %q (xlsx, geojson or csv)", exportFormat)
		}

		ds, err := loadDataset(ctx)
		if err != nil {
			return err
		}

		w, closeFn, err := createOutput(exportOut, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := write(w, ds); err != nil {
			closeFn() //nolint:errcheck
			return err
		}
		return closeFn()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx, geojson or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
