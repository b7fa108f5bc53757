package main

import (
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/sld-insights/internal/aggregate"
	"github.com/sells-group/sld-insights/internal/export"
	"github.com/sells-group/sld-insights/internal/fetcher"
	"github.com/sells-group/sld-insights/internal/loader"
	"github.com/sells-group/sld-insights/internal/prepare"
)

// Extract file names written by prepare and read by the dashboard defaults.
const (
	cleanedFile        = "cleaned_sld_data.csv"
	metroSummaryFile   = "metro_summary.csv"
	sustainabilityFile = "sustainability_data.json"
	jobsFile           = "jobs_by_region.json"
	sampleFile         = "sample_sld_data.csv"
)

type extract struct {
	name  string
	write func(io.Writer) error
}

var (
	prepareInput  string
	prepareOutDir string
	prepareState  string
	prepareSample int
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Clean a raw SLD extract and write the dashboard extracts",
	Long:  "Drops incomplete block groups, trims IQR outliers, standardizes density, intersection, transit and VMT columns, then writes the cleaned records, metro summary, regional sustainability rows and sector jobs by region.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("component", "prepare"))

		if prepareInput == "" {
			return eris.New("prepare: --input is required")
		}
		if err := os.MkdirAll(prepareOutDir, 0o755); err != nil {
			return eris.Wrapf(err, "prepare: create %s", prepareOutDir)
		}

		raw, rep, err := loader.Load(ctx, fetcher.NewHTTPFetcher(cfg.HTTPOptions()), prepareInput)
		if err != nil {
			return err
		}
		log.Info("raw extract loaded", zap.Int("accepted", rep.Accepted), zap.Int("rejected", rep.Rejected))

		cleaned, cleanRep := prepare.Clean(raw)
		for _, f := range cleanRep.Fences {
			log.Debug("outlier fence",
				zap.String("metric", string(f.Metric)),
				zap.Float64("lower", f.Lower),
				zap.Float64("upper", f.Upper),
				zap.Int("removed", f.Removed),
			)
		}

		steps := []extract{
			{cleanedFile, func(w io.Writer) error { return export.WriteRecordsCSV(w, cleaned, nil) }},
			{metroSummaryFile, func(w io.Writer) error {
				return export.WriteMetroSummaryCSV(w, aggregate.MetroSummary(cleaned))
			}},
			{sustainabilityFile, func(w io.Writer) error {
				rows := prepare.Sustainability(cleaned, prepareState)
				return export.WriteRegionsJSON(w, rows, prepare.SustainabilityMetrics)
			}},
			{jobsFile, func(w io.Writer) error { return writeJSON(w, prepare.JobsByRegion(raw, nil)) }},
		}
		if prepareSample > 0 {
			steps = append(steps, extract{sampleFile, func(w io.Writer) error {
				return export.WriteRecordsCSV(w, prepare.HeadPerRegion(cleaned, prepareSample, prepare.ByRegionID), nil)
			}})
		}

		for _, s := range steps {
			path := filepath.Join(prepareOutDir, s.name)
			if err := writeFile(path, s.write); err != nil {
				return err
			}
			log.Info("wrote extract", zap.String("path", path))
		}

		_, err = cmd.OutOrStdout().Write([]byte(summaryLine(cleanRep)))
		return eris.Wrap(err, "prepare: write summary")
	},
}

func summaryLine(rep prepare.CleanReport) string {
	removed := 0
	for _, f := range rep.Fences {
		removed += f.Removed
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d block groups read, %d incomplete, %d outliers removed, %d written\n",
		rep.Input, rep.Incomplete, removed, rep.Output)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "prepare: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "prepare: write %s", path)
	}
	return eris.Wrapf(f.Close(), "prepare: close %s", path)
}

func init() {
	prepareCmd.Flags().StringVar(&prepareInput, "input", "", "raw SLD extract path or URL (.csv, .json, .xlsx or .zip)")
	prepareCmd.Flags().StringVar(&prepareOutDir, "out-dir", "public", "directory for the generated extracts")
	prepareCmd.Flags().StringVar(&prepareState, "state", prepare.California, "state FIPS code for the sustainability rows (empty for all states)")
	prepareCmd.Flags().IntVar(&prepareSample, "sample", 0, "also write a sample with at most N block groups per metro")
	rootCmd.AddCommand(prepareCmd)
}
