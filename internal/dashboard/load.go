// Package dashboard loads the SLD extracts and assembles every chart series
// for one metro selection.
package dashboard

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sld-insights/internal/fetcher"
	"github.com/sells-group/sld-insights/internal/geo"
	"github.com/sells-group/sld-insights/internal/loader"
	"github.com/sells-group/sld-insights/internal/model"
)

// Sources names the dataset files. Records is required; the others may be
// empty. Each is a local path or an http(s) URL.
type Sources struct {
	Records        string `json:"records"`
	MetroSummary   string `json:"metro_summary,omitempty"`
	Sustainability string `json:"sustainability,omitempty"`
	StateShapes    string `json:"state_shapes,omitempty"`
}

// Dataset is everything Build reads. It is not modified after Load.
type Dataset struct {
	Records        []model.RegionRecord
	Report         loader.Report
	MetroStats     []model.MetroStat
	Sustainability []model.RegionRecord
	Shapes         []geo.StateShape
}

// Load reads all sources concurrently. A failing records source fails the
// load; a failing optional source is logged and left empty.
func Load(ctx context.Context, f fetcher.Fetcher, src Sources) (*Dataset, error) {
	if src.Records == "" {
		return nil, eris.New("dashboard: no records source configured")
	}
	log := zap.L().With(zap.String("component", "dashboard"))

	var ds Dataset
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, rep, err := loader.Load(gctx, f, src.Records)
		if err != nil {
			return eris.Wrap(err, "dashboard: load records")
		}
		ds.Records, ds.Report = records, rep
		return nil
	})

	if src.MetroSummary != "" {
		g.Go(func() error {
			stats, err := loader.LoadMetroStats(gctx, f, src.MetroSummary)
			if err != nil {
				log.Warn("metro summary unavailable", zap.String("source", src.MetroSummary), zap.Error(err))
				return nil
			}
			ds.MetroStats = stats
			return nil
		})
	}

	if src.Sustainability != "" {
		g.Go(func() error {
			rows, _, err := loader.Load(gctx, f, src.Sustainability)
			if err != nil {
				log.Warn("sustainability data unavailable", zap.String("source", src.Sustainability), zap.Error(err))
				return nil
			}
			ds.Sustainability = rows
			return nil
		})
	}

	if src.StateShapes != "" {
		g.Go(func() error {
			shapes, err := loadShapes(gctx, f, src.StateShapes)
			if err != nil {
				log.Warn("state shapes unavailable", zap.String("source", src.StateShapes), zap.Error(err))
				return nil
			}
			ds.Shapes = shapes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("dataset ready",
		zap.Int("records", len(ds.Records)),
		zap.Int("metro_stats", len(ds.MetroStats)),
		zap.Int("sustainability", len(ds.Sustainability)),
		zap.Int("shapes", len(ds.Shapes)),
	)
	return &ds, nil
}

func loadShapes(ctx context.Context, f fetcher.Fetcher, source string) ([]geo.StateShape, error) {
	dir, err := os.MkdirTemp("", "sld-shapes-*")
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	local, err := fetcher.Localize(ctx, f, source, dir)
	if err != nil {
		return nil, eris.Wrapf(err, "dashboard: fetch %s", source)
	}
	return geo.LoadStateShapes(local)
}
