package loader

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/fetcher"
	"github.com/sells-group/sld-insights/internal/model"
)

// ReadRows reads the raw rows of a dataset from a local path or http(s) URL.
// The format follows the extension: .csv, .json, .xlsx, or a .zip holding one of those.
func ReadRows(ctx context.Context, f fetcher.Fetcher, source string) ([]model.RawRow, error) {
	switch ext := fetcher.Ext(source); ext {
	case ".csv":
		rc, err := fetcher.Open(ctx, f, source)
		if err != nil {
			return nil, eris.Wrap(err, "loader: open csv")
		}
		defer rc.Close() //nolint:errcheck

		maps, err := fetcher.ReadCSVMaps(ctx, rc)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", source)
		}
		rows := make([]model.RawRow, len(maps))
		for i, m := range maps {
			rows[i] = stringRow(m)
		}
		return rows, nil

	case ".json":
		rc, err := fetcher.Open(ctx, f, source)
		if err != nil {
			return nil, eris.Wrap(err, "loader: open json")
		}
		defer rc.Close() //nolint:errcheck

		maps, err := fetcher.CollectJSONArray[map[string]any](ctx, rc)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", source)
		}
		rows := make([]model.RawRow, len(maps))
		for i, m := range maps {
			rows[i] = model.RawRow(m)
		}
		return rows, nil

	case ".xlsx", ".zip":
		dir, err := os.MkdirTemp("", "sld-load-*")
		if err != nil {
			return nil, eris.Wrap(err, "loader: create temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		local, err := fetcher.Localize(ctx, f, source, dir)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: fetch %s", source)
		}

		if ext == ".zip" {
			inner, err := fetcher.ExtractZIPByExt(local, dir, ".csv", ".json", ".xlsx")
			if err != nil {
				return nil, eris.Wrapf(err, "loader: unpack %s", source)
			}
			return ReadRows(ctx, f, inner)
		}

		maps, err := fetcher.ReadXLSXMaps(local, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", source)
		}
		rows := make([]model.RawRow, len(maps))
		for i, m := range maps {
			rows[i] = stringRow(m)
		}
		return rows, nil

	default:
		return nil, eris.Errorf("loader: unsupported format %q for %s", ext, source)
	}
}

// Load reads a dataset and parses it into region records.
func Load(ctx context.Context, f fetcher.Fetcher, source string) ([]model.RegionRecord, Report, error) {
	rows, err := ReadRows(ctx, f, source)
	if err != nil {
		return nil, Report{}, err
	}

	records, rep := ParseRows(rows)
	zap.L().With(zap.String("component", "loader")).Info("dataset loaded",
		zap.String("source", source),
		zap.Int("accepted", rep.Accepted),
		zap.Int("rejected", rep.Rejected),
	)
	return records, rep, nil
}

func stringRow(m map[string]string) model.RawRow {
	row := make(model.RawRow, len(m))
	for k, v := range m {
		row[k] = v
	}
	return row
}
