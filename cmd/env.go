package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sld-insights/internal/dashboard"
	"github.com/sells-group/sld-insights/internal/fetcher"
	"github.com/sells-group/sld-insights/internal/loader"
	"github.com/sells-group/sld-insights/internal/store"
)

// loadDataset validates the config and loads every configured source.
func loadDataset(ctx context.Context) (*dashboard.Dataset, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return dashboard.Load(ctx, fetcher.NewHTTPFetcher(cfg.HTTPOptions()), cfg.Data.Sources())
}

// currentSelection resolves --all, --metro and the configured default metros.
func currentSelection() loader.Selection {
	switch {
	case allMetros:
		return loader.NewSelection()
	case len(metroFlags) > 0:
		return loader.NewSelection(metroFlags...)
	default:
		return loader.NewSelection(cfg.Data.DefaultMetros...)
	}
}

// openStore connects to the snapshot store and applies the schema.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("snapshot"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.PoolConfig())
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json output")
}

// createOutput opens path for writing, or returns fallback for "" and "-".
func createOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return fallback, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, f.Close, nil
}
