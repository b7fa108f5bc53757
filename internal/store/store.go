// Package store persists dashboard snapshots and their state averages.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sld-insights/internal/model"
)

// ErrNotFound is wrapped by lookups of unknown snapshot ids.
var ErrNotFound = eris.New("store: not found")

// DefaultListLimit caps ListSnapshots when no limit is given.
const DefaultListLimit = 50

// Store defines snapshot persistence.
type Store interface {
	// Snapshots
	CreateSnapshot(ctx context.Context, metros []string, payload json.RawMessage) (*model.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error)

	// State averages
	SaveStateAverages(ctx context.Context, snapshotID string, rows []model.StateRow) error
	ListStateAverages(ctx context.Context, snapshotID string) ([]model.StateRow, error)

	// Ranked metro summary rows. Each snapshot's rows are written once.
	SaveMetroStats(ctx context.Context, snapshotID string, stats []model.MetroStat) error
	ListMetroStats(ctx context.Context, snapshotID string) ([]model.MetroStat, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend: "sqlite" (dsn is a file path) or
// "postgres" (dsn is a connection string). poolCfg only applies to postgres
// and may be nil.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres", "postgresql", "pgx":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func encodeMetros(metros []string) ([]byte, error) {
	if metros == nil {
		metros = []string{}
	}
	b, err := json.Marshal(metros)
	return b, eris.Wrap(err, "store: marshal metros")
}

func decodeMetros(b []byte) ([]string, error) {
	var metros []string
	if len(b) == 0 {
		return []string{}, nil
	}
	if err := json.Unmarshal(b, &metros); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal metros")
	}
	return metros, nil
}

// metroStatColumns are the snapshot_metros columns in insert order.
var metroStatColumns = []string{"snapshot_id", "rank", "cbsa_name", "walkability", "distance_to_transit", "composite_vmt", "count"}

func metroStatRow(snapshotID string, rank int, m model.MetroStat) []any {
	return []any{snapshotID, rank, m.RegionID, nullable(m.Walkability), nullable(m.DistanceToTransit), nullable(m.CompositeVMT), m.Count}
}

// nullable maps missing values to SQL NULL.
func nullable(v model.Value) any {
	if f, ok := v.Finite(); ok {
		return f
	}
	return nil
}

func fromNullable(f *float64) model.Value {
	if f == nil {
		return model.Missing
	}
	return model.Some(*f)
}
