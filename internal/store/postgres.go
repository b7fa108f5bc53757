package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sld-insights/internal/db"
	"github.com/sells-group/sld-insights/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_snapshot": `INSERT INTO snapshots (id, metros, payload, created_at) VALUES ($1, $2, $3, $4)`,
	"get_snapshot":    `SELECT id, metros, payload, created_at FROM snapshots WHERE id = $1`,
}

var stateAverageUpsert = db.UpsertConfig{
	Table:        "state_averages",
	Columns:      []string{"snapshot_id", "state_code", "state_name", "metric", "average", "count"},
	ConflictKeys: []string{"snapshot_id", "state_code", "metric"},
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	metros     JSONB NOT NULL DEFAULT '[]',
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS state_averages (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	state_code  TEXT NOT NULL,
	state_name  TEXT NOT NULL,
	metric      TEXT NOT NULL,
	average     DOUBLE PRECISION NOT NULL,
	count       INTEGER NOT NULL,
	PRIMARY KEY (snapshot_id, state_code, metric)
);

CREATE TABLE IF NOT EXISTS snapshot_metros (
	snapshot_id         TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	rank                INTEGER NOT NULL,
	cbsa_name           TEXT NOT NULL,
	walkability         DOUBLE PRECISION,
	distance_to_transit DOUBLE PRECISION,
	composite_vmt       DOUBLE PRECISION,
	count               INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (snapshot_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSnapshot(ctx context.Context, metros []string, payload json.RawMessage) (*model.Snapshot, error) {
	if !json.Valid(payload) {
		return nil, eris.New("postgres: snapshot payload is not valid JSON")
	}
	metrosJSON, err := encodeMetros(metros)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, metros, payload, created_at) VALUES ($1, $2, $3, $4)`,
		id, metrosJSON, []byte(payload), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert snapshot")
	}

	m, _ := decodeMetros(metrosJSON)
	return &model.Snapshot{ID: id, Metros: m, Payload: payload, CreatedAt: now}, nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	var (
		snap            model.Snapshot
		metros, payload []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, metros, payload, created_at FROM snapshots WHERE id = $1`, id,
	).Scan(&snap.ID, &metros, &payload, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: snapshot %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get snapshot %s", id)
	}
	if snap.Metros, err = decodeMetros(metros); err != nil {
		return nil, err
	}
	snap.Payload = json.RawMessage(payload)
	return &snap, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, metros, payload, created_at FROM snapshots ORDER BY created_at DESC, id LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	snaps := []model.Snapshot{}
	for rows.Next() {
		var (
			snap            model.Snapshot
			metros, payload []byte
		)
		if err := rows.Scan(&snap.ID, &metros, &payload, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		if snap.Metros, err = decodeMetros(metros); err != nil {
			return nil, err
		}
		snap.Payload = json.RawMessage(payload)
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}

// SaveStateAverages bulk upserts state rows through a COPY staging table.
func (s *PostgresStore) SaveStateAverages(ctx context.Context, snapshotID string, rows []model.StateRow) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{snapshotID, r.StateCode, r.StateName, r.Metric, r.Average, r.Count}
	}
	n, err := db.BulkUpsert(ctx, s.pool, stateAverageUpsert, data)
	if err != nil {
		return eris.Wrapf(err, "postgres: save state averages for %s", snapshotID)
	}
	zap.L().Debug("saved state averages",
		zap.String("component", "store"),
		zap.String("snapshot_id", snapshotID),
		zap.Int64("rows", n),
	)
	return nil
}

func (s *PostgresStore) ListStateAverages(ctx context.Context, snapshotID string) ([]model.StateRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state_code, state_name, metric, average, count FROM state_averages
		 WHERE snapshot_id = $1 ORDER BY state_code, metric`,
		snapshotID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list state averages")
	}
	defer rows.Close()

	out := []model.StateRow{}
	for rows.Next() {
		var r model.StateRow
		if err := rows.Scan(&r.StateCode, &r.StateName, &r.Metric, &r.Average, &r.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan state average")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list state averages iterate")
}

// SaveMetroStats appends a snapshot's ranked metro rows with COPY.
func (s *PostgresStore) SaveMetroStats(ctx context.Context, snapshotID string, stats []model.MetroStat) error {
	data := make([][]any, len(stats))
	for i, m := range stats {
		data[i] = metroStatRow(snapshotID, i+1, m)
	}
	n, err := db.CopyFrom(ctx, s.pool, "snapshot_metros", metroStatColumns, data)
	if err != nil {
		return eris.Wrapf(err, "postgres: save metro stats for %s", snapshotID)
	}
	zap.L().Debug("saved metro stats",
		zap.String("component", "store"),
		zap.String("snapshot_id", snapshotID),
		zap.Int64("rows", n),
	)
	return nil
}

func (s *PostgresStore) ListMetroStats(ctx context.Context, snapshotID string) ([]model.MetroStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cbsa_name, walkability, distance_to_transit, composite_vmt, count FROM snapshot_metros
		 WHERE snapshot_id = $1 ORDER BY rank`,
		snapshotID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list metro stats")
	}
	defer rows.Close()

	out := []model.MetroStat{}
	for rows.Next() {
		m, err := scanMetroStat(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan metro stat")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list metro stats iterate")
}
