package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/sld-insights/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	metros     TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS state_averages (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	state_code  TEXT NOT NULL,
	state_name  TEXT NOT NULL,
	metric      TEXT NOT NULL,
	average     REAL NOT NULL,
	count       INTEGER NOT NULL,
	PRIMARY KEY (snapshot_id, state_code, metric)
);

CREATE TABLE IF NOT EXISTS snapshot_metros (
	snapshot_id         TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	rank                INTEGER NOT NULL,
	cbsa_name           TEXT NOT NULL,
	walkability         REAL,
	distance_to_transit REAL,
	composite_vmt       REAL,
	count               INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (snapshot_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

// Migrate creates the snapshot tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Ping checks the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSnapshot stores a dashboard payload for the given metro selection.
func (s *SQLiteStore) CreateSnapshot(ctx context.Context, metros []string, payload json.RawMessage) (*model.Snapshot, error) {
	if !json.Valid(payload) {
		return nil, eris.New("sqlite: snapshot payload is not valid JSON")
	}
	metrosJSON, err := encodeMetros(metros)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, metros, payload, created_at) VALUES (?, ?, ?, ?)`,
		id, string(metrosJSON), string(payload), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert snapshot")
	}

	m, _ := decodeMetros(metrosJSON)
	return &model.Snapshot{ID: id, Metros: m, Payload: payload, CreatedAt: now}, nil
}

// GetSnapshot returns a snapshot by id, or an error wrapping ErrNotFound.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, metros, payload, created_at FROM snapshots WHERE id = ?`, id,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: snapshot %s", id)
	}
	return snap, err
}

// ListSnapshots returns the newest snapshots first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, metros, payload, created_at FROM snapshots ORDER BY created_at DESC, id LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close() //nolint:errcheck

	snaps := []model.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

// SaveStateAverages upserts state rows keyed by snapshot, state and metric.
func (s *SQLiteStore) SaveStateAverages(ctx context.Context, snapshotID string, rows []model.StateRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO state_averages (snapshot_id, state_code, state_name, metric, average, count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare state insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, snapshotID, r.StateCode, r.StateName, r.Metric, r.Average, r.Count); err != nil {
			return eris.Wrapf(err, "sqlite: insert state %s for snapshot %s", r.StateCode, snapshotID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit state averages")
}

// ListStateAverages returns a snapshot's state rows ordered by state code and metric.
func (s *SQLiteStore) ListStateAverages(ctx context.Context, snapshotID string) ([]model.StateRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state_code, state_name, metric, average, count FROM state_averages
		 WHERE snapshot_id = ? ORDER BY state_code, metric`,
		snapshotID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list state averages")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.StateRow{}
	for rows.Next() {
		var r model.StateRow
		if err := rows.Scan(&r.StateCode, &r.StateName, &r.Metric, &r.Average, &r.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan state average")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list state averages iterate")
}

// SaveMetroStats inserts a snapshot's ranked metro rows. Saving the same
// snapshot twice fails on the primary key.
func (s *SQLiteStore) SaveMetroStats(ctx context.Context, snapshotID string, stats []model.MetroStat) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_metros (snapshot_id, rank, cbsa_name, walkability, distance_to_transit, composite_vmt, count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare metro insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, m := range stats {
		if _, err := stmt.ExecContext(ctx, metroStatRow(snapshotID, i+1, m)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert metro %s for snapshot %s", m.RegionID, snapshotID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit metro stats")
}

// ListMetroStats returns a snapshot's metro rows in rank order.
func (s *SQLiteStore) ListMetroStats(ctx context.Context, snapshotID string) ([]model.MetroStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cbsa_name, walkability, distance_to_transit, composite_vmt, count FROM snapshot_metros
		 WHERE snapshot_id = ? ORDER BY rank`,
		snapshotID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list metro stats")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.MetroStat{}
	for rows.Next() {
		m, err := scanMetroStat(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan metro stat")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list metro stats iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*model.Snapshot, error) {
	var (
		snap            model.Snapshot
		metros, payload string
	)
	err := row.Scan(&snap.ID, &metros, &payload, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan snapshot")
	}
	if snap.Metros, err = decodeMetros([]byte(metros)); err != nil {
		return nil, err
	}
	snap.Payload = json.RawMessage(payload)
	return &snap, nil
}

func scanMetroStat(row scannable) (model.MetroStat, error) {
	var (
		m              model.MetroStat
		walk, dist, vm *float64
	)
	if err := row.Scan(&m.RegionID, &walk, &dist, &vm, &m.Count); err != nil {
		return m, err
	}
	m.Walkability = fromNullable(walk)
	m.DistanceToTransit = fromNullable(dist)
	m.CompositeVMT = fromNullable(vm)
	return m, nil
}
