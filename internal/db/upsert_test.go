package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stateCfg = UpsertConfig{
	Table:        "state_averages",
	Columns:      []string{"snapshot_id", "state_code", "metric", "average", "count"},
	ConflictKeys: []string{"snapshot_id", "state_code", "metric"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, stateCfg, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "state_averages",
		ConflictKeys: []string{"snapshot_id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "state_averages",
		Columns: []string{"snapshot_id", "state_code"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_state_averages"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_state_averages"}, stateCfg.Columns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "state_averages" .* ON CONFLICT`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{"snap", "06", "Walkability", 11.5, 3},
		{"snap", "48", "Walkability", 8.0, 1},
	}
	n, err := BulkUpsert(context.Background(), mock, stateCfg, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_state_averages"}, stateCfg.Columns).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, stateCfg, [][]any{{"snap", "06", "Walkability", 1.0, 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for state_averages")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeSQL(t *testing.T) {
	got := mergeSQL(stateCfg, "tmp")
	assert.Equal(t,
		`INSERT INTO "state_averages" ("snapshot_id", "state_code", "metric", "average", "count") `+
			`SELECT "snapshot_id", "state_code", "metric", "average", "count" FROM "tmp" `+
			`ON CONFLICT ("snapshot_id", "state_code", "metric") DO UPDATE SET "average" = EXCLUDED."average", "count" = EXCLUDED."count"`,
		got)

	keysOnly := UpsertConfig{Table: "sld.metros", Columns: []string{"id"}, ConflictKeys: []string{"id"}}
	assert.Equal(t, `INSERT INTO "sld"."metros" ("id") SELECT "id" FROM "tmp" ON CONFLICT ("id") DO NOTHING`, mergeSQL(keysOnly, "tmp"))
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"snapshots", `"snapshots"`},
		{"sld.state_averages", `"sld"."state_averages"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"state_code", "metric", "average"`, quoteAndJoin([]string{"state_code", "metric", "average"}))
}
