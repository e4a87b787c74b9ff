package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vehicleUpsert = UpsertConfig{
	Table:        "vehicles",
	Columns:      []string{"id", "make", "model", "year", "sale_price", "created_at"},
	ConflictKeys: []string{"id"},
	Preserve:     []string{"created_at"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, vehicleUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_InvalidConfig(t *testing.T) {
	rows := [][]any{{"v1", "Porsche"}}
	tests := []struct {
		name string
		cfg  UpsertConfig
		want string
	}{
		{"no table", UpsertConfig{Columns: []string{"id"}, ConflictKeys: []string{"id"}}, "no table specified"},
		{"no columns", UpsertConfig{Table: "vehicles", ConflictKeys: []string{"id"}}, "no columns specified"},
		{"no keys", UpsertConfig{Table: "vehicles", Columns: []string{"id", "make"}}, "no conflict keys specified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BulkUpsert(context.Background(), nil, tt.cfg, rows)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestMergeSQL(t *testing.T) {
	assert.Equal(t,
		`INSERT INTO "vehicles" ("id", "make", "model", "year", "sale_price", "created_at") `+
			`SELECT "id", "make", "model", "year", "sale_price", "created_at" FROM "_stage_vehicles" `+
			`ON CONFLICT ("id") DO UPDATE SET "make" = EXCLUDED."make", "model" = EXCLUDED."model", `+
			`"year" = EXCLUDED."year", "sale_price" = EXCLUDED."sale_price"`,
		vehicleUpsert.mergeSQL())

	keysOnly := UpsertConfig{Table: "public.identities", Columns: []string{"platform", "handle"}, ConflictKeys: []string{"platform", "handle"}}
	assert.Equal(t,
		`INSERT INTO "public"."identities" ("platform", "handle") SELECT "platform", "handle" FROM "_stage_public_identities" ON CONFLICT ("platform", "handle") DO NOTHING`,
		keysOnly.mergeSQL())
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_vehicles" \(LIKE "vehicles" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_vehicles"}, vehicleUpsert.Columns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "vehicles" .* ON CONFLICT \("id"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{"v1", "Porsche", "911", 1988, "61000", nil},
		{"v2", "Porsche", "911", 1989, "64500", nil},
	}
	n, err := BulkUpsert(context.Background(), mock, vehicleUpsert, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_vehicles"}, vehicleUpsert.Columns).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, vehicleUpsert, [][]any{{"v1", "Porsche", "911", 1988, "61000", nil}})
	assert.ErrorContains(t, err, "copy rows for vehicles")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))
	_, err = BulkUpsert(context.Background(), mock, vehicleUpsert, [][]any{{"v1"}})
	assert.ErrorContains(t, err, "begin tx")
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"vehicles"`, sanitizeTable("vehicles"))
	assert.Equal(t, `"public"."vehicles"`, sanitizeTable("public.vehicles"))
}
