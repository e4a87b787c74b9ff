package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a keyed bulk merge into one table.
type UpsertConfig struct {
	Table        string   // optionally schema-qualified, e.g. "public.vehicles"
	Columns      []string // column order of every row
	ConflictKeys []string // unique key the merge matches on
	Preserve     []string // columns the existing row keeps on conflict, e.g. created_at
}

func (c UpsertConfig) validate() error {
	switch {
	case c.Table == "":
		return eris.New("db: upsert: no table specified")
	case len(c.Columns) == 0:
		return eris.New("db: upsert: no columns specified")
	case len(c.ConflictKeys) == 0:
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

// updateColumns is every column that is neither a key nor preserved.
func (c UpsertConfig) updateColumns() []string {
	skip := make(map[string]bool, len(c.ConflictKeys)+len(c.Preserve))
	for _, k := range c.ConflictKeys {
		skip[k] = true
	}
	for _, k := range c.Preserve {
		skip[k] = true
	}
	var cols []string
	for _, col := range c.Columns {
		if !skip[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

func (c UpsertConfig) stagingTable() string {
	return "_stage_" + strings.ReplaceAll(c.Table, ".", "_")
}

// mergeSQL moves staged rows into the target table. Rows whose key already
// exists are updated in place unless every column is a key or preserved.
func (c UpsertConfig) mergeSQL() string {
	cols := quoteAndJoin(c.Columns)

	var b strings.Builder
	b.WriteString("INSERT INTO " + sanitizeTable(c.Table) + " (" + cols + ") ")
	b.WriteString("SELECT " + cols + " FROM " + pgx.Identifier{c.stagingTable()}.Sanitize())
	b.WriteString(" ON CONFLICT (" + quoteAndJoin(c.ConflictKeys) + ")")

	update := c.updateColumns()
	if len(update) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	sets := make([]string, len(update))
	for i, col := range update {
		q := pgx.Identifier{col}.Sanitize()
		sets[i] = q + " = EXCLUDED." + q
	}
	b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
	return b.String()
}

// BulkUpsert stages rows with COPY and merges them into cfg.Table in one
// transaction. It returns the number of rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := cfg.stagingTable()
	if _, err := tx.Exec(ctx, "CREATE TEMP TABLE "+pgx.Identifier{stage}.Sanitize()+
		" (LIKE "+sanitizeTable(cfg.Table)+" INCLUDING DEFAULTS) ON COMMIT DROP"); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy rows for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, cfg.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
