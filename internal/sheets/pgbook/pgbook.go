// Package pgbook keeps workbook sheets in a Postgres table, so several
// collectors can share one history.
package pgbook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fknsrs.biz/p/ytmetrics/internal/sheets"
)

var schema = []string{
	`create table if not exists sheet_rows (
  id bigserial primary key,
  sheet_name text not null,
  is_header boolean not null default false,
  cells jsonb not null default '[]'
)`,
	`create index if not exists sheet_rows_sheet_name on sheet_rows (sheet_name, id)`,
}

type Workbook struct {
	pool *pgxpool.Pool
}

var _ sheets.Workbook = (*Workbook)(nil)

// Connect opens a pool for dsn and creates the sheet table if needed.
func Connect(ctx context.Context, dsn string) (*Workbook, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgbook.Connect: could not parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgbook.Connect: could not create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgbook.Connect: could not reach database: %w", err)
	}

	w, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return w, nil
}

// New uses an existing pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Workbook, error) {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("pgbook.New: could not apply schema: %w", err)
		}
	}

	return &Workbook{pool: pool}, nil
}

func (w *Workbook) Close() {
	w.pool.Close()
}

// lockSheet serialises writers to one sheet until tx ends.
func lockSheet(ctx context.Context, tx pgx.Tx, sheet string) error {
	_, err := tx.Exec(ctx, "select pg_advisory_xact_lock(hashtext($1))", sheet)
	return err
}

func sheetExists(ctx context.Context, tx pgx.Tx, sheet string) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, "select exists (select 1 from sheet_rows where sheet_name = $1)", sheet).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func insertRows(ctx context.Context, tx pgx.Tx, sheet string, rows [][]string, firstIsHeader bool) error {
	if len(rows) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for i, cells := range rows {
		if cells == nil {
			cells = []string{}
		}

		d, err := json.Marshal(cells)
		if err != nil {
			return err
		}

		b.Queue(
			"insert into sheet_rows (sheet_name, is_header, cells) values ($1, $2, $3::jsonb)",
			sheet, firstIsHeader && i == 0, string(d),
		)
	}

	return tx.SendBatch(ctx, b).Close()
}

func (w *Workbook) withTx(ctx context.Context, sheet string, fn func(tx pgx.Tx) error) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockSheet(ctx, tx, sheet); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (w *Workbook) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	dbRows, err := w.pool.Query(ctx, "select cells::text from sheet_rows where sheet_name = $1 order by id asc", sheet)
	if err != nil {
		return nil, fmt.Errorf("pgbook.Workbook.ReadRows: %q: %w", sheet, err)
	}

	rows, err := pgx.CollectRows(dbRows, func(row pgx.CollectableRow) ([]string, error) {
		var raw string
		if err := row.Scan(&raw); err != nil {
			return nil, err
		}

		cells := []string{}
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, err
		}

		return cells, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgbook.Workbook.ReadRows: %q: %w", sheet, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("pgbook.Workbook.ReadRows: %q: %w", sheet, sheets.ErrSheetNotFound)
	}

	return rows, nil
}

func (w *Workbook) CreateSheet(ctx context.Context, sheet string, header []string) error {
	if err := w.withTx(ctx, sheet, func(tx pgx.Tx) error {
		exists, err := sheetExists(ctx, tx, sheet)
		if err != nil || exists {
			return err
		}

		return insertRows(ctx, tx, sheet, [][]string{header}, true)
	}); err != nil {
		return fmt.Errorf("pgbook.Workbook.CreateSheet: %q: %w", sheet, err)
	}

	return nil
}

func (w *Workbook) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	if err := w.withTx(ctx, sheet, func(tx pgx.Tx) error {
		exists, err := sheetExists(ctx, tx, sheet)
		if err != nil {
			return err
		}
		if !exists {
			return sheets.ErrSheetNotFound
		}

		return insertRows(ctx, tx, sheet, rows, false)
	}); err != nil {
		return fmt.Errorf("pgbook.Workbook.AppendRows: %q: %w", sheet, err)
	}

	return nil
}

func (w *Workbook) ReplaceRows(ctx context.Context, sheet string, rows [][]string) error {
	if err := w.withTx(ctx, sheet, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "delete from sheet_rows where sheet_name = $1", sheet); err != nil {
			return err
		}

		return insertRows(ctx, tx, sheet, rows, true)
	}); err != nil {
		return fmt.Errorf("pgbook.Workbook.ReplaceRows: %q: %w", sheet, err)
	}

	return nil
}
