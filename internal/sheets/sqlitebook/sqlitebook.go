// Package sqlitebook stores workbook sheets as rows of a single sqlite
// table.
package sqlitebook

import (
	"context"
	"database/sql"
	"fmt"

	"fknsrs.biz/p/sorm"
	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"

	"fknsrs.biz/p/ytmetrics/internal/ctxdb"
	"fknsrs.biz/p/ytmetrics/internal/sheets"
	"fknsrs.biz/p/ytmetrics/models"
)

func init() {
	sorm.SetParameterPrefix("?")
}

var schema = []string{
	`create table if not exists ` + models.SheetRowTable.Name() + ` (
  id integer primary key autoincrement,
  sheet_name text not null,
  is_header boolean not null default false,
  cells text not null default '[]'
)`,
	`create index if not exists ` + models.SheetRowTable.Name() + `_sheet_name on ` + models.SheetRowTable.Name() + ` (sheet_name, id)`,
}

type Workbook struct {
	db *sql.DB
}

var _ sheets.Workbook = (*Workbook)(nil)

// Open creates the sheet table if needed. The db is not closed by the
// workbook.
func Open(ctx context.Context, db *sql.DB) (*Workbook, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("sqlitebook.Open: could not apply schema: %w", err)
		}
	}

	if err := checkColumns(ctx, db); err != nil {
		return nil, fmt.Errorf("sqlitebook.Open: %w", err)
	}

	return &Workbook{db: db}, nil
}

// checkColumns rejects an existing table that predates a model field.
func checkColumns(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "select name from pragma_table_info(?)", models.SheetRowTable.Name())
	if err != nil {
		return fmt.Errorf("could not inspect table: %w", err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("could not inspect table: %w", err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("could not inspect table: %w", err)
	}

	for _, name := range models.SheetRowTable.ColumnNames() {
		if !have[name] {
			return fmt.Errorf("table %s is missing column %s", models.SheetRowTable.Name(), name)
		}
	}

	return nil
}

func column(field string) string {
	name, ok := models.SheetRowTable.Column(field)
	if !ok {
		panic(fmt.Errorf("sqlitebook: no column for field %q", field))
	}
	return name
}

func (w *Workbook) ctx(ctx context.Context) context.Context {
	return ctxdb.WithDB(ctx, w.db)
}

func sheetExists(ctx context.Context, tx *sql.Tx, sheet string) (bool, error) {
	var rows []models.SheetRow
	if err := qsorm.FindWhere(
		ctx,
		tx,
		&rows,
		sb.BinaryOperator("=", models.SheetRowTable.C("SheetName"), sb.Bind(sheet)),
		[]sb.AsOrderingTerm{sb.OrderDesc(models.SheetRowTable.C("ID"))},
		sb.OffsetLimit(nil, sb.Literal("1")),
	); err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, sheet string, rows [][]string, firstIsHeader bool) error {
	for i, cells := range rows {
		rec := models.SheetRow{
			SheetName: sheet,
			IsHeader:  firstIsHeader && i == 0,
			Cells:     append([]string{}, cells...),
		}

		if err := sorm.CreateRecord(ctx, tx, &rec); err != nil {
			return err
		}
	}

	return nil
}

func (w *Workbook) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	ctx = w.ctx(ctx)

	var records []models.SheetRow
	if err := sorm.FindWhere(ctx, ctxdb.GetDB(ctx), &records, "where "+column("SheetName")+" = ? order by "+column("ID")+" asc", sheet); err != nil {
		return nil, fmt.Errorf("sqlitebook.Workbook.ReadRows: %q: %w", sheet, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("sqlitebook.Workbook.ReadRows: %q: %w", sheet, sheets.ErrSheetNotFound)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string(rec.Cells)
		if rows[i] == nil {
			rows[i] = []string{}
		}
	}

	return rows, nil
}

func (w *Workbook) CreateSheet(ctx context.Context, sheet string, header []string) error {
	if err := ctxdb.UsingTx(w.ctx(ctx), nil, func(ctx context.Context, tx *sql.Tx) error {
		exists, err := sheetExists(ctx, tx, sheet)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		return insertRows(ctx, tx, sheet, [][]string{header}, true)
	}); err != nil {
		return fmt.Errorf("sqlitebook.Workbook.CreateSheet: %q: %w", sheet, err)
	}

	return nil
}

func (w *Workbook) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	if err := ctxdb.UsingTx(w.ctx(ctx), nil, func(ctx context.Context, tx *sql.Tx) error {
		exists, err := sheetExists(ctx, tx, sheet)
		if err != nil {
			return err
		}
		if !exists {
			return sheets.ErrSheetNotFound
		}

		return insertRows(ctx, tx, sheet, rows, false)
	}); err != nil {
		return fmt.Errorf("sqlitebook.Workbook.AppendRows: %q: %w", sheet, err)
	}

	return nil
}

func (w *Workbook) ReplaceRows(ctx context.Context, sheet string, rows [][]string) error {
	if err := ctxdb.UsingTx(w.ctx(ctx), nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "delete from "+models.SheetRowTable.Name()+" where "+column("SheetName")+" = ?", sheet); err != nil {
			return err
		}

		return insertRows(ctx, tx, sheet, rows, true)
	}); err != nil {
		return fmt.Errorf("sqlitebook.Workbook.ReplaceRows: %q: %w", sheet, err)
	}

	return nil
}
