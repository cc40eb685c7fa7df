package models

import (
	"fknsrs.biz/p/ytmetrics/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytmetrics/internal/sqltypes"
)

var (
	SheetRowTable *sqlbuilderutil.Table
)

func init() {
	SheetRowTable = sqlbuilderutil.MustMakeTable(SheetRow{})
}

// SheetRow is one row of a named sheet in the sqlite workbook. Rows keep
// their insertion order through ID.
type SheetRow struct {
	ID        int `sql:",table:sheet_rows"`
	SheetName string
	IsHeader  bool
	Cells     sqltypes.JSONStringSlice
}
