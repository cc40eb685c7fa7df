// Package sheetstest checks that a sheets.Workbook honours the contract the
// history store relies on.
package sheetstest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytmetrics/internal/sheets"
)

func Run(t *testing.T, makeWorkbook func(t *testing.T) sheets.Workbook) {
	t.Run("missing sheet", func(t *testing.T) {
		a := assert.New(t)

		w := makeWorkbook(t)

		_, err := w.ReadRows(context.Background(), "nothing_here")
		a.True(errors.Is(err, sheets.ErrSheetNotFound), "expected ErrSheetNotFound, got %v", err)
	})

	t.Run("create and append", func(t *testing.T) {
		a := assert.New(t)
		ctx := context.Background()

		w := makeWorkbook(t)

		header := []string{"video_id", "view_count", "date"}

		a.NoError(w.CreateSheet(ctx, "video_history", header))
		a.NoError(w.CreateSheet(ctx, "video_history", []string{"should", "not", "replace"}))

		rows, err := w.ReadRows(ctx, "video_history")
		a.NoError(err)
		a.Equal([][]string{header}, rows)

		a.NoError(w.AppendRows(ctx, "video_history", [][]string{{"v1", "10", "2024-01-01"}}))
		a.NoError(w.AppendRows(ctx, "video_history", [][]string{{"v1", "40", "2024-01-03"}, {"v2", "5", "2024-01-03"}}))

		rows, err = w.ReadRows(ctx, "video_history")
		a.NoError(err)
		a.Equal([][]string{
			header,
			{"v1", "10", "2024-01-01"},
			{"v1", "40", "2024-01-03"},
			{"v2", "5", "2024-01-03"},
		}, rows)
	})

	t.Run("replace", func(t *testing.T) {
		a := assert.New(t)
		ctx := context.Background()

		w := makeWorkbook(t)

		a.NoError(w.ReplaceRows(ctx, "current_data", [][]string{{"video_id", "title"}, {"v1", "一"}, {"v2", "with, comma"}}))
		a.NoError(w.ReplaceRows(ctx, "current_data", [][]string{{"video_id", "title"}, {"v3", "three"}}))

		rows, err := w.ReadRows(ctx, "current_data")
		a.NoError(err)
		a.Equal([][]string{{"video_id", "title"}, {"v3", "three"}}, rows)
	})

	t.Run("sheets are independent", func(t *testing.T) {
		a := assert.New(t)
		ctx := context.Background()

		w := makeWorkbook(t)

		a.NoError(w.CreateSheet(ctx, "one", []string{"a"}))
		a.NoError(w.CreateSheet(ctx, "two", []string{"b"}))
		a.NoError(w.AppendRows(ctx, "one", [][]string{{"1"}}))

		rows, err := w.ReadRows(ctx, "two")
		a.NoError(err)
		a.Equal([][]string{{"b"}}, rows)
	})
}
