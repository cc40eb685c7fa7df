package csvbook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytmetrics/internal/sheets"
	"fknsrs.biz/p/ytmetrics/internal/sheets/sheetstest"
)

func TestContract(t *testing.T) {
	sheetstest.Run(t, func(t *testing.T) sheets.Workbook {
		w, err := Open(t.TempDir())
		require.NoError(t, err)
		return w
	})
}

func TestBadSheetName(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	w, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		a.ErrorIs(w.CreateSheet(ctx, name, []string{"x"}), ErrBadSheetName, name)
	}
}

func TestReadWithBOM(t *testing.T) {
	a := assert.New(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video_history.csv"), []byte("\xEF\xBB\xBFvideo_id,view_count,date\nv1,10,2024-01-01\n"), 0o644))

	w, err := Open(dir)
	require.NoError(t, err)

	rows, err := w.ReadRows(context.Background(), "video_history")
	a.NoError(err)
	a.Equal([][]string{{"video_id", "view_count", "date"}, {"v1", "10", "2024-01-01"}}, rows)
}

func TestReplaceLeavesNoTempFiles(t *testing.T) {
	a := assert.New(t)

	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	a.NoError(w.ReplaceRows(context.Background(), "current_data", [][]string{{"a"}, {"1"}}))

	entries, err := os.ReadDir(dir)
	a.NoError(err)
	if a.Len(entries, 1) {
		a.Equal("current_data.csv", entries[0].Name())
	}
}
