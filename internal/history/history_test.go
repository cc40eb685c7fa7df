package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytmetrics/internal/ctxclock"
	"fknsrs.biz/p/ytmetrics/internal/sheets"
	"fknsrs.biz/p/ytmetrics/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseSnapshots(t *testing.T) {
	header := []string{"video_id", "view_count", "date"}

	for _, tc := range []struct {
		name string
		rows [][]string
		out  map[string]models.HistorySnapshot
		err  bool
	}{
		{
			name: "empty",
			rows: nil,
			out:  map[string]models.HistorySnapshot{},
		},
		{
			name: "latest wins in order",
			rows: [][]string{header, {"v1", "10", "2024-01-01"}, {"v1", "40", "2024-01-03"}},
			out:  map[string]models.HistorySnapshot{"v1": {ViewCount: 40, Date: day("2024-01-03")}},
		},
		{
			name: "latest wins out of order",
			rows: [][]string{header, {"v1", "40", "2024-01-03"}, {"v1", "10", "2024-01-01"}},
			out:  map[string]models.HistorySnapshot{"v1": {ViewCount: 40, Date: day("2024-01-03")}},
		},
		{
			name: "same day later row wins",
			rows: [][]string{header, {"v1", "40", "2024-01-03"}, {"v1", "45", "2024-01-03"}},
			out:  map[string]models.HistorySnapshot{"v1": {ViewCount: 45, Date: day("2024-01-03")}},
		},
		{
			name: "columns in any order",
			rows: [][]string{{"date", "video_id", "view_count"}, {"2024-01-02", "v2", "7"}},
			out:  map[string]models.HistorySnapshot{"v2": {ViewCount: 7, Date: day("2024-01-02")}},
		},
		{
			name: "timestamps and formatted numbers",
			rows: [][]string{header, {"v1", "1,500", "2024-01-02T10:00:00Z"}, {"v2", "12.0", "2024-01-02 23:59:59"}},
			out: map[string]models.HistorySnapshot{
				"v1": {ViewCount: 1500, Date: day("2024-01-02")},
				"v2": {ViewCount: 12, Date: day("2024-01-02")},
			},
		},
		{
			name: "bad views and blank rows skipped",
			rows: [][]string{header, {"v1", "many", "2024-01-02"}, {}, {"", "1", "2024-01-02"}, {"v2", "3", ""}, {"v3", "3", "2024-01-02"}},
			out:  map[string]models.HistorySnapshot{"v3": {ViewCount: 3, Date: day("2024-01-02")}},
		},
		{
			name: "bad date fails",
			rows: [][]string{header, {"v1", "1", "2024-01-02"}, {"v2", "1", "yesterday"}},
			err:  true,
		},
		{
			name: "missing column",
			rows: [][]string{{"video_id", "views"}, {"v1", "1"}},
			err:  true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			out, err := ParseSnapshots(tc.rows)
			if tc.err {
				a.Error(err)
				a.Nil(out)
			} else {
				a.NoError(err)
				a.Equal(tc.out, out)
			}
		})
	}
}

func TestGetPreviousStatsCreatesSheet(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	w := sheets.NewMemory()
	s := New(w, nil)

	a.Empty(s.GetPreviousStats(ctx))

	rows, err := w.ReadRows(ctx, HistorySheet)
	a.NoError(err)
	a.Equal([][]string{HistoryColumns}, rows)
}

func TestGetPreviousStatsDegrades(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	w := sheets.NewMemory()
	w.Set(HistorySheet, [][]string{{"video_id", "view_count", "date"}, {"v1", "1", "2024-01-02"}, {"v2", "1", "not a date"}})
	a.Empty(New(w, nil).GetPreviousStats(ctx))

	w.Set(HistorySheet, [][]string{{"id", "views"}, {"v1", "1"}})
	a.Empty(New(w, nil).GetPreviousStats(ctx))

	a.Empty(New(brokenWorkbook{}, nil).GetPreviousStats(ctx))
}

func TestRoundTrip(t *testing.T) {
	a := assert.New(t)

	clock := ctxclock.NewManualClock(time.Date(2024, 1, 3, 23, 30, 0, 0, time.UTC))
	ctx := ctxclock.WithClock(context.Background(), clock)

	w := sheets.NewMemory()
	w.Set(HistorySheet, [][]string{HistoryColumns, {"v1", "10", "2024-01-01"}})

	s := New(w, time.FixedZone("JST", 9*60*60))
	s.AppendHistory(ctx, []models.FormattedVideo{{VideoID: "v1", ViewCount: 40}, {VideoID: "v2", ViewCount: 5}})

	rows, err := w.ReadRows(ctx, HistorySheet)
	a.NoError(err)
	a.Equal([][]string{
		HistoryColumns,
		{"v1", "10", "2024-01-01"},
		{"v1", "40", "2024-01-04"},
		{"v2", "5", "2024-01-04"},
	}, rows)

	a.Equal(map[string]models.HistorySnapshot{
		"v1": {ViewCount: 40, Date: day("2024-01-04")},
		"v2": {ViewCount: 5, Date: day("2024-01-04")},
	}, s.GetPreviousStats(ctx))
}

func TestAppendHistoryEmpty(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	w := sheets.NewMemory()
	New(w, nil).AppendHistory(ctx, nil)

	_, err := w.ReadRows(ctx, HistorySheet)
	a.ErrorIs(err, sheets.ErrSheetNotFound)
}

func TestReplaceCurrentSnapshot(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	w := sheets.NewMemory()
	w.Set(CurrentSheet, [][]string{{"old"}, {"stale"}})

	s := New(w, nil)

	s.ReplaceCurrentSnapshot(ctx, nil)
	rows, _ := w.ReadRows(ctx, CurrentSheet)
	a.Equal([][]string{{"old"}, {"stale"}}, rows)

	v := models.FormattedVideo{VideoID: "v1", Title: "t", ViewCount: 3}
	s.ReplaceCurrentSnapshot(ctx, []models.FormattedVideo{v})

	rows, err := w.ReadRows(ctx, CurrentSheet)
	a.NoError(err)
	a.Equal([][]string{models.CurrentColumns, v.Row()}, rows)

	s.ReplaceCurrentSnapshot(ctx, []models.FormattedVideo{v, v})
	rows, _ = w.ReadRows(ctx, CurrentSheet)
	a.Len(rows, 3)
}

func TestFailuresAbsorbed(t *testing.T) {
	ctx := context.Background()
	s := New(brokenWorkbook{}, nil)

	assert.NotPanics(t, func() {
		s.AppendHistory(ctx, []models.FormattedVideo{{VideoID: "v1"}})
		s.ReplaceCurrentSnapshot(ctx, []models.FormattedVideo{{VideoID: "v1"}})
	})
}

type brokenWorkbook struct{}

var errBroken = errors.New("broken")

func (brokenWorkbook) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	return nil, errBroken
}

func (brokenWorkbook) CreateSheet(ctx context.Context, sheet string, header []string) error {
	return errBroken
}

func (brokenWorkbook) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	return errBroken
}

func (brokenWorkbook) ReplaceRows(ctx context.Context, sheet string, rows [][]string) error {
	return errBroken
}
