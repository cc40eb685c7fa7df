// Package history persists view counts between runs in a workbook, so that
// later runs can report how much a video has grown.
//
// The history sheet is append-only: every run adds one row per video. The
// current sheet holds only the latest run's formatted output.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmetrics/internal/ctxclock"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
	"fknsrs.biz/p/ytmetrics/internal/sheets"
	"fknsrs.biz/p/ytmetrics/internal/timeutil"
	"fknsrs.biz/p/ytmetrics/models"
)

const (
	HistorySheet = "video_history"
	CurrentSheet = "current_data"
)

var HistoryColumns = []string{"video_id", "view_count", "date"}

var ErrMissingColumns = errors.New("history: required columns missing")

type Store struct {
	workbook sheets.Workbook
	location *time.Location
}

// New returns a store over w. Dates written to the history sheet are days in
// loc, or UTC when loc is nil.
func New(w sheets.Workbook, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}

	return &Store{workbook: w, location: loc}
}

func (s *Store) ensureHistorySheet(ctx context.Context) error {
	return s.workbook.CreateSheet(ctx, HistorySheet, HistoryColumns)
}

func columnIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, ok := m[name]; !ok {
			m[name] = i
		}
	}
	return m
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseViews(s string) (int64, bool) {
	s = strings.ReplaceAll(s, ",", "")

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}

	return 0, false
}

// ParseSnapshots reduces history rows (header first) to the latest snapshot
// per video. When two rows share a video and a date, the later row wins.
// Rows without a video ID or date, and rows whose view count isn't a number,
// are skipped. A date that can't be parsed fails the whole load.
func ParseSnapshots(rows [][]string) (map[string]models.HistorySnapshot, error) {
	r := make(map[string]models.HistorySnapshot)

	if len(rows) == 0 {
		return r, nil
	}

	cols := columnIndex(rows[0])

	idCol, hasID := cols["video_id"]
	dateCol, hasDate := cols["date"]
	viewsCol, hasViews := cols["view_count"]
	if !hasID || !hasDate || !hasViews {
		return nil, fmt.Errorf("history.ParseSnapshots: %w: have %v", ErrMissingColumns, rows[0])
	}

	for i, row := range rows[1:] {
		id := cell(row, idCol)
		if id == "" {
			continue
		}

		rawDate := cell(row, dateCol)
		if rawDate == "" {
			continue
		}

		date, err := timeutil.ParseDay(rawDate)
		if err != nil {
			return nil, fmt.Errorf("history.ParseSnapshots: row %d: %w", i+2, err)
		}

		views, ok := parseViews(cell(row, viewsCol))
		if !ok {
			continue
		}

		if prev, ok := r[id]; ok && prev.Date.After(date) {
			continue
		}

		r[id] = models.HistorySnapshot{ViewCount: views, Date: date}
	}

	return r, nil
}

// GetPreviousStats loads the latest snapshot per video. It never fails: a
// missing sheet is created and yields no history, and any other problem is
// logged and also yields no history.
func (s *Store) GetPreviousStats(ctx context.Context) map[string]models.HistorySnapshot {
	l := ctxlogger.GetLogger(ctx).WithField("history.sheet", HistorySheet)

	rows, err := s.workbook.ReadRows(ctx, HistorySheet)
	if errors.Is(err, sheets.ErrSheetNotFound) {
		l.Info("creating history sheet")

		if err := s.ensureHistorySheet(ctx); err != nil {
			l.WithError(err).Error("could not create history sheet")
		}

		return map[string]models.HistorySnapshot{}
	}
	if err != nil {
		l.WithError(err).Error("could not read history")
		return map[string]models.HistorySnapshot{}
	}

	if len(rows) <= 1 {
		l.Debug("history is empty")
		return map[string]models.HistorySnapshot{}
	}

	snapshots, err := ParseSnapshots(rows)
	if errors.Is(err, ErrMissingColumns) {
		l.WithError(err).Warn("history sheet is missing required columns")
		return map[string]models.HistorySnapshot{}
	}
	if err != nil {
		l.WithError(err).Error("could not parse history")
		return map[string]models.HistorySnapshot{}
	}

	l.WithFields(logrus.Fields{
		"history.rows":   len(rows) - 1,
		"history.videos": len(snapshots),
	}).Info("loaded previous stats")

	return snapshots
}

// AppendHistory records today's view count for each video.
func (s *Store) AppendHistory(ctx context.Context, videos []models.FormattedVideo) {
	l := ctxlogger.GetLogger(ctx).WithField("history.sheet", HistorySheet)

	if len(videos) == 0 {
		l.Warn("no videos to add to history")
		return
	}

	if err := s.ensureHistorySheet(ctx); err != nil {
		l.WithError(err).Error("could not create history sheet")
		return
	}

	today := timeutil.FormatDay(ctxclock.NowOrZero(ctx).In(s.location))

	rows := make([][]string, len(videos))
	for i, v := range videos {
		rows[i] = []string{v.VideoID, strconv.FormatInt(v.ViewCount, 10), today}
	}

	if err := s.workbook.AppendRows(ctx, HistorySheet, rows); err != nil {
		l.WithError(err).Error("could not append history")
		return
	}

	l.WithFields(logrus.Fields{
		"history.videos": len(rows),
		"history.date":   today,
	}).Info("updated history")
}

// ReplaceCurrentSnapshot overwrites the current sheet with videos.
func (s *Store) ReplaceCurrentSnapshot(ctx context.Context, videos []models.FormattedVideo) {
	l := ctxlogger.GetLogger(ctx).WithField("history.sheet", CurrentSheet)

	if len(videos) == 0 {
		l.Warn("no videos to write to current snapshot")
		return
	}

	rows := make([][]string, 0, len(videos)+1)
	rows = append(rows, append([]string(nil), models.CurrentColumns...))
	for _, v := range videos {
		rows = append(rows, v.Row())
	}

	if err := s.workbook.ReplaceRows(ctx, CurrentSheet, rows); err != nil {
		l.WithError(err).Error("could not replace current snapshot")
		return
	}

	l.WithField("history.videos", len(videos)).Info("updated current snapshot")
}
