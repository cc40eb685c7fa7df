package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytmetrics/internal/config"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
	"fknsrs.biz/p/ytmetrics/internal/history"
)

func withConfig(t *testing.T, c config.Config) {
	saved := cfg
	cfg = c
	t.Cleanup(func() { cfg = saved })
}

func TestOpenHistoryUnavailableBackend(t *testing.T) {
	a := assert.New(t)

	notADir := filepath.Join(t.TempDir(), "history")
	if !a.NoError(os.WriteFile(notADir, []byte("x"), 0o644)) {
		return
	}

	withConfig(t, config.Config{HistoryBackend: config.BackendCSV, HistoryDir: notADir})

	logger, hook := test.NewNullLogger()
	ctx := ctxlogger.WithLogger(context.Background(), logger)

	var store *history.Store
	a.NotPanics(func() {
		s, closeStore := openHistory(ctx, time.UTC)
		defer closeStore()
		store = s
	})
	a.Nil(store)

	if entry := hook.LastEntry(); a.NotNil(entry) {
		a.Equal(logrus.ErrorLevel, entry.Level)
		a.Contains(entry.Data, logrus.ErrorKey)
	}
}

func TestOpenHistory(t *testing.T) {
	a := assert.New(t)

	withConfig(t, config.Config{HistoryBackend: config.BackendCSV, HistoryDir: filepath.Join(t.TempDir(), "history")})

	store, closeStore := openHistory(context.Background(), time.UTC)
	defer closeStore()
	a.NotNil(store)

	withConfig(t, config.Config{HistoryBackend: config.BackendNone})

	store, closeStore = openHistory(context.Background(), time.UTC)
	defer closeStore()
	a.Nil(store)
}

func TestSortedKeys(t *testing.T) {
	a := assert.New(t)

	a.Equal([]string{"a", "b", "c"}, sortedKeys(map[string]error{"c": nil, "a": nil, "b": nil}))
	a.Empty(sortedKeys(nil))
}
