// Package pipeline runs one collection pass: search each keyword, enrich
// the results, persist history and write the exports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmetrics/internal/catchpanic"
	"fknsrs.biz/p/ytmetrics/internal/compare"
	"fknsrs.biz/p/ytmetrics/internal/ctxclock"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
	"fknsrs.biz/p/ytmetrics/internal/export"
	"fknsrs.biz/p/ytmetrics/internal/history"
	"fknsrs.biz/p/ytmetrics/internal/metrics"
	"fknsrs.biz/p/ytmetrics/internal/ytapi"
	"fknsrs.biz/p/ytmetrics/models"
)

const (
	DefaultMaxResults   = 50
	DefaultLatestVideos = 5
)

var ErrNoInput = errors.New("pipeline: nothing to process")

type Uploader interface {
	Upload(ctx context.Context, name, filePath string) error
}

type Options struct {
	MaxResults      int
	LatestVideos    int
	PublishedAfter  *time.Time
	PublishedBefore *time.Time
	// OutputPath is a CSV file, or a directory to write a dated file into.
	// Empty disables the export.
	OutputPath string
	// Uploader, when set, receives the CSV after it is written.
	Uploader Uploader
	// Location is used for publish-time heatmaps.
	Location *time.Location
}

type Runner struct {
	client  *ytapi.Client
	history *history.Store
	opts    Options
}

// New returns a runner. store may be nil, in which case no history is read
// or written and every delta is zero.
func New(client *ytapi.Client, store *history.Store, opts Options) *Runner {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.LatestVideos <= 0 {
		opts.LatestVideos = DefaultLatestVideos
	}

	return &Runner{client: client, history: store, opts: opts}
}

type Result struct {
	// Videos is every keyword's output merged, first keyword wins on
	// duplicates.
	Videos     []models.FormattedVideo
	ByKeyword  map[string][]models.FormattedVideo
	Keywords   []compare.KeywordSummary
	Tags       []compare.WordCount
	TitleWords []compare.WordCount
	Heatmap    *compare.Heatmap
	// Failed holds keywords that could not be processed at all.
	Failed     map[string]error
	OutputFile string
}

func cleanInputs(in []string) []string {
	seen := make(map[string]bool)

	var r []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		r = append(r, s)
	}

	return r
}

func uniqueChannelIDs(videos []models.VideoRecord) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		if v.ChannelID != "" {
			ids = append(ids, v.ChannelID)
		}
	}
	return cleanInputs(ids)
}

func (r *Runner) collectKeyword(ctx context.Context, keyword string, previous map[string]models.HistorySnapshot, now time.Time) []models.FormattedVideo {
	l := ctxlogger.GetLogger(ctx)

	ids := r.client.SearchByKeyword(ctx, keyword, r.opts.MaxResults, r.opts.PublishedAfter, r.opts.PublishedBefore)
	if len(ids) == 0 {
		l.Warn("no videos found")
		return nil
	}

	videos := r.client.GetVideoDetails(ctx, ids)
	channels := r.client.GetChannelDetails(ctx, uniqueChannelIDs(videos))

	formatted := metrics.FormatVideoData(videos, channels, previous, now)

	l.WithFields(logrus.Fields{
		"keyword.ids":      len(ids),
		"keyword.videos":   len(videos),
		"keyword.channels": len(channels),
	}).Info("collected keyword")

	return formatted
}

// Run processes keywords in order. A keyword that fails, even by panicking,
// is recorded in Result.Failed and the rest carry on. The returned error is
// only set when there was nothing to do or ctx was cancelled.
func (r *Runner) Run(ctx context.Context, keywords []string) (*Result, error) {
	keywords = cleanInputs(keywords)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("pipeline.Runner.Run: %w", ErrNoInput)
	}

	l := ctxlogger.GetLogger(ctx)

	now := ctxclock.NowOrZero(ctx)
	if now.IsZero() {
		now = time.Now()
	}

	var previous map[string]models.HistorySnapshot
	if r.history != nil {
		previous = r.history.GetPreviousStats(ctx)
	}

	res := &Result{
		ByKeyword: make(map[string][]models.FormattedVideo),
		Failed:    make(map[string]error),
	}

	seen := make(map[string]bool)

	for i, keyword := range keywords {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline.Runner.Run: %w", err)
		}

		kctx, kl := ctxlogger.WithFields(ctx, logrus.Fields{
			"keyword.index": i + 1,
			"keyword.query": keyword,
		})

		videos, err := catchpanic.CatchErr1(func() ([]models.FormattedVideo, error) {
			return r.collectKeyword(kctx, keyword, previous, now), nil
		})
		if err != nil {
			kl.WithError(err).Error("keyword failed")
			res.Failed[keyword] = err
			continue
		}

		res.ByKeyword[keyword] = videos

		for _, v := range videos {
			if seen[v.VideoID] {
				continue
			}
			seen[v.VideoID] = true
			res.Videos = append(res.Videos, v)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline.Runner.Run: %w", err)
	}

	if r.history != nil {
		r.history.AppendHistory(ctx, res.Videos)
		r.history.ReplaceCurrentSnapshot(ctx, res.Videos)
	}

	if len(res.Videos) > 0 {
		res.OutputFile = r.export(ctx, res.Videos, now)
	}

	res.Keywords = compare.CompareKeywords(res.ByKeyword)
	res.Tags = compare.TopTags(res.Videos, compare.DefaultTopN)
	res.TitleWords = compare.TitleKeywords(res.Videos, compare.DefaultTopN)
	res.Heatmap = compare.PublishHeatmap(res.Videos, r.opts.Location)

	l.WithFields(logrus.Fields{
		"run.keywords": len(keywords),
		"run.failed":   len(res.Failed),
		"run.videos":   len(res.Videos),
	}).Info("run finished")

	return res, nil
}

// OutputFileName is the dated file name used when the output path is a
// directory.
func OutputFileName(now time.Time) string {
	return "youtube_data_" + now.Format("20060102") + ".csv"
}

func (r *Runner) outputFile(now time.Time) string {
	p := r.opts.OutputPath

	if strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(filepath.Separator)) {
		return filepath.Join(p, OutputFileName(now))
	}
	if st, err := os.Stat(p); err == nil && st.IsDir() {
		return filepath.Join(p, OutputFileName(now))
	}

	return p
}

// export writes the CSV and uploads it. Failures are logged; the returned
// path is empty when nothing was written.
func (r *Runner) export(ctx context.Context, videos []models.FormattedVideo, now time.Time) string {
	if r.opts.OutputPath == "" {
		return ""
	}

	p := r.outputFile(now)
	l := ctxlogger.GetLogger(ctx).WithField("export.path", p)

	if err := export.WriteFile(p, videos); err != nil {
		l.WithError(err).Error("could not write export")
		return ""
	}

	l.WithField("export.videos", len(videos)).Info("wrote export")

	if r.opts.Uploader != nil {
		if err := catchpanic.CatchErr0(func() error {
			return r.opts.Uploader.Upload(ctx, filepath.Base(p), p)
		}); err != nil {
			l.WithError(err).Error("could not upload export")
		}
	}

	return p
}
