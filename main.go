package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"fknsrs.biz/p/sorm"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/subosito/gotenv"
	"go.etcd.io/bbolt"

	"fknsrs.biz/p/ytmetrics/internal/config"
	"fknsrs.biz/p/ytmetrics/internal/configreader"
	"fknsrs.biz/p/ytmetrics/internal/ctxclock"
	"fknsrs.biz/p/ytmetrics/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
	"fknsrs.biz/p/ytmetrics/internal/export"
	"fknsrs.biz/p/ytmetrics/internal/history"
	"fknsrs.biz/p/ytmetrics/internal/httpcache"
	"fknsrs.biz/p/ytmetrics/internal/logging"
	"fknsrs.biz/p/ytmetrics/internal/pipeline"
	"fknsrs.biz/p/ytmetrics/internal/sheets"
	"fknsrs.biz/p/ytmetrics/internal/sheets/csvbook"
	"fknsrs.biz/p/ytmetrics/internal/sheets/gsheets"
	"fknsrs.biz/p/ytmetrics/internal/sheets/pgbook"
	"fknsrs.biz/p/ytmetrics/internal/sheets/sqlitebook"
	"fknsrs.biz/p/ytmetrics/internal/sqlitelogger"
	"fknsrs.biz/p/ytmetrics/internal/ytapi"
)

func init() {
	sorm.SetParameterPrefix("?")
}

var cfg = config.Config{
	EnvFile:         ".env",
	LogLevel:        logrus.InfoLevel,
	LogDebugLevels:  config.LevelList{logrus.DebugLevel, logrus.TraceLevel},
	LogQueries:      config.LogQueries{Enabled: true, SlowerThan: time.Millisecond * 100},
	LogSORM:         false,
	MaxResults:      pipeline.DefaultMaxResults,
	LatestVideos:    pipeline.DefaultLatestVideos,
	Locale:          ytapi.DefaultLocale,
	Timezone:        "Asia/Tokyo",
	RequestPause:    ytapi.DefaultRequestPause,
	ErrorBackoff:    ytapi.DefaultErrorBackoff,
	CachePath:       "cache.db",
	CacheMaxAge:     time.Hour,
	HistoryBackend:  config.BackendSQLite,
	HistoryDatabase: "history.db",
	OutputPath:      "exports/",
}

func init() {
	for _, configPath := range []string{"config.toml", "config.yaml", "config.yml"} {
		if st, err := os.Stat(configPath); err == nil && st != nil && !st.IsDir() {
			cfg.Config = configPath
		}
	}
}

type simpleQueryLogger struct {
	logger *logrus.Logger
}

func (s *simpleQueryLogger) LogQuery(query string, args []interface{}) {
	fields := logrus.Fields{
		"db.query":      query,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	s.logger.WithFields(fields).Info("sorm query start")
}

func (s *simpleQueryLogger) LogQueryAfter(query string, args []interface{}, duration time.Duration, err error) {
	fields := logrus.Fields{
		"db.query":      query,
		"db.duration":   duration,
		"db.error":      err,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	s.logger.WithFields(fields).Info("sorm query finish")
}

func fileExists(name string) bool {
	st, err := os.Stat(name)
	return err == nil && st != nil && !st.IsDir()
}

func readConfig() error {
	if err := configreader.Read(os.Args[0], os.Args[1:], os.Environ(), &cfg); err != nil {
		return err
	}

	// The env file can itself be configured, so values it provides are only
	// visible after a second read.
	if cfg.EnvFile != "" && fileExists(cfg.EnvFile) {
		if err := gotenv.Load(cfg.EnvFile); err != nil {
			return fmt.Errorf("could not load env file %q: %w", cfg.EnvFile, err)
		}

		if err := configreader.Read(os.Args[0], os.Args[1:], os.Environ(), &cfg); err != nil {
			return err
		}
	}

	return cfg.Validate()
}

func main() {
	if err := readConfig(); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx = ctxclock.WithClock(ctx, ctxclock.NewRealClock())

	logger := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		StackLevels: cfg.LogDebugLevels,
		JSON:        cfg.LogJSON,
	})

	logger.WithFields(logrus.Fields{
		"config.config":           cfg.Config,
		"config.env_file":         cfg.EnvFile,
		"config.log_level":        cfg.LogLevel,
		"config.log_debug_levels": cfg.LogDebugLevels,
		"config.log_queries":      cfg.LogQueries,
		"config.log_sorm":         cfg.LogSORM,
		"config.keywords":         cfg.Keywords,
		"config.channels":         cfg.Channels,
		"config.max_results":      cfg.MaxResults,
		"config.latest_videos":    cfg.LatestVideos,
		"config.locale":           cfg.Locale,
		"config.timezone":         cfg.Timezone,
		"config.cache_path":       cfg.CachePath,
		"config.cache_max_age":    cfg.CacheMaxAge,
		"config.history_backend":  cfg.HistoryBackend,
		"config.output_path":      cfg.OutputPath,
		"config.s3_bucket":        cfg.S3Bucket,
	}).Info("program starting")

	if cfg.LogSORM {
		sorm.SetQueryLogger(&simpleQueryLogger{logger})
	}

	ctx = ctxlogger.WithLogger(ctx, logger)

	ctx = ctxhttpclient.WithHTTPClient(ctx, &http.Client{Timeout: time.Second * 30})

	// Data API responses are never cached across runs; only channel pages
	// fetched for handle resolution are.
	pageClient := &http.Client{Timeout: time.Second * 30}

	if cfg.CachePath != "" {
		cacheDB, err := bbolt.Open(cfg.CachePath, 0600, &bbolt.Options{Timeout: time.Second * 5})
		if err != nil {
			panic(err)
		}
		defer cacheDB.Close()

		pageClient.Transport = httpcache.NewTransport(nil, httpcache.NewBBoltStorage(cacheDB), cfg.CacheMaxAge)
	}

	loc := time.Local
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		}
	}

	if cfg.AsOf.Time != nil {
		t := cfg.AsOf.Time
		ctx = ctxclock.WithClock(ctx, ctxclock.NewStaticClock(time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, loc)))
	}

	store, closeStore := openHistory(ctx, loc)
	defer closeStore()

	opts := pipeline.Options{
		MaxResults:      cfg.MaxResults,
		LatestVideos:    cfg.LatestVideos,
		PublishedAfter:  cfg.PublishedAfter.Time,
		PublishedBefore: cfg.PublishedBefore.Time,
		OutputPath:      cfg.OutputPath,
		Location:        loc,
	}

	if cfg.S3Bucket != "" {
		uploader, err := export.NewUploader(ctx, export.UploaderOptions{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			logger.WithError(err).Error("could not set up export upload; continuing without it")
		} else {
			opts.Uploader = uploader
		}
	}

	client := ytapi.New(ytapi.Options{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.APIBaseURL,
		Locale:         cfg.Locale,
		RequestPause:   cfg.RequestPause,
		ErrorBackoff:   cfg.ErrorBackoff,
		PageHTTPClient: pageClient,
	})

	runner := pipeline.New(client, store, opts)

	if len(cfg.Keywords) > 0 {
		res, err := runner.Run(ctx, cfg.Keywords)
		if err != nil {
			panic(err)
		}

		printKeywords(res)
	}

	if len(cfg.Channels) > 0 {
		rep, err := runner.ChannelReport(ctx, cfg.Channels, cfg.LatestVideos)
		if err != nil {
			panic(err)
		}

		printChannels(rep)
	}

	videos, channels := client.CacheSize()

	logger.WithFields(logrus.Fields{
		"cache.videos":   videos,
		"cache.channels": channels,
	}).Info("program finished")
}

// openHistory opens the configured history backend. A backend that cannot be
// opened is logged and the run continues without history.
func openHistory(ctx context.Context, loc *time.Location) (*history.Store, func()) {
	workbook, closeWorkbook, err := openWorkbook(ctx)
	if err != nil {
		ctxlogger.GetLogger(ctx).WithError(err).WithField("history.backend", cfg.HistoryBackend).Error("could not open history backend; continuing without history")
		return nil, func() {}
	}

	if workbook == nil {
		return nil, closeWorkbook
	}

	return history.New(workbook, loc), closeWorkbook
}

func openWorkbook(ctx context.Context) (sheets.Workbook, func(), error) {
	noop := func() {}

	switch cfg.HistoryBackend {
	case config.BackendMemory:
		return sheets.NewMemory(), noop, nil
	case config.BackendSQLite:
		dbDriver := "sqlite3"

		if !cfg.LogQueries.IsZero() {
			dbDriver = "sqlite3:logged"

			sql.Register(dbDriver, sqlitelogger.New(
				&sqlite3.SQLiteDriver{},
				&sqlitelogger.BasicFilter{
					LogSlowerThan: cfg.LogQueries.SlowerThan,
					IgnorePackageStackFrames: []string{
						// standard library
						"database/sql",
						"runtime",
						// libraries
						"fknsrs.biz/p/sorm",
						"github.com/shogo82148/go-sql-proxy",
						// middleware
						"fknsrs.biz/p/ytmetrics/internal/ctxdb",
						"fknsrs.biz/p/ytmetrics/internal/sqlitelogger",
					},
				},
			))
		}

		db, err := sql.Open(dbDriver, cfg.HistoryDatabase)
		if err != nil {
			return nil, nil, err
		}

		w, err := sqlitebook.Open(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}

		return w, func() { db.Close() }, nil
	case config.BackendPostgres:
		w, err := pgbook.Connect(ctx, cfg.HistoryDSN)
		if err != nil {
			return nil, nil, err
		}

		return w, w.Close, nil
	case config.BackendCSV:
		w, err := csvbook.Open(cfg.HistoryDir)
		if err != nil {
			return nil, nil, err
		}

		return w, noop, nil
	case config.BackendGSheets:
		client, err := gsheets.ClientFromCredentialsFile(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}

		return gsheets.New(gsheets.Options{SpreadsheetID: cfg.SpreadsheetID, HTTPClient: client}), noop, nil
	default:
		return nil, noop, nil
	}
}

func printKeywords(res *pipeline.Result) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "rank\tkeyword\tvideos\ttotal views\tmean views\tmedian views\tmean engagement\tmean recent views\tshorts")
	for _, k := range res.Keywords {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.0f\t%.0f\t%.2f\t%.0f\t%.0f%%\n",
			k.Rank, k.Keyword, k.VideoCount, k.TotalViews, k.MeanViews, k.MedianViews, k.MeanEngagement, k.MeanRecentViews, k.ShortShare*100)
	}

	for _, keyword := range sortedKeys(res.Failed) {
		fmt.Fprintf(tw, "-\t%s\tfailed: %s\n", keyword, res.Failed[keyword])
	}

	if len(res.Tags) > 0 {
		tags := make([]string, 0, len(res.Tags))
		for _, t := range res.Tags {
			tags = append(tags, fmt.Sprintf("%s (%d)", t.Word, t.Count))
		}
		fmt.Fprintf(tw, "\ntop tags:\t%s\n", strings.Join(tags, ", "))
	}

	if day, hour, ok := res.Heatmap.Busiest(); ok {
		fmt.Fprintf(tw, "busiest upload slot:\t%s %02d:00 (%s)\n", day, hour, res.Heatmap.Location)
	}

	if res.OutputFile != "" {
		fmt.Fprintf(tw, "export:\t%s\n", res.OutputFile)
	}
}

func printChannels(rep *pipeline.ChannelReport) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "rank\tchannel\tsubscribers\tvideos\tavg views/video\tsample avg views\tlikes/100 views\tvideos/month")
	for _, c := range rep.Comparisons {
		perMonth := "-"
		if c.Cadence != nil {
			perMonth = fmt.Sprintf("%.1f", c.Cadence.VideosPerMonth)
		}

		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.0f\t%.0f\t%.2f\t%s\n",
			c.Rank, c.ChannelName, c.SubscriberCount, c.VideoCount, c.AvgViewsPerVideo, c.AvgViews, c.EngagementRatio, perMonth)
	}

	for _, input := range sortedKeys(rep.Failed) {
		fmt.Fprintf(tw, "-\t%s\tfailed: %s\n", input, rep.Failed[input])
	}
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
