package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmetrics/internal/stringutil"
)

type LevelList []logrus.Level

func (a LevelList) MarshalText() ([]byte, error) {
	if len(a) == 0 {
		return []byte("-"), nil
	}

	var s string

	for i, e := range a {
		if i != 0 {
			s += ","
		}

		s += e.String()
	}

	return []byte(s), nil
}

func (a *LevelList) UnmarshalText(d []byte) error {
	if string(d) == "" || string(d) == "-" {
		*a = LevelList{}
		return nil
	}

	var aa LevelList

	for _, e := range strings.Split(string(d), ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}

		l, err := logrus.ParseLevel(e)
		if err != nil {
			return fmt.Errorf("config.LevelList.UnmarshalText: could not parse value as logrus level: %w", err)
		}

		aa = append(aa, l)
	}

	*a = aa

	return nil
}

type LogQueries struct {
	Enabled    bool
	SlowerThan time.Duration
}

func (l LogQueries) String() string {
	if l.Enabled {
		if l.SlowerThan != 0 {
			return ">" + l.SlowerThan.String()
		}

		return "all"
	}

	return "none"
}

func (l LogQueries) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LogQueries) UnmarshalText(d []byte) error {
	s := string(d)

	switch s {
	case "all":
		l.Enabled = true
		l.SlowerThan = 0
		return nil
	case "", "none":
		l.Enabled = false
		l.SlowerThan = 0
		return nil
	default:
		if s[0] == '>' && len(s) > 1 {
			d, err := time.ParseDuration(s[1:])
			if err != nil {
				return fmt.Errorf("config.LogQueries.UnmarshalText: could not parse value as duration: %w", err)
			}
			l.Enabled = true
			l.SlowerThan = d
			return nil
		}

		return fmt.Errorf("config.LogQueries.UnmarshalText: unrecognised input %q; valid options are none, all, or >x where x is a duration", s)
	}
}

func (l *LogQueries) IsZero() bool {
	return !l.Enabled && l.SlowerThan == 0
}

// StringList is a comma separated list on the command line and in the
// environment, and a plain sequence in config files.
type StringList []string

func (a StringList) MarshalText() ([]byte, error) {
	return []byte(strings.Join(a, ",")), nil
}

func (a *StringList) UnmarshalText(d []byte) error {
	*a = StringList(stringutil.SplitList(string(d)))
	return nil
}

type Backend string

const (
	BackendNone     = Backend("none")
	BackendMemory   = Backend("memory")
	BackendSQLite   = Backend("sqlite")
	BackendPostgres = Backend("postgres")
	BackendCSV      = Backend("csv")
	BackendGSheets  = Backend("gsheets")
)

func (b Backend) MarshalText() ([]byte, error) {
	return []byte(b), nil
}

func (b *Backend) UnmarshalText(d []byte) error {
	switch v := Backend(strings.ToLower(strings.TrimSpace(string(d)))); v {
	case "":
		*b = BackendNone
		return nil
	case BackendNone, BackendMemory, BackendSQLite, BackendPostgres, BackendCSV, BackendGSheets:
		*b = v
		return nil
	default:
		return fmt.Errorf("config.Backend.UnmarshalText: unrecognised backend %q; valid options are none, memory, sqlite, postgres, csv, or gsheets", v)
	}
}

// Day is an optional calendar day bound used for search date ranges.
type Day struct {
	Time *time.Time
}

func (d Day) MarshalText() ([]byte, error) {
	if d.Time == nil {
		return []byte(""), nil
	}

	return []byte(d.Time.Format("2006-01-02")), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		d.Time = nil
		return nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = &t
			return nil
		}
	}

	return fmt.Errorf("config.Day.UnmarshalText: could not parse %q as a date", s)
}

type Config struct {
	Config          string        `name:"config" toml:"config" yaml:"config" help:"Config file location."`
	EnvFile         string        `name:"env_file" toml:"env_file" yaml:"env_file" help:"Dotenv file loaded before reading the environment."`
	LogLevel        logrus.Level  `name:"log_level" toml:"log_level" yaml:"log_level" help:"Global log level."`
	LogDebugLevels  LevelList     `name:"log_debug_levels" toml:"log_debug_levels" yaml:"log_debug_levels" help:"Which log levels to include stack data on."`
	LogQueries      LogQueries    `name:"log_queries" toml:"log_queries" yaml:"log_queries" help:"Log SQL queries."`
	LogSORM         bool          `name:"log_sorm" toml:"log_sorm" yaml:"log_sorm" help:"Log SORM queries."`
	LogJSON         bool          `name:"log_json" toml:"log_json" yaml:"log_json" help:"Write logs as JSON."`
	APIKey          string        `name:"youtube_api_key" toml:"youtube_api_key" yaml:"youtube_api_key" help:"YouTube Data API key."`
	APIBaseURL      string        `name:"youtube_api_base_url" toml:"youtube_api_base_url" yaml:"youtube_api_base_url" help:"YouTube Data API base URL."`
	Keywords        StringList    `name:"keywords" toml:"keywords" yaml:"keywords" help:"Search keywords, comma separated."`
	Channels        StringList    `name:"channels" toml:"channels" yaml:"channels" help:"Channel IDs, URLs, or handles to compare, comma separated."`
	MaxResults      int           `name:"max_results" toml:"max_results" yaml:"max_results" help:"Videos fetched per keyword (at most 50)."`
	LatestVideos    int           `name:"latest_videos" toml:"latest_videos" yaml:"latest_videos" help:"Recent videos sampled per channel for averages and cadence."`
	PublishedAfter  Day           `name:"published_after" toml:"published_after" yaml:"published_after" help:"Only search videos published on or after this day."`
	PublishedBefore Day           `name:"published_before" toml:"published_before" yaml:"published_before" help:"Only search videos published before this day."`
	Locale          string        `name:"locale" toml:"locale" yaml:"locale" help:"Relevance language hint for search."`
	AsOf            Day           `name:"as_of" toml:"as_of" yaml:"as_of" help:"Record history as if the run happened on this day, for reruns."`
	Timezone        string        `name:"timezone" toml:"timezone" yaml:"timezone" help:"Timezone for publish-time heatmaps."`
	RequestPause    time.Duration `name:"request_pause" toml:"request_pause" yaml:"request_pause" help:"Pause between batched API requests."`
	ErrorBackoff    time.Duration `name:"error_backoff" toml:"error_backoff" yaml:"error_backoff" help:"Pause after a failed batched API request."`
	CachePath       string        `name:"cache_path" toml:"cache_path" yaml:"cache_path" help:"Location for the channel page cache used by handle resolution; empty disables it."`
	CacheMaxAge     time.Duration `name:"cache_max_age" toml:"cache_max_age" yaml:"cache_max_age" help:"Maximum age of cached channel pages."`
	HistoryBackend  Backend       `name:"history_backend" toml:"history_backend" yaml:"history_backend" help:"Where view history is kept: none, memory, sqlite, postgres, csv, or gsheets."`
	HistoryDatabase string        `name:"history_database" toml:"history_database" yaml:"history_database" help:"SQLite database for the sqlite history backend."`
	HistoryDSN      string        `name:"history_dsn" toml:"history_dsn" yaml:"history_dsn" help:"Connection string for the postgres history backend."`
	HistoryDir      string        `name:"history_dir" toml:"history_dir" yaml:"history_dir" help:"Directory for the csv history backend."`
	SpreadsheetID   string        `name:"spreadsheet_id" toml:"spreadsheet_id" yaml:"spreadsheet_id" help:"Spreadsheet ID for the gsheets history backend."`
	CredentialsFile string        `name:"credentials_file" toml:"credentials_file" yaml:"credentials_file" help:"Service account JSON for the gsheets history backend."`
	OutputPath      string        `name:"output_path" toml:"output_path" yaml:"output_path" help:"CSV export location; empty disables it."`
	S3Bucket        string        `name:"s3_bucket" toml:"s3_bucket" yaml:"s3_bucket" help:"Bucket to upload the CSV export to; empty disables upload."`
	S3Prefix        string        `name:"s3_prefix" toml:"s3_prefix" yaml:"s3_prefix" help:"Key prefix for uploaded exports."`
	S3Region        string        `name:"s3_region" toml:"s3_region" yaml:"s3_region" help:"Region for the export bucket."`
	S3Endpoint      string        `name:"s3_endpoint" toml:"s3_endpoint" yaml:"s3_endpoint" help:"Custom S3-compatible endpoint."`
	S3AccessKey     string        `name:"s3_access_key" toml:"s3_access_key" yaml:"s3_access_key" help:"Static access key; the default AWS credential chain is used when empty."`
	S3SecretKey     string        `name:"s3_secret_key" toml:"s3_secret_key" yaml:"s3_secret_key" help:"Static secret key, paired with s3_access_key."`
}

var (
	ErrMissingAPIKey      = fmt.Errorf("config: youtube_api_key is required")
	ErrMissingInput       = fmt.Errorf("config: at least one of keywords or channels is required")
	ErrMissingHistoryConf = fmt.Errorf("config: history backend is missing required settings")
)

// Validate reports configuration that makes a run impossible. Everything it
// rejects is fatal at startup.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}

	if len(c.Keywords) == 0 && len(c.Channels) == 0 {
		return ErrMissingInput
	}

	switch c.HistoryBackend {
	case BackendSQLite:
		if c.HistoryDatabase == "" {
			return fmt.Errorf("%w: history_database", ErrMissingHistoryConf)
		}
	case BackendPostgres:
		if c.HistoryDSN == "" {
			return fmt.Errorf("%w: history_dsn", ErrMissingHistoryConf)
		}
	case BackendCSV:
		if c.HistoryDir == "" {
			return fmt.Errorf("%w: history_dir", ErrMissingHistoryConf)
		}
	case BackendGSheets:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("%w: spreadsheet_id", ErrMissingHistoryConf)
		}
		if c.CredentialsFile == "" {
			return fmt.Errorf("%w: credentials_file", ErrMissingHistoryConf)
		}
	}

	if c.MaxResults < 0 || c.LatestVideos < 0 {
		return fmt.Errorf("config: max_results and latest_videos must not be negative")
	}

	if _, err := time.LoadLocation(c.Timezone); c.Timezone != "" && err != nil {
		return fmt.Errorf("config: could not load timezone %q: %w", c.Timezone, err)
	}

	return nil
}
