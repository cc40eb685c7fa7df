// Package ytapi fetches video and channel records from the YouTube Data API.
//
// Requests are issued one at a time with fixed pauses between batches. The
// client keeps every record it has fetched for as long as it lives, so memory
// grows with the number of unique IDs touched; create one Client per run.
package ytapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmetrics/internal/ctxclock"
	"fknsrs.biz/p/ytmetrics/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
	"fknsrs.biz/p/ytmetrics/internal/normalize"
	"fknsrs.biz/p/ytmetrics/models"
)

const (
	DefaultBaseURL      = "https://www.googleapis.com/youtube/v3"
	DefaultPageBaseURL  = "https://www.youtube.com/"
	DefaultLocale       = "ja"
	DefaultRequestPause = time.Millisecond * 500
	DefaultErrorBackoff = time.Second

	// MaxBatch is the platform's cap on results per search and IDs per
	// detail lookup.
	MaxBatch = 50
)

type Options struct {
	APIKey       string
	BaseURL      string
	PageBaseURL  string
	Locale       string
	RequestPause time.Duration
	ErrorBackoff time.Duration
	// PageHTTPClient fetches channel pages during handle resolution. Data
	// API calls never use it, so it is safe to put a response cache here.
	PageHTTPClient *http.Client
}

type Client struct {
	apiKey       string
	baseURL      string
	pageBaseURL  string
	locale       string
	requestPause time.Duration
	errorBackoff time.Duration
	pageClient   *http.Client

	videos   map[string]models.VideoRecord
	channels map[string]models.ChannelRecord
}

func New(opts Options) *Client {
	c := &Client{
		apiKey:       opts.APIKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		pageBaseURL:  opts.PageBaseURL,
		locale:       opts.Locale,
		requestPause: opts.RequestPause,
		errorBackoff: opts.ErrorBackoff,
		pageClient:   opts.PageHTTPClient,
		videos:       make(map[string]models.VideoRecord),
		channels:     make(map[string]models.ChannelRecord),
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pageBaseURL == "" {
		c.pageBaseURL = DefaultPageBaseURL
	}
	if !strings.HasSuffix(c.pageBaseURL, "/") {
		c.pageBaseURL += "/"
	}
	if c.locale == "" {
		c.locale = DefaultLocale
	}
	if c.requestPause <= 0 {
		c.requestPause = DefaultRequestPause
	}
	if c.errorBackoff <= 0 {
		c.errorBackoff = DefaultErrorBackoff
	}

	return c
}

// CacheSize reports how many videos and channels the client is holding.
func (c *Client) CacheSize() (videos, channels int) {
	return len(c.videos), len(c.channels)
}

type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("ytapi: status %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}

	return fmt.Sprintf("ytapi: status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*gabs.Container, error) {
	params.Set("key", c.apiKey)

	u := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.get: %w", err)
	}

	res, err := ctxhttpclient.GetHTTPClient(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.get: could not perform request: %w", err)
	}
	defer res.Body.Close()

	body, err := gabs.ParseJSONBuffer(res.Body)
	if res.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		if err == nil {
			if m, ok := body.Path("error.message").Data().(string); ok {
				apiErr.Message = m
			}
			if errs := body.Path("error.errors").Children(); len(errs) > 0 {
				apiErr.Reason, _ = errs[0].Path("reason").Data().(string)
			}
		}

		return nil, fmt.Errorf("ytapi.Client.get: %s: %w", endpoint, apiErr)
	}
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.get: could not decode response: %w", err)
	}

	return body, nil
}

func clampBatch(n int) int {
	if n <= 0 || n > MaxBatch {
		return MaxBatch
	}

	return n
}

// SearchByKeyword returns the IDs of the most viewed videos matching query,
// at most 50. Any failure is logged and yields an empty list so that one bad
// keyword does not stop a batch.
func (c *Client) SearchByKeyword(ctx context.Context, query string, limit int, publishedAfter, publishedBefore *time.Time) []string {
	l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"keyword.query": query,
		"keyword.limit": limit,
	})

	params := url.Values{
		"part":              {"id"},
		"q":                 {query},
		"type":              {"video"},
		"order":             {"viewCount"},
		"relevanceLanguage": {c.locale},
		"maxResults":        {strconv.Itoa(clampBatch(limit))},
	}

	if publishedAfter != nil {
		params.Set("publishedAfter", publishedAfter.UTC().Format(time.RFC3339))
	}
	if publishedBefore != nil {
		params.Set("publishedBefore", publishedBefore.UTC().Format(time.RFC3339))
	}

	ids, err := c.search(ctx, params)
	if err != nil {
		l.WithError(err).Error("keyword search failed")
		return []string{}
	}

	l.WithField("keyword.results", len(ids)).Debug("keyword search finished")

	return ids
}

func (c *Client) search(ctx context.Context, params url.Values) ([]string, error) {
	body, err := c.get(ctx, "search", params)
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for _, item := range body.S("items").Children() {
		if id := normalize.SearchResultID(item); id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func chunk(ids []string, size int) [][]string {
	var r [][]string

	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}

		r = append(r, ids[:n])
		ids = ids[n:]
	}

	return r
}

// GetVideoDetails looks up ids in batches of 50, skipping any already held.
// Results follow the input order; IDs that could not be fetched are left out.
// A failed batch is logged and followed by a short backoff but not retried.
func (c *Client) GetVideoDetails(ctx context.Context, ids []string) []models.VideoRecord {
	l := ctxlogger.GetLogger(ctx)

	result := make([]models.VideoRecord, 0, len(ids))
	requested := false

	for _, part := range chunk(ids, MaxBatch) {
		var missing []string
		seen := make(map[string]bool)

		for _, id := range part {
			if _, ok := c.videos[id]; ok || seen[id] || id == "" {
				continue
			}

			seen[id] = true
			missing = append(missing, id)
		}

		if len(missing) > 0 {
			if requested {
				if err := ctxclock.Sleep(ctx, c.requestPause); err != nil {
					l.WithError(err).Warn("video lookup interrupted")
					return result
				}
			}
			requested = true

			if err := c.fetchVideos(ctx, missing); err != nil {
				l.WithError(err).WithField("video.chunk_size", len(missing)).Error("video lookup failed")

				if err := ctxclock.Sleep(ctx, c.errorBackoff); err != nil {
					return result
				}
			}
		}

		for _, id := range part {
			if v, ok := c.videos[id]; ok {
				result = append(result, v)
			}
		}
	}

	return result
}

func (c *Client) fetchVideos(ctx context.Context, ids []string) error {
	body, err := c.get(ctx, "videos", url.Values{
		"part":       {"snippet,statistics,contentDetails"},
		"id":         {strings.Join(ids, ",")},
		"maxResults": {strconv.Itoa(MaxBatch)},
	})
	if err != nil {
		return err
	}

	for _, item := range body.S("items").Children() {
		if v := normalize.VideoFromJSON(item); v.ID != "" {
			c.videos[v.ID] = v
		}
	}

	return nil
}

// GetChannelDetails looks up the distinct ids not already held, in batches
// of 50. The result only includes channels that are known after the attempt;
// failed or unknown IDs are simply absent.
func (c *Client) GetChannelDetails(ctx context.Context, ids []string) map[string]models.ChannelRecord {
	l := ctxlogger.GetLogger(ctx)

	var unique, missing []string
	seen := make(map[string]bool)

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)

		if _, ok := c.channels[id]; !ok {
			missing = append(missing, id)
		}
	}

	for i, part := range chunk(missing, MaxBatch) {
		if i > 0 {
			if err := ctxclock.Sleep(ctx, c.requestPause); err != nil {
				l.WithError(err).Warn("channel lookup interrupted")
				break
			}
		}

		if err := c.fetchChannels(ctx, part); err != nil {
			l.WithError(err).WithField("channel.chunk_size", len(part)).Error("channel lookup failed")
		}
	}

	result := make(map[string]models.ChannelRecord, len(unique))
	for _, id := range unique {
		if ch, ok := c.channels[id]; ok {
			result[id] = ch
		}
	}

	return result
}

func (c *Client) fetchChannels(ctx context.Context, ids []string) error {
	body, err := c.get(ctx, "channels", url.Values{
		"part":       {"snippet,statistics"},
		"id":         {strings.Join(ids, ",")},
		"maxResults": {strconv.Itoa(MaxBatch)},
	})
	if err != nil {
		return err
	}

	for _, item := range body.S("items").Children() {
		if ch := normalize.ChannelFromJSON(item); ch.ID != "" {
			c.channels[ch.ID] = ch
		}
	}

	return nil
}

// GetLatestVideosForChannel returns details for the channel's n most recent
// uploads, newest first.
func (c *Client) GetLatestVideosForChannel(ctx context.Context, channelID string, n int) []models.VideoRecord {
	l := ctxlogger.GetLogger(ctx).WithField("channel.id", channelID)

	ids, err := c.search(ctx, url.Values{
		"part":       {"id"},
		"channelId":  {channelID},
		"type":       {"video"},
		"order":      {"date"},
		"maxResults": {strconv.Itoa(clampBatch(n))},
	})
	if err != nil {
		l.WithError(err).Error("latest video search failed")
		return []models.VideoRecord{}
	}

	return c.GetVideoDetails(ctx, ids)
}
