package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytmetrics/internal/ctxclock"
	"fknsrs.biz/p/ytmetrics/internal/history"
	"fknsrs.biz/p/ytmetrics/internal/sheets"
	"fknsrs.biz/p/ytmetrics/internal/ytapi"
)

type fakeVideo struct {
	channel   string
	views     int
	published string
	duration  string
	tags      []string
}

type fakeAPI struct {
	m        sync.Mutex
	searches map[string][]string
	uploads  map[string][]string
	videos   map[string]fakeVideo
	subs     map[string]int
	queries  []string
}

func (f *fakeAPI) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	f.m.Lock()
	defer f.m.Unlock()

	q := r.URL.Query()

	var items []interface{}

	switch strings.TrimPrefix(r.URL.Path, "/") {
	case "search":
		var found []string
		if ch := q.Get("channelId"); ch != "" {
			found = f.uploads[ch]
		} else {
			f.queries = append(f.queries, q.Get("q"))
			found = f.searches[q.Get("q")]
		}
		for _, id := range found {
			items = append(items, map[string]interface{}{"id": map[string]interface{}{"kind": "youtube#video", "videoId": id}})
		}
	case "videos":
		for _, id := range strings.Split(q.Get("id"), ",") {
			v, ok := f.videos[id]
			if !ok {
				continue
			}
			items = append(items, map[string]interface{}{
				"id": id,
				"snippet": map[string]interface{}{
					"title":        "video " + id,
					"channelId":    v.channel,
					"channelTitle": "channel " + v.channel,
					"publishedAt":  v.published,
					"tags":         v.tags,
				},
				"statistics":     map[string]interface{}{"viewCount": fmt.Sprint(v.views), "likeCount": "1"},
				"contentDetails": map[string]interface{}{"duration": v.duration},
			})
		}
	case "channels":
		for _, id := range strings.Split(q.Get("id"), ",") {
			subs, ok := f.subs[id]
			if !ok {
				continue
			}
			items = append(items, map[string]interface{}{
				"id":      id,
				"snippet": map[string]interface{}{"title": "channel " + id},
				"statistics": map[string]interface{}{
					"subscriberCount": fmt.Sprint(subs),
					"videoCount":      "2",
					"viewCount":       "1000",
				},
			})
		}
	default:
		rw.WriteHeader(http.StatusNotFound)
		return
	}

	json.NewEncoder(rw).Encode(map[string]interface{}{"items": items})
}

const (
	chanA = "UCaaaaaaaaaaaaaaaaaaaaaa"
	chanB = "UCbbbbbbbbbbbbbbbbbbbbbb"
)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		searches: map[string][]string{
			"cats": {"v1", "v2"},
			"dogs": {"v2", "v3"},
		},
		uploads: map[string][]string{
			chanA: {"v1", "v2"},
			chanB: {"v3"},
		},
		videos: map[string]fakeVideo{
			"v1": {channel: chanA, views: 100, published: "2024-01-01T03:00:00Z", duration: "PT30S", tags: []string{"cat", "cute"}},
			"v2": {channel: chanA, views: 300, published: "2023-12-25T03:00:00Z", duration: "PT10M", tags: []string{"cat"}},
			"v3": {channel: chanB, views: 50, published: "2023-12-30T03:00:00Z", duration: "PT2M"},
		},
		subs: map[string]int{chanA: 50, chanB: 500},
	}
}

type recordingUploader struct {
	names []string
	err   error
}

func (u *recordingUploader) Upload(ctx context.Context, name, filePath string) error {
	u.names = append(u.names, name)
	return u.err
}

func setup(t *testing.T, api *fakeAPI) (context.Context, *ytapi.Client) {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	clock := ctxclock.NewManualClock(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC))
	ctx := ctxclock.WithClock(context.Background(), clock)

	return ctx, ytapi.New(ytapi.Options{APIKey: "k", BaseURL: srv.URL, PageBaseURL: srv.URL})
}

func TestRun(t *testing.T) {
	a := assert.New(t)

	ctx, client := setup(t, newFakeAPI())

	w := sheets.NewMemory()
	w.Set(history.HistorySheet, [][]string{history.HistoryColumns, {"v1", "60", "2024-01-02"}})

	dir := t.TempDir()
	up := &recordingUploader{err: errors.New("upload failed")}

	r := New(client, history.New(w, nil), Options{OutputPath: dir + "/", Uploader: up})

	res, err := r.Run(ctx, []string{"cats", " dogs ", "cats", ""})
	require.NoError(t, err)

	a.Empty(res.Failed)
	a.Len(res.ByKeyword["cats"], 2)
	a.Len(res.ByKeyword["dogs"], 2)

	var ids []string
	for _, v := range res.Videos {
		ids = append(ids, v.VideoID)
	}
	a.Equal([]string{"v1", "v2", "v3"}, ids)

	v1 := res.Videos[0]
	a.Equal(int64(40), v1.ViewDelta)
	a.Equal(int64(40), v1.RecentViews)
	a.Equal(int64(50), v1.SubscriberCount)
	a.Equal(2.0, v1.EngagementRatio)
	a.Equal("short", v1.VideoType)
	a.Equal(int64(0), res.Videos[1].ViewDelta)

	rows, err := w.ReadRows(ctx, history.HistorySheet)
	a.NoError(err)
	a.Equal([]string{"v3", "50", "2024-01-03"}, rows[len(rows)-1])
	a.Len(rows, 5)

	current, err := w.ReadRows(ctx, history.CurrentSheet)
	a.NoError(err)
	a.Len(current, 4)

	a.Equal(filepath.Join(dir, "youtube_data_20240103.csv"), res.OutputFile)
	_, err = os.Stat(res.OutputFile)
	a.NoError(err)
	a.Equal([]string{"youtube_data_20240103.csv"}, up.names)

	if a.Len(res.Keywords, 2) {
		a.Equal("cats", res.Keywords[0].Keyword)
		a.Equal(int64(400), res.Keywords[0].TotalViews)
	}

	if a.NotEmpty(res.Tags) {
		a.Equal("cat", res.Tags[0].Word)
		a.Equal(2, res.Tags[0].Count)
	}

	a.Equal(3, res.Heatmap.Total)
}

func TestRunNoHistoryNoExport(t *testing.T) {
	a := assert.New(t)

	ctx, client := setup(t, newFakeAPI())

	res, err := New(client, nil, Options{}).Run(ctx, []string{"dogs", "nothing"})
	require.NoError(t, err)

	a.Len(res.Videos, 2)
	a.Empty(res.ByKeyword["nothing"])
	a.Equal("", res.OutputFile)
}

func TestRunIsolatesPanics(t *testing.T) {
	a := assert.New(t)

	res, err := New(nil, nil, Options{}).Run(context.Background(), []string{"boom"})
	a.NoError(err)
	a.Contains(res.Failed, "boom")
	a.Empty(res.Videos)
}

func TestRunErrors(t *testing.T) {
	a := assert.New(t)

	_, err := New(nil, nil, Options{}).Run(context.Background(), []string{" "})
	a.ErrorIs(err, ErrNoInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(nil, nil, Options{}).Run(ctx, []string{"cats"})
	a.ErrorIs(err, context.Canceled)
}

func TestOutputFile(t *testing.T) {
	a := assert.New(t)

	now := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	a.Equal(filepath.Join(dir, "youtube_data_20240506.csv"), New(nil, nil, Options{OutputPath: dir}).outputFile(now))
	a.Equal(filepath.Join(dir, "x.csv"), New(nil, nil, Options{OutputPath: filepath.Join(dir, "x.csv")}).outputFile(now))
}

func TestChannelReport(t *testing.T) {
	a := assert.New(t)

	ctx, client := setup(t, newFakeAPI())

	rep, err := New(client, nil, Options{}).ChannelReport(ctx, []string{
		chanA,
		"https://www.youtube.com/channel/" + chanB,
		"UCzzzzzzzzzzzzzzzzzzzzzz",
		"not a channel",
	}, 0)
	require.NoError(t, err)

	a.Len(rep.Failed, 2)
	a.Contains(rep.Failed, "not a channel")
	a.Contains(rep.Failed, "UCzzzzzzzzzzzzzzzzzzzzzz")

	if a.Len(rep.Comparisons, 2) {
		a.Equal(chanB, rep.Comparisons[0].ChannelID)
		a.Equal(chanA, rep.Comparisons[1].ChannelID)
		a.Equal(200.0, rep.Comparisons[1].AvgViews)
		if a.NotNil(rep.Comparisons[1].Cadence) {
			a.Equal(7.0, rep.Comparisons[1].Cadence.AvgDaysBetweenVideos)
		}
		a.Nil(rep.Comparisons[0].Cadence)
	}
}
