package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytmetrics/models"
)

func makeVideo(id, channelID string, views int64) models.VideoRecord {
	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	return models.VideoRecord{
		ID:            id,
		Title:         "title " + id,
		ChannelID:     channelID,
		ChannelTitle:  "snippet channel",
		PublishedAt:   published.Format(time.RFC3339),
		PublishedTime: &published,
		ViewCount:     views,
		RawDuration:   "PT1M20S",
		Tags:          []string{"a", "b", "c", "d", "e", "f"},
		Description:   strings.Repeat("x", 120),
		Thumbnails:    map[string]string{"default": "d.jpg", "maxres": "m.jpg"},
	}
}

func TestFormatVideoDataWithoutHistory(t *testing.T) {
	a := assert.New(t)

	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

	videos := []models.VideoRecord{makeVideo("v1", "UC1", 500), makeVideo("v2", "UC2", 700)}
	channels := map[string]models.ChannelRecord{"UC1": {ID: "UC1", Title: "Channel One", SubscriberCount: 0}}

	out := FormatVideoData(videos, channels, nil, now)
	if !a.Len(out, 2) {
		return
	}

	for _, v := range out {
		a.Equal(int64(0), v.ViewDelta)
		a.Equal(int64(0), v.RecentViews)
		a.Equal(models.ConfidenceNone, v.HistoryConfidence)
	}

	v1 := out[0]
	a.Equal("v1", v1.VideoID)
	a.Equal("Channel One", v1.ChannelName)
	a.Equal(int64(0), v1.SubscriberCount)
	a.InDelta(500, v1.EngagementRatio, 1e-9)
	a.Equal(int64(80), v1.DurationSeconds)
	a.Equal("short", v1.VideoType)
	a.Equal("2024-01-02", v1.PublishedAt)
	a.Equal("https://www.youtube.com/watch?v=v1", v1.URL)
	a.Equal("a, b, c, d, e...", v1.Tags)
	a.Equal(strings.Repeat("x", 100)+"...", v1.Description)
	a.Equal("m.jpg", v1.ThumbnailURL)
	a.Equal("2024-01-03 10:00:00", v1.Timestamp)

	v2 := out[1]
	a.Equal("snippet channel", v2.ChannelName)
	a.Equal(int64(1), v2.SubscriberCount)
	a.InDelta(700, v2.EngagementRatio, 1e-9)
}

func TestFormatVideoDataWithHistory(t *testing.T) {
	a := assert.New(t)

	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	videos := []models.VideoRecord{makeVideo("up", "UC1", 150), makeVideo("down", "UC1", 80), makeVideo("new", "UC1", 10)}
	channels := map[string]models.ChannelRecord{"UC1": {ID: "UC1", Title: "Channel", SubscriberCount: 100}}
	previous := map[string]models.HistorySnapshot{
		"up":   {ViewCount: 100, Date: day},
		"down": {ViewCount: 100, Date: day},
	}

	out := FormatVideoData(videos, channels, previous, now)
	if !a.Len(out, 3) {
		return
	}

	a.Equal(int64(50), out[0].ViewDelta)
	a.Equal(int64(50), out[0].RecentViews)
	a.Equal(models.ConfidenceFresh, out[0].HistoryConfidence)

	a.Equal(int64(-20), out[1].ViewDelta)
	a.Equal(int64(0), out[1].RecentViews)

	a.Equal(int64(0), out[2].ViewDelta)
	a.Equal(int64(0), out[2].RecentViews)
	a.Nil(out[2].PreviousObservedDate)
}

func TestFormatVideoDataFallbacks(t *testing.T) {
	a := assert.New(t)

	v := models.VideoRecord{ID: "bad", PublishedAt: "sometime", RawDuration: "???"}

	out := FormatVideoData([]models.VideoRecord{v}, nil, nil, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	if a.Len(out, 1) {
		a.Equal("sometime", out[0].PublishedAt)
		a.Equal(int64(0), out[0].DurationSeconds)
		a.Equal("short", out[0].VideoType)
		a.Equal("", out[0].Tags)
		a.Equal("", out[0].Description)
		a.Equal(int64(1), out[0].SubscriberCount)
	}
}
