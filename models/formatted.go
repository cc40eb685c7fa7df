package models

import (
	"strconv"
	"time"
)

// FormattedVideo is a video joined with its channel and derived metrics, in
// the shape written to the current snapshot and the CSV export.
//
// RecentViews is views gained since the previous observation, clamped at
// zero. It is persisted as estimated_24h_views but only covers 24 hours when
// runs are a day apart; DeltaWindowDays says how long it actually covers.
type FormattedVideo struct {
	VideoID         string
	Title           string
	ChannelName     string
	ChannelID       string
	URL             string
	PublishedAt     string
	ViewCount       int64
	LikeCount       int64
	CommentCount    int64
	Description     string
	Tags            string
	RawTags         []string
	SubscriberCount int64
	EngagementRatio float64
	DurationSeconds int64
	VideoType       string
	RecentViews     int64
	ViewDelta       int64
	ThumbnailURL    string
	Timestamp       string

	PublishedTime        *time.Time
	PreviousObservedDate *time.Time
	DeltaWindowDays      *int
	HistoryConfidence    HistoryConfidence
}

var CurrentColumns = []string{
	"video_id",
	"title",
	"channel_name",
	"channel_id",
	"url",
	"published_at",
	"view_count",
	"like_count",
	"comment_count",
	"description",
	"tags",
	"subscriber_count",
	"engagement_ratio",
	"duration_seconds",
	"video_type",
	"estimated_24h_views",
	"view_change",
	"thumbnail_url",
	"timestamp",
}

// Row renders v in CurrentColumns order. Engagement is shown to two decimal
// places; the unrounded value stays on the struct.
func (v FormattedVideo) Row() []string {
	return []string{
		v.VideoID,
		v.Title,
		v.ChannelName,
		v.ChannelID,
		v.URL,
		v.PublishedAt,
		strconv.FormatInt(v.ViewCount, 10),
		strconv.FormatInt(v.LikeCount, 10),
		strconv.FormatInt(v.CommentCount, 10),
		v.Description,
		v.Tags,
		strconv.FormatInt(v.SubscriberCount, 10),
		strconv.FormatFloat(v.EngagementRatio, 'f', 2, 64),
		strconv.FormatInt(v.DurationSeconds, 10),
		v.VideoType,
		strconv.FormatInt(v.RecentViews, 10),
		strconv.FormatInt(v.ViewDelta, 10),
		v.ThumbnailURL,
		v.Timestamp,
	}
}
