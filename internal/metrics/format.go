package metrics

import (
	"time"

	"fknsrs.biz/p/ytmetrics/internal/normalize"
	"fknsrs.biz/p/ytmetrics/internal/stringutil"
	"fknsrs.biz/p/ytmetrics/internal/timeutil"
	"fknsrs.biz/p/ytmetrics/models"
)

const (
	descriptionLimit = 100
	tagLimit         = 5
	timestampFormat  = "2006-01-02 15:04:05"
)

// FormatVideoData joins each video with its channel and derives its metrics.
// A video whose channel is missing from channels gets a subscriber count of
// one so that its engagement ratio stays defined. previous may be nil, in
// which case every delta is zero.
func FormatVideoData(videos []models.VideoRecord, channels map[string]models.ChannelRecord, previous map[string]models.HistorySnapshot, now time.Time) []models.FormattedVideo {
	r := make([]models.FormattedVideo, 0, len(videos))

	for _, v := range videos {
		var subscribers int64 = 1
		channelName := v.ChannelTitle

		if ch, ok := channels[v.ChannelID]; ok {
			subscribers = ch.SubscriberCount
			if ch.Title != "" {
				channelName = ch.Title
			}
		}

		var prev *models.HistorySnapshot
		if p, ok := previous[v.ID]; ok {
			prev = &p
		}

		delta := ViewDelta(v.ViewCount, prev, now)
		duration := normalize.ParseDuration(v.RawDuration)

		publishedAt := v.PublishedAt
		if v.PublishedTime != nil {
			publishedAt = timeutil.FormatDay(*v.PublishedTime)
		}

		description := v.Description
		if description != "" {
			description = stringutil.Truncate(description, descriptionLimit, "...")
		}

		r = append(r, models.FormattedVideo{
			VideoID:         v.ID,
			Title:           v.Title,
			ChannelName:     channelName,
			ChannelID:       v.ChannelID,
			URL:             v.URL(),
			PublishedAt:     publishedAt,
			ViewCount:       v.ViewCount,
			LikeCount:       v.LikeCount,
			CommentCount:    v.CommentCount,
			Description:     description,
			Tags:            stringutil.JoinLimit(v.Tags, tagLimit, ", ", "..."),
			RawTags:         v.Tags,
			SubscriberCount: subscribers,
			EngagementRatio: EngagementRatio(v.ViewCount, subscribers),
			DurationSeconds: duration,
			VideoType:       VideoType(duration),
			RecentViews:     delta.RecentViews,
			ViewDelta:       delta.ViewDelta,
			ThumbnailURL:    normalize.BestThumbnail(v.Thumbnails),
			Timestamp:       now.Format(timestampFormat),

			PublishedTime:        v.PublishedTime,
			PreviousObservedDate: delta.PreviousDate,
			DeltaWindowDays:      delta.WindowDays,
			HistoryConfidence:    delta.Confidence,
		})
	}

	return r
}
