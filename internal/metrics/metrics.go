// Package metrics derives comparable statistics from fetched records.
//
// Every ratio clamps its denominator to at least one and every "views gained"
// figure clamps at zero. These are deliberate defaults that keep output
// defined for hidden or missing counts, not validation.
package metrics

import (
	"sort"
	"time"

	"fknsrs.biz/p/ytmetrics/internal/timeutil"
	"fknsrs.biz/p/ytmetrics/models"
)

const (
	ShortMaxSeconds = 90
	daysPerMonth    = 30
)

func clampOne(n int64) int64 {
	if n < 1 {
		return 1
	}
	return n
}

// EngagementRatio is views per subscriber, with zero subscribers treated as
// one.
func EngagementRatio(views, subscribers int64) float64 {
	return float64(views) / float64(clampOne(subscribers))
}

func VideoType(durationSeconds int64) string {
	if durationSeconds < ShortMaxSeconds {
		return "short"
	}

	return "long"
}

// Delta is the change in views since the previous persisted observation.
// It is not a 24 hour figure unless runs happen to be a day apart; Window
// holds the actual span in whole days.
type Delta struct {
	ViewDelta    int64
	RecentViews  int64
	PreviousDate *time.Time
	WindowDays   *int
	Confidence   models.HistoryConfidence
}

func ViewDelta(current int64, previous *models.HistorySnapshot, now time.Time) Delta {
	if previous == nil {
		return Delta{Confidence: models.ConfidenceNone}
	}

	d := Delta{ViewDelta: current - previous.ViewCount}
	if d.ViewDelta > 0 {
		d.RecentViews = d.ViewDelta
	}

	date := previous.Date
	d.PreviousDate = &date

	d.Confidence = models.ConfidenceStale
	if !now.IsZero() && !date.IsZero() {
		days := timeutil.FloorDays(now, date)
		d.WindowDays = &days

		if days <= 1 {
			d.Confidence = models.ConfidenceFresh
		}
	}

	return d
}

// PostingCadence averages the whole-day gaps between consecutive uploads. It
// needs at least two parseable RFC3339 timestamps and returns nil otherwise;
// nil means unknown, which is different from a zero gap.
func PostingCadence(publishedAt []string) *models.PostingCadence {
	var times []time.Time
	for _, s := range publishedAt {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			times = append(times, t)
		}
	}

	return PostingCadenceFromTimes(times)
}

func PostingCadenceFromTimes(times []time.Time) *models.PostingCadence {
	if len(times) < 2 {
		return nil
	}

	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	total := 0
	for i := 0; i+1 < len(sorted); i++ {
		total += timeutil.FloorDays(sorted[i], sorted[i+1])
	}

	avg := float64(total) / float64(len(sorted)-1)

	denominator := avg
	if denominator < 1 {
		denominator = 1
	}

	return &models.PostingCadence{
		AvgDaysBetweenVideos: avg,
		VideosPerMonth:       daysPerMonth / denominator,
	}
}

// SummarizeChannel averages counts over a sample of the channel's recent
// uploads and derives posting cadence from their publish times.
func SummarizeChannel(channel models.ChannelRecord, latest []models.VideoRecord) models.ChannelSummary {
	s := models.ChannelSummary{
		Channel:    channel,
		SampleSize: len(latest),
	}

	var comments int64
	var times []string

	for _, v := range latest {
		s.TotalViews += v.ViewCount
		s.TotalLikes += v.LikeCount
		comments += v.CommentCount
		times = append(times, v.PublishedAt)

		if v.PublishedTime != nil && (s.LatestUpload == nil || v.PublishedTime.After(*s.LatestUpload)) {
			t := *v.PublishedTime
			s.LatestUpload = &t
		}
	}

	if n := float64(len(latest)); n > 0 {
		s.AvgViews = float64(s.TotalViews) / n
		s.AvgLikes = float64(s.TotalLikes) / n
		s.AvgComments = float64(comments) / n
	}

	s.Cadence = PostingCadence(times)

	return s
}
