// Package compare aggregates formatted videos and channel summaries into
// side-by-side comparisons.
package compare

import (
	"sort"

	"github.com/montanaflynn/stats"

	"fknsrs.biz/p/ytmetrics/models"
)

type ChannelComparison struct {
	ChannelID        string
	ChannelName      string
	SubscriberCount  int64
	VideoCount       int64
	ViewCount        int64
	AvgViewsPerVideo float64
	SampleSize       int
	AvgViews         float64
	AvgLikes         float64
	AvgComments      float64
	// EngagementRatio is likes per hundred views over the sampled uploads.
	EngagementRatio float64
	Cadence         *models.PostingCadence
	CreatedAt       string
	Rank            int
}

// CompareChannels ranks channels by subscriber count, largest first.
func CompareChannels(summaries []models.ChannelSummary) []ChannelComparison {
	r := make([]ChannelComparison, 0, len(summaries))

	for _, s := range summaries {
		avgViews := s.AvgViews
		if avgViews < 1 {
			avgViews = 1
		}

		videoCount := s.Channel.VideoCount
		if videoCount < 1 {
			videoCount = 1
		}

		r = append(r, ChannelComparison{
			ChannelID:        s.Channel.ID,
			ChannelName:      s.Channel.Title,
			SubscriberCount:  s.Channel.SubscriberCount,
			VideoCount:       s.Channel.VideoCount,
			ViewCount:        s.Channel.ViewCount,
			AvgViewsPerVideo: float64(s.Channel.ViewCount) / float64(videoCount),
			SampleSize:       s.SampleSize,
			AvgViews:         s.AvgViews,
			AvgLikes:         s.AvgLikes,
			AvgComments:      s.AvgComments,
			EngagementRatio:  s.AvgLikes / avgViews * 100,
			Cadence:          s.Cadence,
			CreatedAt:        s.Channel.PublishedAt,
		})
	}

	sort.SliceStable(r, func(i, j int) bool {
		return r[i].SubscriberCount > r[j].SubscriberCount
	})

	for i := range r {
		r[i].Rank = i + 1
	}

	return r
}

type KeywordSummary struct {
	Keyword             string
	VideoCount          int
	TotalViews          int64
	MeanViews           float64
	MedianViews         float64
	MaxViews            int64
	MeanLikes           float64
	MeanComments        float64
	MeanEngagement      float64
	MeanRecentViews     float64
	MeanDurationSeconds float64
	// LikeRate and CommentRate are per view, averaged over videos that have
	// at least one view.
	LikeRate    float64
	CommentRate float64
	ShortShare  float64
	Rank        int
}

func column(videos []models.FormattedVideo, fn func(v models.FormattedVideo) float64) stats.Float64Data {
	r := make(stats.Float64Data, len(videos))
	for i, v := range videos {
		r[i] = fn(v)
	}
	return r
}

// mean is stats.Mean with empty input treated as zero.
func mean(d stats.Float64Data) float64 {
	m, err := stats.Mean(d)
	if err != nil {
		return 0
	}
	return m
}

// SummarizeKeyword aggregates one keyword's videos. It returns false when
// there are none.
func SummarizeKeyword(keyword string, videos []models.FormattedVideo) (KeywordSummary, bool) {
	if len(videos) == 0 {
		return KeywordSummary{}, false
	}

	views := column(videos, func(v models.FormattedVideo) float64 { return float64(v.ViewCount) })

	total, _ := stats.Sum(views)
	median, _ := stats.Median(views)
	maxViews, _ := stats.Max(views)

	var likeRates, commentRates stats.Float64Data
	shorts := 0
	for _, v := range videos {
		if v.ViewCount > 0 {
			likeRates = append(likeRates, float64(v.LikeCount)/float64(v.ViewCount))
			commentRates = append(commentRates, float64(v.CommentCount)/float64(v.ViewCount))
		}
		if v.VideoType == "short" {
			shorts++
		}
	}

	return KeywordSummary{
		Keyword:             keyword,
		VideoCount:          len(videos),
		TotalViews:          int64(total),
		MeanViews:           mean(views),
		MedianViews:         median,
		MaxViews:            int64(maxViews),
		MeanLikes:           mean(column(videos, func(v models.FormattedVideo) float64 { return float64(v.LikeCount) })),
		MeanComments:        mean(column(videos, func(v models.FormattedVideo) float64 { return float64(v.CommentCount) })),
		MeanEngagement:      mean(column(videos, func(v models.FormattedVideo) float64 { return v.EngagementRatio })),
		MeanRecentViews:     mean(column(videos, func(v models.FormattedVideo) float64 { return float64(v.RecentViews) })),
		MeanDurationSeconds: mean(column(videos, func(v models.FormattedVideo) float64 { return float64(v.DurationSeconds) })),
		LikeRate:            mean(likeRates),
		CommentRate:         mean(commentRates),
		ShortShare:          float64(shorts) / float64(len(videos)),
	}, true
}

// CompareKeywords summarises each keyword's videos and ranks the keywords by
// total views. Keywords with no videos are left out.
func CompareKeywords(byKeyword map[string][]models.FormattedVideo) []KeywordSummary {
	r := make([]KeywordSummary, 0, len(byKeyword))

	for keyword, videos := range byKeyword {
		if s, ok := SummarizeKeyword(keyword, videos); ok {
			r = append(r, s)
		}
	}

	sort.Slice(r, func(i, j int) bool {
		if r[i].TotalViews != r[j].TotalViews {
			return r[i].TotalViews > r[j].TotalViews
		}
		return r[i].Keyword < r[j].Keyword
	})

	for i := range r {
		r[i].Rank = i + 1
	}

	return r
}
