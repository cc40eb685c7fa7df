package models

import (
	"time"
)

type ChannelRecord struct {
	ID                    string
	Title                 string
	SubscriberCount       int64
	HiddenSubscriberCount bool
	VideoCount            int64
	ViewCount             int64
	PublishedAt           string
	PublishedTime         *time.Time
	ThumbnailURL          string
}

type PostingCadence struct {
	AvgDaysBetweenVideos float64
	VideosPerMonth       float64
}

// ChannelSummary is a channel plus averages over a sample of its most recent
// uploads. Cadence is nil when fewer than two uploads had usable timestamps.
type ChannelSummary struct {
	Channel      ChannelRecord
	SampleSize   int
	AvgViews     float64
	AvgLikes     float64
	AvgComments  float64
	TotalViews   int64
	TotalLikes   int64
	Cadence      *PostingCadence
	LatestUpload *time.Time
}
