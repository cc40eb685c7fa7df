package models

import (
	"time"
)

// VideoRecord is one fetched snapshot of a video. Counts that the platform
// hides or omits are zero.
type VideoRecord struct {
	ID            string
	Title         string
	ChannelID     string
	ChannelTitle  string
	PublishedAt   string
	PublishedTime *time.Time
	ViewCount     int64
	LikeCount     int64
	CommentCount  int64
	RawDuration   string
	Tags          []string
	Description   string
	Thumbnails    map[string]string
}

func (v VideoRecord) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}
