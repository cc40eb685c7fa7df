package models

import (
	"time"
)

// HistorySnapshot is the most recent persisted observation of a video.
type HistorySnapshot struct {
	ViewCount int64
	Date      time.Time
}

type HistoryConfidence string

const (
	// ConfidenceNone means no earlier observation exists.
	ConfidenceNone = HistoryConfidence("none")
	// ConfidenceFresh means the earlier observation is at most a day old.
	ConfidenceFresh = HistoryConfidence("fresh")
	// ConfidenceStale means the delta spans more than a day.
	ConfidenceStale = HistoryConfidence("stale")
)
