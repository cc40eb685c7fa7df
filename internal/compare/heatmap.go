package compare

import (
	"time"

	"fknsrs.biz/p/ytmetrics/models"
)

// DefaultLocation is used for bucketing when no location is given.
const DefaultLocation = "Asia/Tokyo"

// Weekdays is the row order of a heatmap.
var Weekdays = [7]time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// Heatmap buckets uploads by weekday (Monday first) and hour of day.
type Heatmap struct {
	Location *time.Location
	Counts   [7][24]int
	Views    [7][24]int64
	Total    int
}

func weekdayRow(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func defaultLocation() *time.Location {
	if loc, err := time.LoadLocation(DefaultLocation); err == nil {
		return loc
	}

	return time.FixedZone("JST", 9*60*60)
}

// PublishHeatmap counts uploads per weekday and hour in loc. Videos without
// a usable publish time are skipped.
func PublishHeatmap(videos []models.FormattedVideo, loc *time.Location) *Heatmap {
	if loc == nil {
		loc = defaultLocation()
	}

	h := &Heatmap{Location: loc}

	for _, v := range videos {
		if v.PublishedTime == nil {
			continue
		}

		t := v.PublishedTime.In(loc)
		d, hr := weekdayRow(t.Weekday()), t.Hour()

		h.Counts[d][hr]++
		h.Views[d][hr] += v.ViewCount
		h.Total++
	}

	return h
}

func (h *Heatmap) Count(day time.Weekday, hour int) int {
	return h.Counts[weekdayRow(day)][hour]
}

// MeanViews is the average view count of uploads in a bucket, or zero for
// an empty bucket.
func (h *Heatmap) MeanViews(day time.Weekday, hour int) float64 {
	d := weekdayRow(day)
	if h.Counts[d][hour] == 0 {
		return 0
	}

	return float64(h.Views[d][hour]) / float64(h.Counts[d][hour])
}

// Busiest returns the bucket with the most uploads. ok is false when the
// heatmap is empty.
func (h *Heatmap) Busiest() (day time.Weekday, hour int, ok bool) {
	best := 0
	for d, row := range h.Counts {
		for hr, n := range row {
			if n > best {
				best, day, hour, ok = n, Weekdays[d], hr, true
			}
		}
	}

	return day, hour, ok
}
