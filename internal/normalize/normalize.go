// Package normalize flattens platform payloads into models. Nothing here
// returns an error: malformed or missing fields fall back to zero values.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"

	"fknsrs.biz/p/ytmetrics/internal/timeutil"
	"fknsrs.biz/p/ytmetrics/models"
)

// ParseDuration converts a PT#H#M#S duration to whole seconds. A leading
// day group is accepted and fractional seconds are truncated. Empty,
// malformed, or negative input yields 0, so a zero result can mean either a
// genuinely empty duration or one that could not be read.
func ParseDuration(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	d, err := timeutil.ParseDayTimeDuration(s)
	if err != nil || d < 0 {
		return 0
	}

	return d.Seconds()
}

// Count reads a statistic that may be encoded as a JSON string or number.
func Count(v interface{}) int64 {
	switch e := v.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(e), 10, 64)
		if err != nil || n < 0 {
			return 0
		}
		return n
	case float64:
		if e < 0 || math.IsNaN(e) || math.IsInf(e, 0) {
			return 0
		}
		return int64(e)
	case json.Number:
		return Count(e.String())
	case int:
		if e < 0 {
			return 0
		}
		return int64(e)
	case int64:
		if e < 0 {
			return 0
		}
		return e
	default:
		return 0
	}
}

func str(c *gabs.Container, path ...string) string {
	if s, ok := c.S(path...).Data().(string); ok {
		return s
	}

	return ""
}

func flag(c *gabs.Container, path ...string) bool {
	switch e := c.S(path...).Data().(type) {
	case bool:
		return e
	case string:
		return e == "true"
	default:
		return false
	}
}

// Timestamp parses an RFC3339 publish time, returning nil when it is absent
// or unreadable.
func Timestamp(s string) *time.Time {
	if s == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}

	return &t
}

func thumbnails(c *gabs.Container) map[string]string {
	m := make(map[string]string)

	for size, e := range c.S("snippet", "thumbnails").ChildrenMap() {
		if u := str(e, "url"); u != "" {
			m[size] = u
		}
	}

	return m
}

var thumbnailPreference = []string{"maxres", "high", "medium", "default", "standard"}

// BestThumbnail picks the largest available thumbnail URL.
func BestThumbnail(m map[string]string) string {
	for _, size := range thumbnailPreference {
		if u := m[size]; u != "" {
			return u
		}
	}

	return ""
}

func VideoFromJSON(c *gabs.Container) models.VideoRecord {
	var tags []string
	for _, e := range c.S("snippet", "tags").Children() {
		if s, ok := e.Data().(string); ok {
			tags = append(tags, s)
		}
	}

	publishedAt := str(c, "snippet", "publishedAt")

	return models.VideoRecord{
		ID:            str(c, "id"),
		Title:         str(c, "snippet", "title"),
		ChannelID:     str(c, "snippet", "channelId"),
		ChannelTitle:  str(c, "snippet", "channelTitle"),
		PublishedAt:   publishedAt,
		PublishedTime: Timestamp(publishedAt),
		ViewCount:     Count(c.S("statistics", "viewCount").Data()),
		LikeCount:     Count(c.S("statistics", "likeCount").Data()),
		CommentCount:  Count(c.S("statistics", "commentCount").Data()),
		RawDuration:   str(c, "contentDetails", "duration"),
		Tags:          tags,
		Description:   str(c, "snippet", "description"),
		Thumbnails:    thumbnails(c),
	}
}

func ChannelFromJSON(c *gabs.Container) models.ChannelRecord {
	publishedAt := str(c, "snippet", "publishedAt")

	return models.ChannelRecord{
		ID:                    str(c, "id"),
		Title:                 str(c, "snippet", "title"),
		SubscriberCount:       Count(c.S("statistics", "subscriberCount").Data()),
		HiddenSubscriberCount: flag(c, "statistics", "hiddenSubscriberCount"),
		VideoCount:            Count(c.S("statistics", "videoCount").Data()),
		ViewCount:             Count(c.S("statistics", "viewCount").Data()),
		PublishedAt:           publishedAt,
		PublishedTime:         Timestamp(publishedAt),
		ThumbnailURL:          BestThumbnail(thumbnails(c)),
	}
}

// SearchResultID reads the video ID out of a search result item, which nests
// it one level deeper than detail lookups do.
func SearchResultID(c *gabs.Container) string {
	if id := str(c, "id", "videoId"); id != "" {
		return id
	}

	return str(c, "id")
}
