package ytutil

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"fknsrs.biz/p/ytmetrics/internal/ctxhttpclient"
)

type IDType string

const (
	InvalidID = IDType("invalid")
	ChannelID = IDType("channel")
	VideoID   = IDType("video")
	HandleID  = IDType("handle")
)

var (
	channelIDPattern = regexp.MustCompile(`^UC[-_a-zA-Z0-9]{22}$`)
	videoIDPattern   = regexp.MustCompile(`^[-_a-zA-Z0-9]{11}$`)
	handlePattern    = regexp.MustCompile(`^@[-_.a-zA-Z0-9\p{L}\p{N}]{1,100}$`)
)

func isYouTubeHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com"
}

// Identify classifies a channel ID, video ID, handle, or URL pointing at one
// of those.
func Identify(urlOrID string) (IDType, string, error) {
	urlOrID = strings.TrimSpace(urlOrID)

	if channelID, err := ExtractChannelID(urlOrID); err == nil {
		return ChannelID, channelID, nil
	}

	if handle, err := ExtractHandle(urlOrID); err == nil {
		return HandleID, handle, nil
	}

	if videoID, err := ExtractVideoID(urlOrID); err == nil {
		return VideoID, videoID, nil
	}

	return InvalidID, "", fmt.Errorf("ytutil.Identify: could not extract a known ID type from %q", urlOrID)
}

func ExtractChannelID(urlOrID string) (string, error) {
	if channelIDPattern.MatchString(urlOrID) {
		return urlOrID, nil
	}

	if parsed, err := url.Parse(urlOrID); err == nil && isYouTubeHost(parsed.Host) {
		if strings.HasPrefix(parsed.Path, "/channel/") {
			parts := strings.Split(parsed.Path, "/")
			if len(parts) >= 3 && channelIDPattern.MatchString(parts[2]) {
				return parts[2], nil
			}

			return "", fmt.Errorf("ytutil.ExtractChannelID: invalid channel id in url path")
		}
	}

	return "", fmt.Errorf("ytutil.ExtractChannelID: invalid url or id; could not find a known pattern")
}

func ExtractHandle(urlOrHandle string) (string, error) {
	if handlePattern.MatchString(urlOrHandle) {
		return urlOrHandle, nil
	}

	if parsed, err := url.Parse(urlOrHandle); err == nil && isYouTubeHost(parsed.Host) {
		parts := strings.Split(strings.TrimPrefix(parsed.Path, "/"), "/")
		if len(parts) > 0 && handlePattern.MatchString(parts[0]) {
			return parts[0], nil
		}
	}

	return "", fmt.Errorf("ytutil.ExtractHandle: invalid url or handle; could not find a known pattern")
}

func ExtractVideoID(urlOrID string) (string, error) {
	if videoIDPattern.MatchString(urlOrID) {
		return urlOrID, nil
	}

	parsed, err := url.Parse(urlOrID)
	if err != nil {
		return "", fmt.Errorf("ytutil.ExtractVideoID: %w", err)
	}

	if isYouTubeHost(parsed.Host) && parsed.Path == "/watch" {
		if id := parsed.Query().Get("v"); videoIDPattern.MatchString(id) {
			return id, nil
		}

		return "", fmt.Errorf("ytutil.ExtractVideoID: invalid or missing v parameter in youtube.com url")
	}

	if isYouTubeHost(parsed.Host) && strings.HasPrefix(parsed.Path, "/shorts/") {
		if id := strings.TrimPrefix(parsed.Path, "/shorts/"); videoIDPattern.MatchString(id) {
			return id, nil
		}

		return "", fmt.Errorf("ytutil.ExtractVideoID: invalid shorts url")
	}

	if parsed.Host == "youtu.be" {
		if id := strings.TrimPrefix(parsed.Path, "/"); videoIDPattern.MatchString(id) {
			return id, nil
		}

		return "", fmt.Errorf("ytutil.ExtractVideoID: invalid youtu.be url")
	}

	return "", fmt.Errorf("ytutil.ExtractVideoID: invalid url or id; could not find a known pattern")
}

// ChannelIDFromPage reads the channel ID a YouTube page declares about
// itself, which is how handles and custom URLs are resolved without an API
// call.
func ChannelIDFromPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("ytutil.ChannelIDFromPage: %w", err)
	}

	res, err := ctxhttpclient.GetHTTPClient(ctx).Do(req)
	if err != nil {
		return "", fmt.Errorf("ytutil.ChannelIDFromPage: could not perform request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ytutil.ChannelIDFromPage: status code: %d", res.StatusCode)
	}

	body, err := charset.NewReader(res.Body, res.Header.Get("content-type"))
	if err != nil {
		return "", fmt.Errorf("ytutil.ChannelIDFromPage: could not determine page encoding: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("ytutil.ChannelIDFromPage: could not parse document: %w", err)
	}

	if id := doc.Find("meta[itemprop=channelId]").AttrOr("content", ""); channelIDPattern.MatchString(id) {
		return id, nil
	}

	if id, err := ExtractChannelID(doc.Find("link[rel=canonical]").AttrOr("href", "")); err == nil {
		return id, nil
	}

	return "", fmt.Errorf("ytutil.ChannelIDFromPage: could not find channel id in document")
}
