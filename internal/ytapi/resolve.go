package ytapi

import (
	"context"
	"fmt"

	"fknsrs.biz/p/ytmetrics/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmetrics/internal/ytutil"
)

// ResolveChannel turns a channel ID, channel URL, handle, or video reference
// into a channel ID.
func (c *Client) ResolveChannel(ctx context.Context, input string) (string, error) {
	typ, value, err := ytutil.Identify(input)
	if err != nil {
		return "", fmt.Errorf("ytapi.Client.ResolveChannel: %w", err)
	}

	switch typ {
	case ytutil.ChannelID:
		return value, nil
	case ytutil.HandleID:
		pctx := ctx
		if c.pageClient != nil {
			pctx = ctxhttpclient.WithHTTPClient(ctx, c.pageClient)
		}

		id, err := ytutil.ChannelIDFromPage(pctx, c.pageBaseURL+value)
		if err != nil {
			return "", fmt.Errorf("ytapi.Client.ResolveChannel: %w", err)
		}
		return id, nil
	case ytutil.VideoID:
		videos := c.GetVideoDetails(ctx, []string{value})
		if len(videos) == 0 || videos[0].ChannelID == "" {
			return "", fmt.Errorf("ytapi.Client.ResolveChannel: could not look up video %q", value)
		}
		return videos[0].ChannelID, nil
	default:
		return "", fmt.Errorf("ytapi.Client.ResolveChannel: unsupported input %q", input)
	}
}
