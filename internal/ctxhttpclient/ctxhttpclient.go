package ctxhttpclient

import (
	"context"
	"net/http"
	"time"
)

// context registration

var httpClientKey int

func WithHTTPClient(ctx context.Context, httpClient *http.Client) context.Context {
	return context.WithValue(ctx, &httpClientKey, httpClient)
}

func GetHTTPClient(ctx context.Context) *http.Client {
	if v := ctx.Value(&httpClientKey); v != nil {
		return v.(*http.Client)
	}

	return defaultClient
}

var defaultClient = &http.Client{Timeout: time.Second * 30}
