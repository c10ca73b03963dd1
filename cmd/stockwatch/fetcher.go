// cmd/stockwatch/fetcher.go
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// Fetcher retrieves the stock page markup
type Fetcher struct {
	client *resty.Client
	url    string
}

// NewFetcher creates a fetcher for url that identifies itself with userAgent.
func NewFetcher(url, userAgent string, timeout time.Duration) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	return &Fetcher{
		client: client,
		url:    url,
	}
}

// Fetch performs a single GET and returns the body as UTF-8 text.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %v", ErrNetwork, f.url, err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: GET %s: unexpected status code: %d", ErrNetwork, f.url, resp.StatusCode())
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body()), resp.Header().Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrNetwork, f.url, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrNetwork, f.url, err)
	}
	return string(body), nil
}
