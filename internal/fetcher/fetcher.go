// Package fetcher defines the page fetch contract shared by the probe
// (colly) and headless (chromedp) implementations used by the news scraper.
package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Request describes one page fetch.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is the result returned by a Fetcher implementation.
type Response struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher retrieves a page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// Detector decides whether a probe response needs a headless render.
type Detector interface {
	ShouldPromote(probe Response) bool
}
