// Package feedfetch is the default downloader.Downloader implementation:
// it fetches a feed URL over HTTP, normalizes its encoding, and parses it
// with gofeed. internal/worker depends only on downloader.Downloader, never
// on this package's concrete types, so an alternate fetcher can be swapped
// in without touching worker code.
package feedfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"feedcloud/internal/downloader"
)

const maxFeedBodySize = 10 << 20 // 10MiB, guards against unbounded memory use on a hostile feed

// Fetcher is the gofeed-backed Downloader. It is safe for concurrent use by
// multiple worker goroutines.
type Fetcher struct {
	client      *http.Client
	rateLimiter *DomainRateLimiter
}

// New builds a Fetcher with the given per-request timeout and per-domain
// rate limit.
func New(timeout time.Duration, requestsPerMinute, burstSize int) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		rateLimiter: NewDomainRateLimiter(requestsPerMinute, burstSize),
	}
}

func (f *Fetcher) Download(ctx context.Context, feedURL string) ([]downloader.RawEntry, error) {
	if err := f.rateLimiter.Wait(ctx, feedURL); err != nil {
		return nil, &downloader.ParseError{FeedURL: feedURL, Err: err}
	}

	body, err := f.fetch(ctx, feedURL)
	if err != nil {
		return nil, &downloader.ParseError{FeedURL: feedURL, Err: err}
	}

	body, err = convertToUTF8(body)
	if err != nil {
		return nil, &downloader.ParseError{FeedURL: feedURL, Err: err}
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, &downloader.ParseError{FeedURL: feedURL, Err: fmt.Errorf("parse feed: %w", err)}
	}

	entries := make([]downloader.RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, downloader.RawEntry{
			OriginalID:  originalID(item),
			Title:       item.Title,
			Summary:     item.Description,
			Link:        item.Link,
			PublishedAt: publishedAt(item),
		})
	}
	return entries, nil
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "feedcloud/1.0 (+https://feedcloud.example)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch: feed URL returned HTTP %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxFeedBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxFeedBodySize {
		return nil, fmt.Errorf("feed exceeds maximum size of %d bytes", maxFeedBodySize)
	}
	return body, nil
}

// originalID picks the best stable identifier gofeed exposes for an item,
// falling back to the link when a feed has no GUID at all.
func originalID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

// publishedAt resolves the item's published time, falling back to updated,
// and always normalizes to UTC.
func publishedAt(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return time.Time{}
	}
}
