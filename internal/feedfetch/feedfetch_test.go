package feedfetch

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestOriginalID(t *testing.T) {
	t.Run("prefers GUID", func(t *testing.T) {
		item := &gofeed.Item{GUID: "guid-123", Link: "https://example.com/post"}
		if got := originalID(item); got != "guid-123" {
			t.Errorf("expected guid-123, got %q", got)
		}
	})

	t.Run("falls back to link", func(t *testing.T) {
		item := &gofeed.Item{Link: "https://example.com/post"}
		if got := originalID(item); got != "https://example.com/post" {
			t.Errorf("expected link fallback, got %q", got)
		}
	})
}

func TestPublishedAt(t *testing.T) {
	published := time.Date(2026, 1, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	updated := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

	t.Run("prefers published over updated", func(t *testing.T) {
		item := &gofeed.Item{PublishedParsed: &published, UpdatedParsed: &updated}
		got := publishedAt(item)
		if !got.Equal(published) || got.Location() != time.UTC {
			t.Errorf("expected %v in UTC, got %v", published, got)
		}
	})

	t.Run("falls back to updated", func(t *testing.T) {
		item := &gofeed.Item{UpdatedParsed: &updated}
		got := publishedAt(item)
		if !got.Equal(updated) {
			t.Errorf("expected %v, got %v", updated, got)
		}
	})

	t.Run("zero value when neither is set", func(t *testing.T) {
		item := &gofeed.Item{}
		if got := publishedAt(item); !got.IsZero() {
			t.Errorf("expected zero time, got %v", got)
		}
	})
}

func TestExtractDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/feed.xml": "example.com",
		"https://sub.example.com/feed.xml": "sub.example.com",
		"not a url":                        "",
	}
	for input, want := range cases {
		if got := extractDomain(input); got != want {
			t.Errorf("extractDomain(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestConvertToUTF8(t *testing.T) {
	t.Run("passes through a UTF-8 declared body unchanged", func(t *testing.T) {
		body := []byte(`<?xml version="1.0" encoding="UTF-8"?><rss></rss>`)
		out, err := convertToUTF8(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(out) != string(body) {
			t.Errorf("expected body unchanged, got %q", out)
		}
	})

	t.Run("rewrites an ISO-8859-1 declaration after transcoding", func(t *testing.T) {
		body := []byte(`<?xml version="1.0" encoding="ISO-8859-1"?><rss><title>caf\xe9</title></rss>`)
		out, err := convertToUTF8(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(string(out), "ISO-8859-1") {
			t.Error("expected the encoding declaration to be rewritten to UTF-8")
		}
		if !strings.Contains(string(out), `encoding="UTF-8"`) {
			t.Error("expected an explicit UTF-8 declaration")
		}
	})
}
