package feedfetch

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainRateLimiter throttles fetches per feed domain so one slow or
// misbehaving publisher cannot starve downloads of every other feed sharing
// a worker process.
type DomainRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	requestsPerMinute int
	burstSize         int
}

func NewDomainRateLimiter(requestsPerMinute, burstSize int) *DomainRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}
	if burstSize <= 0 {
		burstSize = 30
	}
	return &DomainRateLimiter{
		limiters:          make(map[string]*rate.Limiter),
		requestsPerMinute: requestsPerMinute,
		burstSize:         burstSize,
	}
}

// Wait blocks until a request to feedURL's domain is permitted, or returns
// ctx's error if it is cancelled first.
func (d *DomainRateLimiter) Wait(ctx context.Context, feedURL string) error {
	domain := extractDomain(feedURL)
	if domain == "" {
		return nil
	}
	return d.limiterFor(domain).Wait(ctx)
}

func (d *DomainRateLimiter) limiterFor(domain string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	if l, ok := d.limiters[domain]; ok {
		return l
	}
	interval := time.Minute / time.Duration(d.requestsPerMinute)
	l := rate.NewLimiter(rate.Every(interval), d.burstSize)
	d.limiters[domain] = l
	return l
}

func extractDomain(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	domain := strings.ToLower(u.Host)
	return strings.TrimPrefix(domain, "www.")
}
