// Package ratelimit spaces out requests to the same business site or search API.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/prospect-auditor/internal/metrics"
	"github.com/JakeFAU/prospect-auditor/internal/urlnorm"
)

// Config holds rate limiter configuration.
type Config struct {
	// DefaultRPS is the steady rate per site. Zero or less disables limiting.
	DefaultRPS   float64
	DefaultBurst int
}

// Limiter hands out one token bucket per site. Sites are keyed by their
// comparison key, so www.example.com and example.com share a bucket.
type Limiter struct {
	rate  rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	l := &Limiter{
		rate:    rate.Limit(cfg.DefaultRPS),
		burst:   max(cfg.DefaultBurst, 1),
		buckets: make(map[string]*rate.Limiter),
	}
	if cfg.DefaultRPS <= 0 {
		l.rate = rate.Inf
	}
	return l
}

// Wait blocks until rawURL's site has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	site := siteKey(rawURL)
	bucket := l.bucket(site)

	start := time.Now()
	if err := bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", site, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(site, waited)
	}
	return nil
}

// Sites reports how many distinct sites have been seen.
func (l *Limiter) Sites() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) bucket(site string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[site]
	if !ok {
		b = rate.NewLimiter(l.rate, l.burst)
		l.buckets[site] = b
	}
	return b
}

func siteKey(rawURL string) string {
	if key := urlnorm.Key(rawURL); key != "" {
		return key
	}
	return "unknown"
}
