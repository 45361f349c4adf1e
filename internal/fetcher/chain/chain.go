// Package chain runs fetch strategies in order until one yields enough
// readable content.
package chain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/extract"
	"github.com/JakeFAU/prospect-auditor/internal/metrics"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// Strategy is one named way of fetching a page.
type Strategy interface {
	prospect.Fetcher
	Name() string
}

// Detector decides whether a response is too thin to keep.
type Detector interface {
	ShouldPromote(resp prospect.FetchResponse) bool
}

// Waiter throttles outbound requests per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Loader implements prospect.PageLoader over an ordered list of strategies.
type Loader struct {
	strategies []Strategy
	detector   Detector
	limiter    Waiter
	perAttempt time.Duration
	logger     *zap.Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithLimiter throttles each strategy attempt.
func WithLimiter(w Waiter) Option {
	return func(l *Loader) { l.limiter = w }
}

// WithAttemptTimeout bounds each strategy attempt on its own, so a stage that
// times out still leaves the next stage its full budget.
func WithAttemptTimeout(d time.Duration) Option {
	return func(l *Loader) { l.perAttempt = max(d, 0) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New builds a Loader. Strategies are tried in the order given.
func New(detector Detector, strategies []Strategy, opts ...Option) *Loader {
	l := &Loader{
		strategies: strategies,
		detector:   detector,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Budget is the longest a Load can take when every attempt is bounded, or zero
// when attempts are unbounded.
func (l *Loader) Budget() time.Duration {
	return l.perAttempt * time.Duration(len(l.strategies))
}

// Load fetches url and parses it. A strategy whose result the detector calls
// thin promotes the fetch to the next strategy; if none is rich enough the
// last non-empty page is returned. prospect.ErrNoContent is returned when no
// strategy produced any text.
func (l *Loader) Load(ctx context.Context, url string) (prospect.ScrapedPage, error) {
	var (
		fallback *prospect.ScrapedPage
		lastErr  error
	)
	for i, strategy := range l.strategies {
		if err := ctx.Err(); err != nil {
			return prospect.ScrapedPage{}, fmt.Errorf("load %s: %w", url, err)
		}
		page, thin, err := l.attempt(ctx, strategy, url)
		if err != nil {
			lastErr = err
			continue
		}
		if !thin {
			return page, nil
		}
		if page.BodyText != "" {
			fallback = &page
		}
		if i < len(l.strategies)-1 {
			l.logger.Debug("thin content, promoting fetch",
				zap.String("url", url),
				zap.String("strategy", strategy.Name()),
				zap.Int("body_chars", len(page.BodyText)),
			)
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	if lastErr != nil {
		return prospect.ScrapedPage{}, fmt.Errorf("%w: %w", prospect.ErrNoContent, lastErr)
	}
	return prospect.ScrapedPage{}, prospect.ErrNoContent
}

func (l *Loader) attempt(ctx context.Context, strategy Strategy, url string) (prospect.ScrapedPage, bool, error) {
	name := strategy.Name()
	if l.perAttempt > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.perAttempt)
		defer cancel()
	}
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx, url); err != nil {
			return prospect.ScrapedPage{}, false, err
		}
	}
	start := time.Now()
	resp, err := strategy.Fetch(ctx, prospect.FetchRequest{URL: url})
	if err != nil {
		metrics.ObserveFetch(name, "error", time.Since(start))
		l.logger.Warn("fetch strategy failed",
			zap.String("url", url),
			zap.String("strategy", name),
			zap.Error(err),
		)
		return prospect.ScrapedPage{}, false, fmt.Errorf("%s fetch: %w", name, err)
	}
	pageURL := resp.URL
	if pageURL == "" {
		pageURL = url
	}
	page, err := extract.Parse(resp.Body, pageURL)
	if err != nil {
		metrics.ObserveFetch(name, "parse_error", time.Since(start))
		return prospect.ScrapedPage{}, false, fmt.Errorf("%s extract: %w", name, err)
	}
	page.UsedHeadless = resp.UsedHeadless
	thin := l.detector != nil && l.detector.ShouldPromote(resp)
	outcome := "ok"
	if thin {
		outcome = "thin"
	}
	metrics.ObserveFetch(name, outcome, time.Since(start))
	return page, thin, nil
}
