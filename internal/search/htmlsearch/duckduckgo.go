// Package htmlsearch scrapes an unauthenticated HTML search results page. It
// is the fallback provider when the JSON API is unavailable.
package htmlsearch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	collyfetcher "github.com/JakeFAU/prospect-auditor/internal/fetcher/colly"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// DefaultEndpoint is the DuckDuckGo HTML endpoint.
const DefaultEndpoint = "https://html.duckduckgo.com/html/"

// ResultSelector addresses result links on the results page.
const ResultSelector = "a.result__a"

// Waiter throttles outbound requests.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config configures the scraper.
type Config struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// Provider implements prospect.SearchProvider over colly.
type Provider struct {
	cfg     Config
	base    *colly.Collector
	limiter Waiter
}

var _ prospect.SearchProvider = (*Provider)(nil)

// New builds a Provider. limiter may be nil.
func New(cfg Config, limiter Waiter) *Provider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = collyfetcher.DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)
	return &Provider{cfg: cfg, base: c, limiter: limiter}
}

// Name identifies the provider.
func (p *Provider) Name() string { return "duckduckgo-html" }

// Search fetches one results page. Candidate domains carry the unwrapped result URL.
func (p *Provider) Search(ctx context.Context, query prospect.Query) ([]prospect.Candidate, error) {
	target, err := p.resultsURL(query)
	if err != nil {
		return nil, err
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, target); err != nil {
			return nil, err
		}
	}

	collector := p.base.Clone()
	collector.UserAgent = p.cfg.UserAgent

	var (
		mu         sync.Mutex
		candidates []prospect.Candidate
		visitErr   error
	)
	collector.OnHTML(ResultSelector, func(e *colly.HTMLElement) {
		link := unwrap(e.Request.AbsoluteURL(e.Attr("href")))
		if link == "" {
			return
		}
		mu.Lock()
		candidates = append(candidates, prospect.Candidate{
			Domain:      link,
			DisplayName: strings.TrimSpace(e.Text),
		})
		mu.Unlock()
	})
	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("html search canceled: %w", ctx.Err())
	case err := <-done:
		if visitErr != nil {
			return nil, fmt.Errorf("html search response failed: %w", visitErr)
		}
		if err != nil {
			return nil, fmt.Errorf("html search visit failed: %w", err)
		}
	}
	return candidates, nil
}

func (p *Provider) resultsURL(query prospect.Query) (string, error) {
	u, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	params := u.Query()
	params.Set("q", query.Text())
	if query.Offset > 0 {
		params.Set("s", strconv.Itoa(query.Offset))
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// unwrap resolves redirect links of the form /l/?uddg=<target> to the target.
func unwrap(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
