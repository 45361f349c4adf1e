// Package collyfetcher implements the lightweight HTTP fetch stage using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// DefaultUserAgent mimics a desktop browser so small business sites serve their normal markup.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const maxRedirects = 10

// ErrNotHTML is returned when the server answers with a non-HTML document.
var ErrNotHTML = errors.New("response is not html")

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodyBytes  int
}

// Fetcher implements prospect.Fetcher using the Colly collector. The base
// collector is cloned per fetch so callbacks never leak between requests.
type Fetcher struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        50,
		IdleConnTimeout:     90 * time.Second,
	})
	// Clones share the HTTP backend, so client settings are applied once here.
	c.SetRequestTimeout(cfg.Timeout)
	c.SetRedirectHandler(func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	})
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	return &Fetcher{cfg: cfg, base: c}
}

// Name identifies the strategy in logs and metrics.
func (f *Fetcher) Name() string { return "http" }

// Fetch performs one GET and returns the final response after redirects.
func (f *Fetcher) Fetch(ctx context.Context, request prospect.FetchRequest) (prospect.FetchResponse, error) {
	v := &visit{started: time.Now(), extra: request.Headers}
	c := f.collector()
	c.OnRequest(v.onRequest)
	c.OnResponse(v.onResponse)
	c.OnError(v.onError)

	done := make(chan error, 1)
	go func() { done <- c.Visit(request.URL) }()

	select {
	case <-ctx.Done():
		return prospect.FetchResponse{}, fmt.Errorf("fetch %s: %w", request.URL, ctx.Err())
	case err := <-done:
		if v.err != nil {
			return prospect.FetchResponse{}, fmt.Errorf("fetch %s: %w", request.URL, v.err)
		}
		if err != nil {
			return prospect.FetchResponse{}, fmt.Errorf("fetch %s: %w", request.URL, err)
		}
		return v.resp, nil
	}
}

func (f *Fetcher) collector() *colly.Collector {
	c := f.base.Clone()
	c.UserAgent = f.cfg.UserAgent
	c.IgnoreRobotsTxt = !f.cfg.RespectRobots
	return c
}

// visit collects the outcome of a single collector run.
type visit struct {
	started time.Time
	extra   http.Header
	resp    prospect.FetchResponse
	err     error
}

func (v *visit) onRequest(r *colly.Request) {
	r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	for key, values := range v.extra {
		for _, val := range values {
			r.Headers.Add(key, val)
		}
	}
}

func (v *visit) onResponse(r *colly.Response) {
	var headers http.Header
	if r.Headers != nil {
		headers = r.Headers.Clone()
	}
	if !isHTML(headers.Get("Content-Type")) {
		v.err = fmt.Errorf("%w: %s", ErrNotHTML, headers.Get("Content-Type"))
		return
	}
	v.resp = prospect.FetchResponse{
		URL:        r.Request.URL.String(),
		StatusCode: r.StatusCode,
		Headers:    headers,
		Body:       append([]byte(nil), r.Body...),
		Duration:   time.Since(v.started),
	}
}

func (v *visit) onError(r *colly.Response, err error) {
	if r != nil && r.StatusCode != 0 {
		v.err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		return
	}
	v.err = err
}

// isHTML accepts a missing content type since many small sites omit it.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
