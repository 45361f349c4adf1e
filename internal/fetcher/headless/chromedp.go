// Package headless renders JavaScript-heavy pages in headless Chrome when the
// plain HTTP probe comes back thin.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

var (
	// ErrClosed is returned when Fetch is called after Close.
	ErrClosed = errors.New("headless fetcher closed")
	// ErrStatus is returned when the main document answered with a 4xx or 5xx.
	ErrStatus = errors.New("document returned an error status")
)

const defaultNavTimeout = 30 * time.Second

// Config controls the behavior of the headless fetcher.
type Config struct {
	// MaxParallel caps open tabs. Zero means unbounded.
	MaxParallel        int
	UserAgent          string
	NavigationTimeout  time.Duration
	NetworkIdleTimeout time.Duration
	SettleDelay        time.Duration
	ExecPath           string
}

// Fetcher implements prospect.Fetcher using chromedp. One browser is shared by
// every fetch and each fetch renders in its own tab.
type Fetcher struct {
	cfg   Config
	tabs  slots
	alloc context.Context
	stop  context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewChromedp creates a headless fetcher. Chrome starts lazily on the first fetch.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0, got %d", cfg.MaxParallel)
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.NetworkIdleTimeout <= 0 {
		cfg.NetworkIdleTimeout = 10 * time.Second
	}
	cfg.SettleDelay = max(cfg.SettleDelay, 0)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	alloc, stop := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:   cfg,
		tabs:  newSlots(cfg.MaxParallel),
		alloc: alloc,
		stop:  stop,
	}, nil
}

// Name identifies the strategy in logs and metrics.
func (f *Fetcher) Name() string { return "headless" }

// Close terminates the browser process. It is safe to call more than once.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.stop()
}

// Fetch loads the page, waits for the network to go idle plus the settle
// delay, and returns the rendered DOM.
func (f *Fetcher) Fetch(ctx context.Context, request prospect.FetchRequest) (prospect.FetchResponse, error) {
	f.mu.RLock()
	closed := f.closed
	f.mu.RUnlock()
	if closed {
		return prospect.FetchResponse{}, ErrClosed
	}
	if err := f.tabs.acquire(ctx); err != nil {
		return prospect.FetchResponse{}, err
	}
	defer f.tabs.release()

	tabCtx, closeTab := chromedp.NewContext(f.alloc)
	defer closeTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, f.cfg.NavigationTimeout)
	defer cancel()
	// The tab hangs off the allocator, so tie it to the caller by hand.
	unlink := context.AfterFunc(ctx, cancel)
	defer unlink()

	watch := newDocumentWatch()
	chromedp.ListenTarget(tabCtx, watch.observe)

	start := time.Now()
	var html, location string
	err := chromedp.Run(tabCtx,
		f.prepareTab(),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		watch.waitIdle(f.cfg.NetworkIdleTimeout),
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return prospect.FetchResponse{}, fmt.Errorf("render %s: %w", request.URL, err)
	}

	doc := watch.result(request.URL, location)
	if err := doc.check(); err != nil {
		return prospect.FetchResponse{}, fmt.Errorf("render %s: %w", request.URL, err)
	}
	return prospect.FetchResponse{
		URL:          doc.url,
		StatusCode:   doc.status,
		Headers:      doc.headers,
		Body:         []byte(html),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

func (f *Fetcher) prepareTab() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return fmt.Errorf("enable lifecycle events: %w", err)
		}
		if f.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// slots bounds concurrent tabs. A nil channel means no bound.
type slots chan struct{}

func newSlots(n int) slots {
	if n <= 0 {
		return nil
	}
	return make(slots, n)
}

func (s slots) acquire(ctx context.Context) error {
	if s == nil {
		return nil
	}
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for a browser tab: %w", ctx.Err())
	}
}

func (s slots) release() {
	if s == nil {
		return
	}
	select {
	case <-s:
	default:
	}
}

// document is what the main-frame response told us about the page.
type document struct {
	status  int
	headers http.Header
	url     string
}

// check rejects error pages such as anti-bot 403s, which Chrome renders like
// any other document.
func (d document) check() error {
	if d.status >= http.StatusBadRequest {
		return fmt.Errorf("%w: %d", ErrStatus, d.status)
	}
	return nil
}

// documentWatch records the main document response and the networkIdle
// lifecycle event for one tab.
type documentWatch struct {
	mu   sync.Mutex
	doc  document
	idle chan struct{}
	once sync.Once
}

func newDocumentWatch() *documentWatch {
	return &documentWatch{idle: make(chan struct{})}
}

func (w *documentWatch) observe(ev any) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		w.mu.Lock()
		w.doc = document{
			status:  int(e.Response.Status),
			headers: httpHeaders(e.Response.Headers),
			url:     e.Response.URL,
		}
		w.mu.Unlock()
	case *page.EventLifecycleEvent:
		if e.Name == "networkIdle" {
			w.once.Do(func() { close(w.idle) })
		}
	}
}

// waitIdle returns once the page reports networkIdle or the timeout passes.
// Pages that never go quiet are captured as they are.
func (w *documentWatch) waitIdle(timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-w.idle:
		case <-timer.C:
		case <-ctx.Done():
			return fmt.Errorf("wait network idle: %w", ctx.Err())
		}
		return nil
	})
}

// result fills what the browser never reported: the URL falls back to the
// final location and then the request, and the status falls back to 200.
func (w *documentWatch) result(requested, location string) document {
	w.mu.Lock()
	doc := w.doc
	w.mu.Unlock()

	if doc.url == "" {
		doc.url = location
	}
	if doc.url == "" {
		doc.url = requested
	}
	if doc.status == 0 {
		doc.status = http.StatusOK
	}
	if doc.headers == nil {
		doc.headers = http.Header{}
	}
	return doc
}

func httpHeaders(src network.Headers) http.Header {
	out := make(http.Header, len(src))
	for key, value := range src {
		switch v := value.(type) {
		case string:
			out.Add(key, v)
		case []any:
			for _, item := range v {
				out.Add(key, fmt.Sprint(item))
			}
		default:
			out.Add(key, fmt.Sprint(v))
		}
	}
	return out
}
