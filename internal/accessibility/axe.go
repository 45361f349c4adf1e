// Package accessibility scans pages with axe-core running inside headless Chrome.
package accessibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// DefaultScriptURL is the axe-core build injected when no script is configured.
const DefaultScriptURL = "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js"

// ErrClosed is returned when Scan is called after Close.
var ErrClosed = errors.New("accessibility scanner closed")

// Config controls the axe scanner.
type Config struct {
	// ScriptURL is loaded into the page with a script tag.
	ScriptURL string
	// Script, when set, is evaluated directly instead of loading ScriptURL.
	// Sites with a strict CSP block external script tags.
	Script      string
	Timeout     time.Duration
	SettleDelay time.Duration
	UserAgent   string
	ExecPath    string
}

// Scanner implements prospect.AccessibilityScanner. It owns one browser
// allocator; every scan opens and closes its own tab.
type Scanner struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

var _ prospect.AccessibilityScanner = (*Scanner)(nil)

// New builds a Scanner. The browser starts lazily on the first scan.
func New(cfg Config) *Scanner {
	if cfg.ScriptURL == "" {
		cfg.ScriptURL = DefaultScriptURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Scanner{cfg: cfg, allocator: allocCtx, allocCancel: allocCancel}
}

// Close terminates the browser. Safe to call more than once.
func (s *Scanner) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.allocCancel()
}

// Scan loads url, injects axe-core and summarizes its findings.
func (s *Scanner) Scan(ctx context.Context, url string) (prospect.AccessibilityResult, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return prospect.AccessibilityResult{}, ErrClosed
	}

	tabCtx, tabCancel := chromedp.NewContext(s.allocator)
	defer tabCancel()
	tabCtx, cancel := context.WithTimeout(tabCtx, s.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var raw []byte
	actions := []chromedp.Action{
		s.userAgentAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.SettleDelay),
	}
	if s.cfg.Script != "" {
		var ignored []byte
		actions = append(actions, chromedp.Evaluate(s.cfg.Script, &ignored))
	}
	actions = append(actions, chromedp.Evaluate(runScript(s.cfg.ScriptURL), &raw, awaitPromise))
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return prospect.AccessibilityResult{}, fmt.Errorf("axe scan %s: %w", url, err)
	}

	var results axeResults
	if err := json.Unmarshal(raw, &results); err != nil {
		return prospect.AccessibilityResult{}, fmt.Errorf("decode axe results: %w", err)
	}
	return summarize(results), nil
}

func (s *Scanner) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if s.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// runScript loads axe from scriptURL unless it is already present, runs it
// against the document and returns a compact result object.
func runScript(scriptURL string) string {
	return fmt.Sprintf(`(async () => {
  if (!window.axe) {
    await new Promise((resolve, reject) => {
      const s = document.createElement('script');
      s.src = %q;
      s.onload = resolve;
      s.onerror = () => reject(new Error('axe-core failed to load'));
      (document.head || document.documentElement).appendChild(s);
    });
  }
  const r = await window.axe.run(document, {resultTypes: ['violations', 'passes']});
  return {
    violations: r.violations.map(v => ({
      id: v.id, impact: v.impact || '', description: v.description, help: v.help,
      helpUrl: v.helpUrl, tags: v.tags, nodes: v.nodes.length
    })),
    passes: r.passes.map(p => ({id: p.id, description: p.description})),
    title: document.title || '',
    lang: document.documentElement.lang || ''
  };
})()`, scriptURL)
}
