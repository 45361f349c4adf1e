// Package factcheck scores the factual claims on a page through a remote
// fact-check service.
package factcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// DefaultMaxChars bounds the text sent per request.
const DefaultMaxChars = 8000

// ErrEmptyText is returned when there is nothing to check.
var ErrEmptyText = errors.New("fact check: empty text")

// Config configures the client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	MaxChars int
}

// Client implements prospect.FactChecker over a JSON HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ prospect.FactChecker = (*Client)(nil)

// New builds a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("factcheck endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

type request struct {
	Text string `json:"text"`
}

// Check posts text and decodes the verdicts. OverallScore is clamped to 0-100.
func (c *Client) Check(ctx context.Context, text string) (prospect.FactCheckResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return prospect.FactCheckResult{}, ErrEmptyText
	}
	if utf8.RuneCountInString(text) > c.cfg.MaxChars {
		text = string([]rune(text)[:c.cfg.MaxChars])
	}
	body, err := json.Marshal(request{Text: text})
	if err != nil {
		return prospect.FactCheckResult{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return prospect.FactCheckResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return prospect.FactCheckResult{}, fmt.Errorf("fact check: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return prospect.FactCheckResult{}, fmt.Errorf("fact check: unexpected status %d", resp.StatusCode)
	}

	var result prospect.FactCheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return prospect.FactCheckResult{}, fmt.Errorf("decode fact check response: %w", err)
	}
	result.OverallScore = min(max(result.OverallScore, 0), 100)
	return result, nil
}

// Noop is used when no fact-check service is configured.
type Noop struct{}

var _ prospect.FactChecker = Noop{}

// Check always returns prospect.ErrFactCheckDisabled.
func (Noop) Check(context.Context, string) (prospect.FactCheckResult, error) {
	return prospect.FactCheckResult{}, prospect.ErrFactCheckDisabled
}
