// Package brave queries a Brave-compatible web search JSON API.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// DefaultEndpoint is the public Brave web search endpoint.
const DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Waiter throttles outbound requests.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config configures the client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client implements prospect.SearchProvider.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter Waiter
}

var _ prospect.SearchProvider = (*Client)(nil)

// New builds a client. httpClient and limiter may be nil.
func New(cfg Config, httpClient *http.Client, limiter Waiter) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient, limiter: limiter}
}

// Name identifies the provider.
func (c *Client) Name() string { return "brave" }

type response struct {
	Web struct {
		Results []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"results"`
	} `json:"web"`
}

// Search issues one API request. Candidate domains carry the raw result URL.
func (c *Client) Search(ctx context.Context, query prospect.Query) ([]prospect.Candidate, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: brave api key not configured", prospect.ErrSearchUnavailable)
	}
	endpoint, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", query.Text())
	if query.Count > 0 {
		params.Set("count", strconv.Itoa(query.Count))
	}
	params.Set("offset", strconv.Itoa(query.Offset))
	endpoint.RawQuery = params.Encode()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, endpoint.String()); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("brave search: unexpected status %d", resp.StatusCode)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}
	candidates := make([]prospect.Candidate, 0, len(decoded.Web.Results))
	for _, result := range decoded.Web.Results {
		if result.URL == "" {
			continue
		}
		candidates = append(candidates, prospect.Candidate{
			Domain:      result.URL,
			DisplayName: result.Title,
		})
	}
	return candidates, nil
}
