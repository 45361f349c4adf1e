// Package search finds local-business websites through an ordered chain of
// search providers and filters out directories and high-authority hosts.
package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/heuristics"
	"github.com/JakeFAU/prospect-auditor/internal/metrics"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
	"github.com/JakeFAU/prospect-auditor/internal/urlnorm"
)

// MinKeyLength is the shortest comparison key accepted as a business domain.
const MinKeyLength = 5

// Chain tries providers in order and returns the first non-empty filtered
// result. It implements prospect.SearchProvider.
type Chain struct {
	providers []prospect.SearchProvider
	rules     heuristics.Rules
	logger    *zap.Logger
}

var _ prospect.SearchProvider = (*Chain)(nil)

// NewChain builds a provider chain.
func NewChain(rules heuristics.Rules, logger *zap.Logger, providers ...prospect.SearchProvider) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rules == nil {
		rules = heuristics.NewDefault()
	}
	return &Chain{providers: providers, rules: rules, logger: logger}
}

// Name identifies the chain.
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ">")
}

// Search returns filtered candidates. Provider failures fall through to the
// next provider; if every provider fails or yields nothing usable the result
// is empty with a nil error.
func (c *Chain) Search(ctx context.Context, query prospect.Query) ([]prospect.Candidate, error) {
	for _, provider := range c.providers {
		if ctx.Err() != nil {
			return nil, nil
		}
		raw, err := provider.Search(ctx, query)
		if err != nil {
			metrics.ObserveSearch(provider.Name(), "error")
			c.logger.Warn("search provider failed, falling back",
				zap.String("provider", provider.Name()),
				zap.String("query", query.Text()),
				zap.Error(err),
			)
			continue
		}
		candidates := Filter(c.rules, raw, query.Count)
		if len(candidates) == 0 {
			metrics.ObserveSearch(provider.Name(), "empty")
			c.logger.Info("search provider returned no usable results",
				zap.String("provider", provider.Name()),
				zap.String("query", query.Text()),
				zap.Int("raw_results", len(raw)),
			)
			continue
		}
		metrics.ObserveSearch(provider.Name(), "ok")
		for i := range candidates {
			candidates[i].City = query.City
			candidates[i].State = query.State
		}
		return candidates, nil
	}
	return nil, nil
}

// Filter drops blocked, high-authority and too-short hosts, dedupes by
// comparison key and stops once limit candidates are collected. A
// non-positive limit keeps everything.
func Filter(rules heuristics.Rules, raw []prospect.Candidate, limit int) []prospect.Candidate {
	seen := make(map[string]struct{}, len(raw))
	out := make([]prospect.Candidate, 0, len(raw))
	for _, candidate := range raw {
		host := urlnorm.Hostname(candidate.Domain)
		key := urlnorm.Key(candidate.Domain)
		switch {
		case host == "" || key == "":
			continue
		case rules.IsBlocked(host):
			continue
		case rules.IsHighAuthority(host):
			continue
		case len(key) < MinKeyLength:
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidate.Domain = key
		out = append(out, candidate)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
