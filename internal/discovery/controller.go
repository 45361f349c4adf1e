// Package discovery runs the bounded search, score and classify loop that
// turns a trade and location query into ranked sales leads.
package discovery

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/metrics"
	"github.com/JakeFAU/prospect-auditor/internal/opportunity"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
	"github.com/JakeFAU/prospect-auditor/internal/seo"
	"github.com/JakeFAU/prospect-auditor/internal/urlnorm"
)

// Defaults for the discovery loop.
const (
	DefaultTarget      = 15
	DefaultMaxAttempts = 3
	MaxPageSize        = 20
)

// TopicCompleted is the event topic published after each successful batch.
const TopicCompleted = "discovery.completed"

// Config bounds the loop.
type Config struct {
	MaxAttempts int
	PageSize    int
	CostPerLead float64
}

// Request is one discovery batch.
type Request struct {
	UserID   string `json:"user_id"`
	Industry string `json:"industry"`
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	Target   int    `json:"target"`
}

// State is threaded through Step. The zero value is not usable; call NewState.
type State struct {
	Attempt   int
	Offset    int
	Seen      map[string]struct{}
	AllLeads  []prospect.Lead
	Qualified []prospect.Lead
	// Exhausted is set once a search returns no candidates.
	Exhausted bool
}

// NewState returns the initial loop state.
func NewState() *State {
	return &State{Seen: make(map[string]struct{})}
}

// Controller wires search, page loading and scoring together.
type Controller struct {
	cfg       Config
	search    prospect.SearchProvider
	loader    prospect.PageLoader
	scorer    *seo.Scorer
	usage     prospect.UsageLogger
	publisher prospect.Publisher
	clock     prospect.Clock
	logger    *zap.Logger
}

// Deps are the collaborators of a Controller. Usage and Publisher are optional.
type Deps struct {
	Search    prospect.SearchProvider
	Loader    prospect.PageLoader
	Scorer    *seo.Scorer
	Usage     prospect.UsageLogger
	Publisher prospect.Publisher
	Clock     prospect.Clock
	Logger    *zap.Logger
}

// New builds a Controller, clamping the page size to MaxPageSize.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Search == nil || deps.Loader == nil || deps.Clock == nil {
		return nil, fmt.Errorf("discovery: search, loader and clock are required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.PageSize <= 0 || cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}
	if deps.Scorer == nil {
		deps.Scorer = seo.New(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Controller{
		cfg:       cfg,
		search:    deps.Search,
		loader:    deps.Loader,
		scorer:    deps.Scorer,
		usage:     deps.Usage,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}, nil
}

// Done reports whether the loop should stop.
func (c *Controller) Done(st *State, target int) bool {
	return st.Exhausted || len(st.Qualified) >= target || st.Attempt >= c.cfg.MaxAttempts
}

// Step runs one search attempt and scores its new candidates. It returns
// true when the loop is finished.
func (c *Controller) Step(ctx context.Context, req Request, st *State) (bool, error) {
	target := targetOf(req)
	if c.Done(st, target) {
		return true, nil
	}
	query := prospect.Query{
		Industry: req.Industry,
		City:     req.City,
		State:    req.State,
		Count:    c.cfg.PageSize,
		Offset:   st.Offset,
	}
	st.Attempt++
	st.Offset += c.cfg.PageSize

	candidates, err := c.search.Search(ctx, query)
	if err != nil {
		c.logger.Warn("discovery search failed", zap.Int("attempt", st.Attempt), zap.Error(err))
		candidates = nil
	}
	if len(candidates) == 0 {
		st.Exhausted = true
		return true, nil
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return true, fmt.Errorf("discovery canceled: %w", err)
		}
		key := urlnorm.Key(candidate.Domain)
		if _, seen := st.Seen[key]; seen {
			continue
		}
		st.Seen[key] = struct{}{}

		lead, err := c.scoreCandidate(ctx, candidate)
		if err != nil {
			c.logger.Info("skipping candidate",
				zap.String("domain", key),
				zap.Error(err),
			)
			continue
		}
		metrics.ObserveLead(string(lead.Rating))
		st.AllLeads = append(st.AllLeads, lead)
		if lead.Rating == prospect.RatingHigh {
			st.Qualified = append(st.Qualified, lead)
			if len(st.Qualified) >= target {
				break
			}
		}
	}
	c.logger.Debug("discovery attempt finished",
		zap.Int("attempt", st.Attempt),
		zap.Int("candidates", len(candidates)),
		zap.Int("leads", len(st.AllLeads)),
		zap.Int("qualified", len(st.Qualified)),
	)
	return c.Done(st, target), nil
}

// Discover runs Step until done and applies the result policy.
func (c *Controller) Discover(ctx context.Context, req Request) ([]prospect.Lead, error) {
	st := NewState()
	for {
		done, err := c.Step(ctx, req, st)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	leads, err := Finalize(st, targetOf(req))
	if err != nil {
		return nil, err
	}
	c.logUsage(ctx, req, st, leads)
	c.publish(ctx, req, leads)
	return leads, nil
}

// Finalize applies the post-loop policy: the first target qualified leads
// when enough were found, otherwise up to target leads of any rating ordered
// high, medium, low. prospect.ErrNoLeads is returned when nothing was scored.
func Finalize(st *State, target int) ([]prospect.Lead, error) {
	if target <= 0 {
		target = DefaultTarget
	}
	if len(st.Qualified) >= target {
		return append([]prospect.Lead(nil), st.Qualified[:target]...), nil
	}
	if len(st.AllLeads) == 0 {
		return nil, prospect.ErrNoLeads
	}
	leads := append([]prospect.Lead(nil), st.AllLeads...)
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].Rating.Rank() < leads[j].Rating.Rank()
	})
	if len(leads) > target {
		leads = leads[:target]
	}
	return leads, nil
}

func (c *Controller) scoreCandidate(ctx context.Context, candidate prospect.Candidate) (prospect.Lead, error) {
	normalized := urlnorm.Normalize(candidate.Domain)
	page, err := c.loader.Load(ctx, normalized.URL)
	if err != nil {
		return prospect.Lead{}, fmt.Errorf("load %s: %w", normalized.URL, err)
	}
	result := c.scorer.Score(page, normalized.Key, c.clock.Now())
	rating, kind := opportunity.Classify(result.Scores, result.Issues, result.HasBlog)
	candidate.Domain = normalized.Key
	return prospect.Lead{
		Candidate:       candidate,
		Scores:          result.Scores,
		Issues:          result.Issues,
		Rating:          rating,
		OpportunityType: kind,
		NAP:             result.NAP,
		HasBlog:         result.HasBlog,
		BlogPostCount:   result.BlogPostCount,
	}, nil
}

func (c *Controller) logUsage(ctx context.Context, req Request, st *State, leads []prospect.Lead) {
	if c.usage == nil {
		return
	}
	event := prospect.UsageEvent{
		UserID:        req.UserID,
		OperationType: prospect.OperationDiscovery,
		CostUSD:       float64(len(leads)) * c.cfg.CostPerLead,
		Metadata: map[string]any{
			"industry":  req.Industry,
			"city":      req.City,
			"state":     req.State,
			"attempts":  st.Attempt,
			"scored":    len(st.AllLeads),
			"qualified": len(st.Qualified),
			"returned":  len(leads),
		},
	}
	if err := c.usage.LogUsage(ctx, event); err != nil {
		c.logger.Warn("failed to log discovery usage", zap.Error(err))
	}
}

type completedEvent struct {
	UserID   string `json:"user_id"`
	Industry string `json:"industry"`
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	Leads    int    `json:"leads"`
	High     int    `json:"high"`
}

func (c *Controller) publish(ctx context.Context, req Request, leads []prospect.Lead) {
	if c.publisher == nil {
		return
	}
	event := completedEvent{UserID: req.UserID, Industry: req.Industry, City: req.City, State: req.State, Leads: len(leads)}
	for _, lead := range leads {
		if lead.Rating == prospect.RatingHigh {
			event.High++
		}
	}
	if _, err := c.publisher.Publish(ctx, TopicCompleted, event); err != nil {
		c.logger.Warn("failed to publish discovery event", zap.Error(err))
	}
}

func targetOf(req Request) int {
	if req.Target <= 0 {
		return DefaultTarget
	}
	return req.Target
}
