// Package audit runs single-site audits: recency lookup, accessibility scan,
// content scoring, persistence and report registration.
package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/cache"
	"github.com/JakeFAU/prospect-auditor/internal/metrics"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
	"github.com/JakeFAU/prospect-auditor/internal/report"
	"github.com/JakeFAU/prospect-auditor/internal/seo"
	"github.com/JakeFAU/prospect-auditor/internal/urlnorm"
)

// TopicCompleted is published after every fresh audit is persisted.
const TopicCompleted = "audit.completed"

// Defaults applied by New.
const (
	DefaultScanTimeout      = 60 * time.Second
	DefaultFactCheckTimeout = 30 * time.Second
)

// ErrInvalidRequest is returned for requests that cannot be audited.
var ErrInvalidRequest = errors.New("invalid audit request")

// Config tunes the orchestrator.
type Config struct {
	// LoadTimeout bounds the whole page load across every fetch stage. Zero
	// leaves the bound to the loader, which times each stage on its own.
	LoadTimeout      time.Duration
	ScanTimeout      time.Duration
	FactCheckTimeout time.Duration
	CostPerAudit     float64
}

// Request asks for one audit. A zero MaxAge selects cache.DefaultMaxAge.
type Request struct {
	UserID   string        `json:"user_id"`
	URL      string        `json:"url"`
	UseCache bool          `json:"use_cache"`
	MaxAge   time.Duration `json:"max_age"`
}

// Result is the outcome of Run. ReportURI and AssetID are empty when the
// report could not be produced or the audit came from the cache.
type Result struct {
	Record     prospect.AuditRecord   `json:"record"`
	IsExisting bool                   `json:"is_existing"`
	ReportURI  string                 `json:"report_uri,omitempty"`
	AssetID    string                 `json:"asset_id,omitempty"`
	Claims     []prospect.ClaimResult `json:"claims,omitempty"`
}

// Deps are the collaborators of an Orchestrator. Loader, Store, IDs and Clock
// are required. Reports are registered only when both Reports and Blobs are set.
type Deps struct {
	Loader      prospect.PageLoader
	Scanner     prospect.AccessibilityScanner
	FactChecker prospect.FactChecker
	Scorer      *seo.Scorer
	Store       prospect.AuditStore
	Cache       cache.Recency
	Reports     *report.Generator
	Blobs       prospect.BlobStore
	Hasher      prospect.Hasher
	IDs         prospect.IDGenerator
	Usage       prospect.UsageLogger
	Publisher   prospect.Publisher
	Clock       prospect.Clock
	Logger      *zap.Logger
}

// Orchestrator runs audits. It holds no per-audit state.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *zap.Logger
}

// New validates deps and fills defaults.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Loader == nil || deps.Store == nil || deps.IDs == nil || deps.Clock == nil {
		return nil, fmt.Errorf("audit: loader, store, ids and clock are required")
	}
	cfg.LoadTimeout = max(cfg.LoadTimeout, 0)
	if cfg.FactCheckTimeout <= 0 {
		cfg.FactCheckTimeout = DefaultFactCheckTimeout
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}
	if deps.Scorer == nil {
		deps.Scorer = seo.New(nil)
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewStoreCache(deps.Store, deps.Clock, 0)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg, deps: deps, log: deps.Logger.Named("audit")}, nil
}

// Run audits req.URL. Only an invalid request, cancellation or a persistence
// failure produce an error; every other failure degrades the record.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	normalized := urlnorm.Normalize(req.URL)
	if normalized.Key == "" || !strings.Contains(normalized.Key, ".") {
		return Result{}, fmt.Errorf("%w: url %q", ErrInvalidRequest, req.URL)
	}
	logger := o.log.With(zap.String("domain", normalized.Key), zap.String("user_id", req.UserID))

	if req.UseCache {
		maxAge := req.MaxAge
		if maxAge <= 0 {
			maxAge = cache.DefaultMaxAge
		}
		record, ok, err := o.deps.Cache.Recent(ctx, req.UserID, normalized.Key, maxAge)
		switch {
		case err != nil:
			logger.Warn("recency lookup failed, running fresh audit", zap.Error(err))
		case ok:
			logger.Info("returning cached audit", zap.String("audit_id", record.ID))
			metrics.ObserveAudit("cached")
			return Result{Record: record, IsExisting: true}, nil
		}
	}

	id, err := o.deps.IDs.NewID()
	if err != nil {
		metrics.ObserveAudit("failed")
		return Result{}, fmt.Errorf("generate audit id: %w", err)
	}
	record := prospect.AuditRecord{
		ID:     id,
		UserID: req.UserID,
		URL:    normalized.URL,
		Domain: normalized.Key,
	}

	o.scanAccessibility(ctx, logger, normalized.URL, &record)
	claims := o.scoreContent(ctx, logger, normalized, &record)
	if err := ctx.Err(); err != nil {
		metrics.ObserveAudit("failed")
		return Result{}, fmt.Errorf("audit canceled: %w", err)
	}

	record.CreatedAt = o.deps.Clock.Now()
	stored, err := o.deps.Store.CreateAuditRecord(ctx, record)
	if err != nil {
		metrics.ObserveAudit("failed")
		return Result{}, fmt.Errorf("persist audit record: %w", err)
	}
	result := Result{Record: stored, Claims: claims}

	if asset, ok := o.registerReport(ctx, logger, stored); ok {
		result.ReportURI = asset.URI
		result.AssetID = asset.ID
	}
	if err := o.deps.Cache.Remember(ctx, stored); err != nil {
		logger.Warn("failed to index audit for recency", zap.Error(err))
	}
	o.logUsage(ctx, logger, stored)
	o.publish(ctx, logger, result)

	metrics.ObserveAudit("completed")
	logger.Info("audit completed",
		zap.String("audit_id", stored.ID),
		zap.Int("accessibility_score", stored.AccessibilityScore),
		zap.Int("overall", stored.Scores.Overall),
		zap.Bool("report", result.ReportURI != ""),
	)
	return result, nil
}

func (o *Orchestrator) scanAccessibility(ctx context.Context, logger *zap.Logger, url string, record *prospect.AuditRecord) {
	if o.deps.Scanner == nil {
		return
	}
	scanCtx, cancel := context.WithTimeout(ctx, o.cfg.ScanTimeout)
	defer cancel()

	scan, err := o.deps.Scanner.Scan(scanCtx, url)
	if err != nil {
		if errors.Is(err, prospect.ErrScannerDisabled) {
			logger.Debug("accessibility scanner disabled")
		} else {
			logger.Warn("accessibility scan failed", zap.Error(err))
		}
		return
	}
	record.AccessibilityScore = scan.Score
	record.CriticalCount = scan.CriticalCount
	record.SeriousCount = scan.SeriousCount
	record.ModerateCount = scan.ModerateCount
	record.MinorCount = scan.MinorCount
	record.TotalViolations = scan.TotalViolations
	record.TotalPasses = scan.TotalPasses
	record.WCAG = scan.WCAG
	record.Violations = scan.Violations
	record.PageTitle = scan.PageTitle
	record.PageLanguage = scan.PageLanguage
}

// scoreContent fetches and scores the page. A fetch failure leaves neutral
// midpoint scores and a single website access issue.
func (o *Orchestrator) scoreContent(ctx context.Context, logger *zap.Logger, normalized urlnorm.Normalized, record *prospect.AuditRecord) []prospect.ClaimResult {
	loadCtx := ctx
	if o.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, o.cfg.LoadTimeout)
		defer cancel()
	}
	page, err := o.deps.Loader.Load(loadCtx, normalized.URL)
	if err != nil {
		logger.Warn("content fetch failed, using neutral scores", zap.Error(err))
		record.Scores = NeutralScores()
		record.Issues = []prospect.SeoIssue{AccessIssue(err)}
		return nil
	}

	var claims []prospect.ClaimResult
	if o.deps.FactChecker != nil {
		checkCtx, cancel := context.WithTimeout(ctx, o.cfg.FactCheckTimeout)
		check, err := o.deps.FactChecker.Check(checkCtx, page.BodyText)
		cancel()
		switch {
		case errors.Is(err, prospect.ErrFactCheckDisabled):
			logger.Debug("fact checking disabled")
		case err != nil:
			logger.Warn("fact check failed", zap.Error(err))
		default:
			record.FactChecked = true
			record.FactCheckScore = check.OverallScore
			claims = check.Claims
		}
	}

	scored := o.deps.Scorer.Score(page, normalized.Key, o.deps.Clock.Now())
	record.Scores = scored.Scores
	record.Issues = scored.Issues
	record.NAP = scored.NAP
	if record.PageTitle == "" {
		record.PageTitle = page.Title
	}
	return claims
}

// NeutralScores is the midpoint breakdown used when the site could not be read.
func NeutralScores() prospect.ScoreBreakdown {
	return prospect.NewScoreBreakdown(
		prospect.MaxTechnicalSEO/2,
		prospect.MaxOnPageSEO/2,
		prospect.MaxContentMarketing/2,
		prospect.MaxLocalSEO/2,
	)
}

// AccessIssue explains why the site could not be scored.
func AccessIssue(err error) prospect.SeoIssue {
	issue := prospect.SeoIssue{
		Category: prospect.CategoryAccess,
		Severity: prospect.SeverityCritical,
	}
	switch {
	case isTimeout(err):
		issue.Issue = "Website timed out before it finished loading"
		issue.Fix = "Check hosting performance; pages should respond within a few seconds"
	case errors.Is(err, prospect.ErrNoContent):
		issue.Issue = "Website loaded but no readable content was found"
		issue.Fix = "Serve meaningful text in the page HTML instead of only scripts or images"
	default:
		issue.Issue = "Website could not be reached"
		issue.Fix = "Verify the domain resolves and the server accepts HTTPS requests"
	}
	return issue
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

func (o *Orchestrator) registerReport(ctx context.Context, logger *zap.Logger, record prospect.AuditRecord) (prospect.Asset, bool) {
	if o.deps.Reports == nil || o.deps.Blobs == nil {
		return prospect.Asset{}, false
	}
	_, pdf, err := o.deps.Reports.Generate(record)
	if err != nil {
		logger.Error("report generation failed", zap.Error(err))
		return prospect.Asset{}, false
	}
	uri, err := o.deps.Blobs.PutObject(ctx, report.ObjectPath(record), report.ContentType, bytes.NewReader(pdf))
	if err != nil {
		logger.Error("report upload failed", zap.Error(err))
		return prospect.Asset{}, false
	}
	var digest string
	if o.deps.Hasher != nil {
		if digest, err = o.deps.Hasher.Hash(pdf); err != nil {
			logger.Warn("report hash failed", zap.Error(err))
			digest = ""
		}
	}
	assetID, err := o.deps.IDs.NewID()
	if err != nil {
		logger.Error("asset id generation failed", zap.Error(err))
		return prospect.Asset{}, false
	}
	asset, err := o.deps.Store.CreateAssetReference(ctx, prospect.Asset{
		ID:          assetID,
		UserID:      record.UserID,
		AuditID:     record.ID,
		Kind:        prospect.AssetKindReport,
		URI:         uri,
		ContentHash: digest,
		SizeBytes:   int64(len(pdf)),
		CreatedAt:   o.deps.Clock.Now(),
	})
	if err != nil {
		logger.Error("report asset registration failed", zap.Error(err))
		return prospect.Asset{}, false
	}
	return asset, true
}

func (o *Orchestrator) logUsage(ctx context.Context, logger *zap.Logger, record prospect.AuditRecord) {
	if o.deps.Usage == nil {
		return
	}
	event := prospect.UsageEvent{
		UserID:        record.UserID,
		OperationType: prospect.OperationAudit,
		CostUSD:       o.cfg.CostPerAudit,
		Metadata: map[string]any{
			"audit_id":            record.ID,
			"domain":              record.Domain,
			"accessibility_score": record.AccessibilityScore,
			"overall":             record.Scores.Overall,
			"fact_checked":        record.FactChecked,
		},
	}
	if err := o.deps.Usage.LogUsage(ctx, event); err != nil {
		logger.Warn("failed to log audit usage", zap.Error(err))
	}
}

type completedEvent struct {
	AuditID            string `json:"audit_id"`
	UserID             string `json:"user_id"`
	Domain             string `json:"domain"`
	URL                string `json:"url"`
	AccessibilityScore int    `json:"accessibility_score"`
	Overall            int    `json:"overall"`
	ReportURI          string `json:"report_uri,omitempty"`
}

func (o *Orchestrator) publish(ctx context.Context, logger *zap.Logger, result Result) {
	if o.deps.Publisher == nil {
		return
	}
	event := completedEvent{
		AuditID:            result.Record.ID,
		UserID:             result.Record.UserID,
		Domain:             result.Record.Domain,
		URL:                result.Record.URL,
		AccessibilityScore: result.Record.AccessibilityScore,
		Overall:            result.Record.Scores.Overall,
		ReportURI:          result.ReportURI,
	}
	if _, err := o.deps.Publisher.Publish(ctx, TopicCompleted, event); err != nil {
		logger.Warn("failed to publish audit event", zap.Error(err))
	}
}
