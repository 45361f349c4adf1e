// Package app initializes and holds long-lived application services, acting as
// a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/accessibility"
	"github.com/JakeFAU/prospect-auditor/internal/audit"
	"github.com/JakeFAU/prospect-auditor/internal/cache"
	rediscache "github.com/JakeFAU/prospect-auditor/internal/cache/redis"
	"github.com/JakeFAU/prospect-auditor/internal/clock/system"
	"github.com/JakeFAU/prospect-auditor/internal/config"
	"github.com/JakeFAU/prospect-auditor/internal/discovery"
	"github.com/JakeFAU/prospect-auditor/internal/factcheck"
	"github.com/JakeFAU/prospect-auditor/internal/fetcher/chain"
	collyfetcher "github.com/JakeFAU/prospect-auditor/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/prospect-auditor/internal/fetcher/headless"
	"github.com/JakeFAU/prospect-auditor/internal/hash/sha256"
	"github.com/JakeFAU/prospect-auditor/internal/headless/detector"
	"github.com/JakeFAU/prospect-auditor/internal/heuristics"
	"github.com/JakeFAU/prospect-auditor/internal/id/uuid"
	"github.com/JakeFAU/prospect-auditor/internal/metrics"
	"github.com/JakeFAU/prospect-auditor/internal/policy/ratelimit"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
	pubsubpublisher "github.com/JakeFAU/prospect-auditor/internal/publisher/pubsub"
	"github.com/JakeFAU/prospect-auditor/internal/report"
	"github.com/JakeFAU/prospect-auditor/internal/search"
	"github.com/JakeFAU/prospect-auditor/internal/search/brave"
	"github.com/JakeFAU/prospect-auditor/internal/search/htmlsearch"
	"github.com/JakeFAU/prospect-auditor/internal/seo"
	"github.com/JakeFAU/prospect-auditor/internal/storage/gcs"
	"github.com/JakeFAU/prospect-auditor/internal/storage/local"
	"github.com/JakeFAU/prospect-auditor/internal/storage/memory"
	"github.com/JakeFAU/prospect-auditor/internal/storage/postgres"
	"github.com/JakeFAU/prospect-auditor/internal/usage"
)

// App holds all the shared, long-lived services for the application. It is
// built once at startup; Close releases everything it opened.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Store      prospect.AuditStore
	Auditor    *audit.Orchestrator
	Discoverer *discovery.Controller
	Reports    *report.Generator

	closers []closer
	probes  []func(ctx context.Context) error
	closed  bool
}

type closer struct {
	name string
	fn   func() error
}

// New creates every service named by cfg. It fails fast when a configured
// backend cannot be reached; whatever was opened before the failure is closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (a *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	logger.Info("initializing application services")
	clock := system.New()
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.HTTP.RequestsPerSecond,
		DefaultBurst: cfg.HTTP.Burst,
	})
	rules := heuristics.NewDefault(cfg.Search.BlockedDomains...)
	scorer := seo.New(rules)

	store, usageStore, err := a.buildStore(ctx)
	if err != nil {
		return a, err
	}
	a.Store = store

	blobs, err := a.buildBlobs(ctx)
	if err != nil {
		return a, err
	}
	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		return a, err
	}
	recency, err := a.buildRecency(ctx, store, clock)
	if err != nil {
		return a, err
	}
	loader, err := a.buildLoader(limiter)
	if err != nil {
		return a, err
	}
	scanner, err := a.buildScanner()
	if err != nil {
		return a, err
	}
	checker, err := a.buildFactChecker()
	if err != nil {
		return a, err
	}
	usageLogger := a.buildUsage(usageStore)

	a.Reports = report.NewGenerator(cfg.Branding(), clock)

	a.Auditor, err = audit.New(audit.Config{
		LoadTimeout:      loader.Budget(),
		ScanTimeout:      cfg.ScanTimeout(),
		FactCheckTimeout: time.Duration(cfg.FactCheck.TimeoutSeconds) * time.Second,
		CostPerAudit:     cfg.Audit.CostPerAudit,
	}, audit.Deps{
		Loader:      loader,
		Scanner:     scanner,
		FactChecker: checker,
		Scorer:      scorer,
		Store:       store,
		Cache:       recency,
		Reports:     a.Reports,
		Blobs:       blobs,
		Hasher:      sha256.New(),
		IDs:         uuid.New(),
		Usage:       usageLogger,
		Publisher:   publisher,
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return a, fmt.Errorf("init audit orchestrator: %w", err)
	}

	a.Discoverer, err = discovery.New(discovery.Config{
		MaxAttempts: cfg.Discovery.MaxAttempts,
		PageSize:    cfg.Discovery.PageSize,
		CostPerLead: cfg.Discovery.CostPerLead,
	}, discovery.Deps{
		Search:    a.buildSearch(rules, limiter),
		Loader:    loader,
		Scorer:    scorer,
		Usage:     usageLogger,
		Publisher: publisher,
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return a, fmt.Errorf("init discovery controller: %w", err)
	}

	logger.Info("application services initialized")
	return a, nil
}

// Ready runs every downstream health probe.
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	for _, probe := range a.probes {
		errs = append(errs, probe(ctx))
	}
	return errors.Join(errs...)
}

// Close shuts down services in reverse order of creation. Safe to call more
// than once.
func (a *App) Close() {
	if a == nil || a.closed {
		return
	}
	a.closed = true
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.Logger.Warn("error closing service", zap.String("service", c.name), zap.Error(err))
		}
	}
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) buildStore(ctx context.Context) (prospect.AuditStore, prospect.UsageLogger, error) {
	cfg := a.Config.DB
	if cfg.DSN == "" {
		a.Logger.Info("using in-memory audit store")
		store := memory.NewAuditStore()
		return store, store, nil
	}
	a.Logger.Info("connecting to postgres", zap.Bool("migrate", cfg.Migrate))
	store, err := postgres.Connect(ctx, postgres.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: time.Duration(cfg.MaxConnLifetimeMinutes) * time.Minute,
		Migrate:         cfg.Migrate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres: %w", err)
	}
	a.onClose("postgres", func() error {
		store.Close()
		return nil
	})
	a.probes = append(a.probes, store.Ping)
	return store, store, nil
}

func (a *App) buildBlobs(ctx context.Context) (prospect.BlobStore, error) {
	cfg := a.Config.Storage
	switch cfg.Backend {
	case config.StorageGCS:
		a.Logger.Info("using gcs report storage", zap.String("bucket", cfg.GCSBucket))
		store, closeFn, err := gcs.Connect(ctx, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.Prefix})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		a.onClose("gcs", closeFn)
		return store, nil
	case config.StorageLocal:
		a.Logger.Info("using local report storage", zap.String("dir", cfg.LocalDir))
		store, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case config.StorageMemory:
		return memory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

func (a *App) buildPublisher(ctx context.Context) (prospect.Publisher, error) {
	cfg := a.Config.PubSub
	if !cfg.Enabled {
		return nil, nil
	}
	a.Logger.Info("connecting to pubsub", zap.String("topic", cfg.TopicID))
	publisher, closeFn, err := pubsubpublisher.Connect(ctx, pubsubpublisher.Config{
		ProjectID: cfg.ProjectID,
		TopicID:   cfg.TopicID,
	})
	if err != nil {
		return nil, fmt.Errorf("init pubsub: %w", err)
	}
	a.onClose("pubsub", closeFn)
	return publisher, nil
}

func (a *App) buildRecency(ctx context.Context, store prospect.AuditStore, clock prospect.Clock) (cache.Recency, error) {
	cfg := a.Config.Redis
	if cfg.Addr == "" {
		return cache.NewStoreCache(store, clock, 0), nil
	}
	a.Logger.Info("connecting to redis", zap.String("addr", cfg.Addr))
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.onClose("redis", client.Close)
	a.probes = append(a.probes, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		return nil
	})
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	return rediscache.New(client, store, clock, ttl), nil
}

func (a *App) buildLoader(limiter *ratelimit.Limiter) (*chain.Loader, error) {
	cfg := a.Config
	strategies := []chain.Strategy{
		collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.HTTP.UserAgent,
			RespectRobots: cfg.HTTP.RespectRobots,
			Timeout:       cfg.HTTPTimeout(),
			MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		}),
	}
	if cfg.Headless.Enabled {
		headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:        cfg.Headless.MaxParallel,
			UserAgent:          cfg.HTTP.UserAgent,
			NavigationTimeout:  time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			NetworkIdleTimeout: time.Duration(cfg.Headless.NetworkIdleTimeoutSec) * time.Second,
			SettleDelay:        time.Duration(cfg.Headless.SettleDelayMs) * time.Millisecond,
			ExecPath:           cfg.Headless.ExecPath,
		})
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		a.onClose("headless", func() error {
			headless.Close()
			return nil
		})
		strategies = append(strategies, headless)
	}
	return chain.New(
		detector.NewThinContent(cfg.Headless.MinBodyChars),
		strategies,
		chain.WithLimiter(limiter),
		chain.WithAttemptTimeout(cfg.FetchTimeout()),
		chain.WithLogger(a.Logger.Named("fetch")),
	), nil
}

func (a *App) buildSearch(rules heuristics.Rules, limiter *ratelimit.Limiter) prospect.SearchProvider {
	cfg := a.Config.Search
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	var providers []prospect.SearchProvider
	if cfg.Provider == "brave" {
		if cfg.BraveAPIKey == "" {
			a.Logger.Warn("brave search selected without an api key; skipping provider")
		} else {
			providers = append(providers, brave.New(brave.Config{
				Endpoint: cfg.BraveEndpoint,
				APIKey:   cfg.BraveAPIKey,
				Timeout:  timeout,
			}, nil, limiter))
		}
	}
	if cfg.Provider == "duckduckgo" || cfg.HTMLFallback {
		providers = append(providers, htmlsearch.New(htmlsearch.Config{
			Endpoint:  cfg.HTMLEndpoint,
			UserAgent: a.Config.HTTP.UserAgent,
			Timeout:   timeout,
		}, limiter))
	}
	if len(providers) == 0 {
		a.Logger.Warn("no search providers configured; discovery will find no leads")
	}
	return search.NewChain(rules, a.Logger.Named("search"), providers...)
}

func (a *App) buildScanner() (prospect.AccessibilityScanner, error) {
	cfg := a.Config.Accessibility
	if !cfg.Enabled {
		return accessibility.Noop{}, nil
	}
	var script string
	if cfg.ScriptPath != "" {
		data, err := os.ReadFile(cfg.ScriptPath)
		if err != nil {
			return nil, fmt.Errorf("read axe script: %w", err)
		}
		script = string(data)
	}
	scanner := accessibility.New(accessibility.Config{
		ScriptURL:   cfg.ScriptURL,
		Script:      script,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		SettleDelay: time.Duration(a.Config.Headless.SettleDelayMs) * time.Millisecond,
		UserAgent:   a.Config.HTTP.UserAgent,
		ExecPath:    a.Config.Headless.ExecPath,
	})
	a.onClose("accessibility", func() error {
		scanner.Close()
		return nil
	})
	return scanner, nil
}

func (a *App) buildFactChecker() (prospect.FactChecker, error) {
	cfg := a.Config.FactCheck
	if !cfg.Enabled {
		return factcheck.Noop{}, nil
	}
	client, err := factcheck.New(factcheck.Config{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxChars: cfg.MaxChars,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("init fact checker: %w", err)
	}
	return client, nil
}

func (a *App) buildUsage(store prospect.UsageLogger) prospect.UsageLogger {
	logged := usage.NewLogger(a.Logger)
	switch a.Config.Usage.Sink {
	case config.UsagePostgres:
		return store
	case config.UsageBoth:
		return usage.Fanout{logged, store}
	default:
		return logged
	}
}
