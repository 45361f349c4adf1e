// Package config loads and validates auditor configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/prospect-auditor/internal/report"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Headless      HeadlessConfig      `mapstructure:"headless"`
	Search        SearchConfig        `mapstructure:"search"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Discovery     DiscoveryConfig     `mapstructure:"discovery"`
	Accessibility AccessibilityConfig `mapstructure:"accessibility"`
	FactCheck     FactCheckConfig     `mapstructure:"factcheck"`
	Storage       StorageConfig       `mapstructure:"storage"`
	DB            DBConfig            `mapstructure:"db"`
	Redis         RedisConfig         `mapstructure:"redis"`
	PubSub        PubSubConfig        `mapstructure:"pubsub"`
	Report        ReportConfig        `mapstructure:"report"`
	Usage         UsageConfig         `mapstructure:"usage"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                int `mapstructure:"port"`
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the stage-1 fetcher and outbound politeness.
type HTTPConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	UserAgent         string  `mapstructure:"user_agent"`
	RespectRobots     bool    `mapstructure:"respect_robots"`
	MaxBodyBytes      int     `mapstructure:"max_body_bytes"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// HeadlessConfig configures the browser-rendering fallback.
type HeadlessConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	MaxParallel           int    `mapstructure:"max_parallel"`
	NavTimeoutSec         int    `mapstructure:"nav_timeout_seconds"`
	NetworkIdleTimeoutSec int    `mapstructure:"network_idle_timeout_seconds"`
	SettleDelayMs         int    `mapstructure:"settle_delay_ms"`
	MinBodyChars          int    `mapstructure:"min_body_chars"`
	ExecPath              string `mapstructure:"exec_path"`
}

// SearchConfig selects and configures business search providers.
type SearchConfig struct {
	Provider       string   `mapstructure:"provider"`
	BraveAPIKey    string   `mapstructure:"brave_api_key"`
	BraveEndpoint  string   `mapstructure:"brave_endpoint"`
	HTMLFallback   bool     `mapstructure:"html_fallback"`
	HTMLEndpoint   string   `mapstructure:"html_endpoint"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	BlockedDomains []string `mapstructure:"blocked_domains"`
}

// AuditConfig tunes single-site audits.
type AuditConfig struct {
	FetchTimeoutSeconds int     `mapstructure:"fetch_timeout_seconds"`
	ScanTimeoutSeconds  int     `mapstructure:"scan_timeout_seconds"`
	CacheMaxAgeHours    int     `mapstructure:"cache_max_age_hours"`
	CostPerAudit        float64 `mapstructure:"cost_per_audit"`
}

// DiscoveryConfig bounds the discovery loop.
type DiscoveryConfig struct {
	MaxAttempts   int     `mapstructure:"max_attempts"`
	PageSize      int     `mapstructure:"page_size"`
	DefaultTarget int     `mapstructure:"default_target"`
	CostPerLead   float64 `mapstructure:"cost_per_lead"`
}

// AccessibilityConfig configures the axe-core scanner.
type AccessibilityConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ScriptURL      string `mapstructure:"script_url"`
	ScriptPath     string `mapstructure:"script_path"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// FactCheckConfig configures the remote fact-check service.
type FactCheckConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxChars       int    `mapstructure:"max_chars"`
}

// Storage backends for rendered reports.
const (
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageGCS    = "gcs"
)

// StorageConfig selects where rendered reports are written.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to Postgres. An empty DSN keeps records in memory.
type DBConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
	Migrate                bool   `mapstructure:"migrate"`
}

// RedisConfig enables the Redis recency index when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// PubSubConfig holds metadata for completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ReportConfig carries optional agency branding for report footers.
type ReportConfig struct {
	AgencyName   string `mapstructure:"agency_name"`
	Website      string `mapstructure:"website"`
	ContactEmail string `mapstructure:"contact_email"`
}

// Branding maps the report section onto report branding.
func (c Config) Branding() report.Branding {
	return report.Branding{
		AgencyName:   c.Report.AgencyName,
		Website:      c.Report.Website,
		ContactEmail: c.Report.ContactEmail,
	}
}

// Usage sinks.
const (
	UsageLog      = "log"
	UsagePostgres = "postgres"
	UsageBoth     = "both"
)

// UsageConfig selects where usage events are written.
type UsageConfig struct {
	Sink string `mapstructure:"sink"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 180)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.max_body_bytes", 5<<20)
	v.SetDefault("http.requests_per_second", 1.0)
	v.SetDefault("http.burst", 2)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.network_idle_timeout_seconds", 10)
	v.SetDefault("headless.settle_delay_ms", 2000)
	v.SetDefault("headless.min_body_chars", 200)
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("search.provider", "brave")
	v.SetDefault("search.brave_api_key", "")
	v.SetDefault("search.brave_endpoint", "")
	v.SetDefault("search.html_fallback", true)
	v.SetDefault("search.html_endpoint", "")
	v.SetDefault("search.timeout_seconds", 10)
	v.SetDefault("search.blocked_domains", []string{})
	v.SetDefault("audit.fetch_timeout_seconds", 15)
	v.SetDefault("audit.scan_timeout_seconds", 60)
	v.SetDefault("audit.cache_max_age_hours", 24)
	v.SetDefault("audit.cost_per_audit", 0.0)
	v.SetDefault("discovery.max_attempts", 3)
	v.SetDefault("discovery.page_size", 20)
	v.SetDefault("discovery.default_target", 15)
	v.SetDefault("discovery.cost_per_lead", 0.0)
	v.SetDefault("accessibility.enabled", false)
	v.SetDefault("accessibility.script_url", "")
	v.SetDefault("accessibility.script_path", "")
	v.SetDefault("accessibility.timeout_seconds", 45)
	v.SetDefault("factcheck.enabled", false)
	v.SetDefault("factcheck.endpoint", "")
	v.SetDefault("factcheck.api_key", "")
	v.SetDefault("factcheck.timeout_seconds", 30)
	v.SetDefault("factcheck.max_chars", 8000)
	v.SetDefault("storage.backend", StorageMemory)
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("db.migrate", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl_hours", 168)
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_id", "")
	v.SetDefault("report.agency_name", "")
	v.SetDefault("report.website", "")
	v.SetDefault("report.contact_email", "")
	v.SetDefault("usage.sink", UsageLog)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("http.requests_per_second must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Search.Provider {
	case "brave", "duckduckgo":
	default:
		return fmt.Errorf("search.provider must be brave or duckduckgo, got %q", c.Search.Provider)
	}
	if c.Discovery.PageSize <= 0 || c.Discovery.PageSize > 20 {
		return fmt.Errorf("discovery.page_size must be between 1 and 20")
	}
	if c.Discovery.MaxAttempts <= 0 {
		return fmt.Errorf("discovery.max_attempts must be > 0")
	}
	if c.Audit.CacheMaxAgeHours <= 0 {
		return fmt.Errorf("audit.cache_max_age_hours must be > 0")
	}
	if c.FactCheck.Enabled && c.FactCheck.Endpoint == "" {
		return fmt.Errorf("factcheck.endpoint must be set when fact checking is enabled")
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory, local or gcs, got %q", c.Storage.Backend)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicID == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_id must be set when pubsub is enabled")
	}
	switch c.Usage.Sink {
	case UsageLog:
	case UsagePostgres, UsageBoth:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when usage.sink is %s", c.Usage.Sink)
		}
	default:
		return fmt.Errorf("usage.sink must be log, postgres or both, got %q", c.Usage.Sink)
	}
	return nil
}

// HTTPTimeout is the stage-1 request timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// CacheMaxAge is the default recency window for audits.
func (c Config) CacheMaxAge() time.Duration {
	return time.Duration(c.Audit.CacheMaxAgeHours) * time.Hour
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// FetchTimeout bounds each fetch stage of an audit page load.
func (c Config) FetchTimeout() time.Duration { return seconds(c.Audit.FetchTimeoutSeconds) }

// ScanTimeout bounds the accessibility scan of one audit.
func (c Config) ScanTimeout() time.Duration { return seconds(c.Audit.ScanTimeoutSeconds) }

// ServerTimeouts returns the read and write timeouts of the HTTP server.
func (c Config) ServerTimeouts() (time.Duration, time.Duration) {
	return seconds(c.Server.ReadTimeoutSeconds), seconds(c.Server.WriteTimeoutSeconds)
}
