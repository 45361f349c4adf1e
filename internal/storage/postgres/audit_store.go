// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// DefaultListLimit caps GetAuditRecordsByUser when callers pass a non-positive limit.
const DefaultListLimit = 100

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// Migrate applies the embedded schema migrations on Connect.
	Migrate bool
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// Store persists audit records, asset references and usage rows.
type Store struct {
	pool pool
}

var (
	_ prospect.AuditStore  = (*Store)(nil)
	_ prospect.UsageLogger = (*Store)(nil)
)

// Connect opens a pool, verifies it with a ping and optionally migrates the schema.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	poolCfg.HealthCheckPeriod = time.Minute

	pgPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if cfg.Migrate {
		if err := Migrate(ctx, pgPool); err != nil {
			pgPool.Close()
			return nil, err
		}
	}
	return &Store{pool: pgPool}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const auditColumns = `id, user_id, url, domain, created_at,
	accessibility_score, critical_count, serious_count, moderate_count, minor_count,
	total_violations, total_passes, wcag_breakdown, violations, page_title, page_language,
	technical_seo, on_page_seo, content_marketing, local_seo, overall_score,
	fact_check_score, fact_checked, issues, nap`

// CreateAuditRecord inserts a new immutable record.
func (s *Store) CreateAuditRecord(ctx context.Context, record prospect.AuditRecord) (prospect.AuditRecord, error) {
	if record.ID == "" {
		return prospect.AuditRecord{}, fmt.Errorf("audit record id is required")
	}
	wcag, err := json.Marshal(record.WCAG)
	if err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("marshal wcag breakdown: %w", err)
	}
	violations, err := marshalList(record.Violations)
	if err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("marshal violations: %w", err)
	}
	issues, err := marshalList(record.Issues)
	if err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("marshal issues: %w", err)
	}
	nap, err := json.Marshal(record.NAP)
	if err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("marshal nap: %w", err)
	}

	query := `INSERT INTO audit_records (` + auditColumns + `) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25
)`
	args := []any{
		record.ID,
		record.UserID,
		record.URL,
		record.Domain,
		record.CreatedAt,
		record.AccessibilityScore,
		record.CriticalCount,
		record.SeriousCount,
		record.ModerateCount,
		record.MinorCount,
		record.TotalViolations,
		record.TotalPasses,
		wcag,
		violations,
		record.PageTitle,
		record.PageLanguage,
		record.Scores.TechnicalSEO,
		record.Scores.OnPageSEO,
		record.Scores.ContentMarketing,
		record.Scores.LocalSEO,
		record.Scores.Overall,
		record.FactCheckScore,
		record.FactChecked,
		issues,
		nap,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("insert audit record: %w", err)
	}
	return record, nil
}

// GetAuditRecordsByUser returns the user's records newest first.
func (s *Store) GetAuditRecordsByUser(ctx context.Context, userID string, limit int) ([]prospect.AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []prospect.AuditRecord
	for rows.Next() {
		record, err := scanAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

// GetAuditRecordByID fetches a record or returns prospect.ErrNotFound.
func (s *Store) GetAuditRecordByID(ctx context.Context, id string) (prospect.AuditRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_records WHERE id = $1`, id)
	record, err := scanAuditRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return prospect.AuditRecord{}, fmt.Errorf("audit record %s: %w", id, prospect.ErrNotFound)
	}
	if err != nil {
		return prospect.AuditRecord{}, err
	}
	return record, nil
}

// CreateAssetReference registers a stored artifact for an audit.
func (s *Store) CreateAssetReference(ctx context.Context, asset prospect.Asset) (prospect.Asset, error) {
	if asset.ID == "" {
		return prospect.Asset{}, fmt.Errorf("asset id is required")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO assets (id, user_id, audit_id, kind, uri, content_hash, size_bytes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		asset.ID,
		asset.UserID,
		asset.AuditID,
		asset.Kind,
		asset.URI,
		asset.ContentHash,
		asset.SizeBytes,
		asset.CreatedAt,
	)
	if err != nil {
		return prospect.Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

// LogUsage appends a row to usage_logs.
func (s *Store) LogUsage(ctx context.Context, event prospect.UsageEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal usage metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO usage_logs (user_id, operation_type, cost_usd, tokens_used, metadata)
VALUES ($1,$2,$3,$4,$5)`,
		event.UserID,
		event.OperationType,
		event.CostUSD,
		event.TokensUsed,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuditRecord(row scanner) (prospect.AuditRecord, error) {
	var record prospect.AuditRecord
	var wcag, violations, issues, nap []byte
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.URL,
		&record.Domain,
		&record.CreatedAt,
		&record.AccessibilityScore,
		&record.CriticalCount,
		&record.SeriousCount,
		&record.ModerateCount,
		&record.MinorCount,
		&record.TotalViolations,
		&record.TotalPasses,
		&wcag,
		&violations,
		&record.PageTitle,
		&record.PageLanguage,
		&record.Scores.TechnicalSEO,
		&record.Scores.OnPageSEO,
		&record.Scores.ContentMarketing,
		&record.Scores.LocalSEO,
		&record.Scores.Overall,
		&record.FactCheckScore,
		&record.FactChecked,
		&issues,
		&nap,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return prospect.AuditRecord{}, err
	}
	if err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("scan audit record: %w", err)
	}
	if err := unmarshalColumn(wcag, &record.WCAG); err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("decode wcag breakdown: %w", err)
	}
	if err := unmarshalColumn(violations, &record.Violations); err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("decode violations: %w", err)
	}
	if err := unmarshalColumn(issues, &record.Issues); err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("decode issues: %w", err)
	}
	if err := unmarshalColumn(nap, &record.NAP); err != nil {
		return prospect.AuditRecord{}, fmt.Errorf("decode nap: %w", err)
	}
	return record, nil
}

// marshalList encodes nil slices as an empty JSON array.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func unmarshalColumn(data []byte, dest any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
