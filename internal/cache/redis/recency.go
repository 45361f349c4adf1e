// Package redis keeps a domain to latest-audit index in Redis with a TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/prospect-auditor/internal/cache"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

const recentAuditPrefix = "audit:recent:"

// DefaultTTL is how long an index entry survives without refresh.
const DefaultTTL = 7 * 24 * time.Hour

type entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Recency resolves cache hits through Redis and loads the record from the store.
type Recency struct {
	client *redis.Client
	store  prospect.AuditStore
	clock  prospect.Clock
	ttl    time.Duration
}

var _ cache.Recency = (*Recency)(nil)

// New builds a Recency. A non-positive ttl selects DefaultTTL.
func New(client *redis.Client, store prospect.AuditStore, clock prospect.Clock, ttl time.Duration) *Recency {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Recency{client: client, store: store, clock: clock, ttl: ttl}
}

func (r *Recency) key(userID, domain string) string {
	return fmt.Sprintf("%s%s:%s", recentAuditPrefix, userID, domain)
}

// Recent returns the indexed record when it is within maxAge.
func (r *Recency) Recent(ctx context.Context, userID, domain string, maxAge time.Duration) (prospect.AuditRecord, bool, error) {
	if maxAge <= 0 {
		maxAge = cache.DefaultMaxAge
	}
	raw, err := r.client.Get(ctx, r.key(userID, domain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return prospect.AuditRecord{}, false, nil
	}
	if err != nil {
		return prospect.AuditRecord{}, false, fmt.Errorf("redis get: %w", err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return prospect.AuditRecord{}, false, fmt.Errorf("decode recency entry: %w", err)
	}
	if r.clock.Now().Sub(e.CreatedAt) > maxAge {
		return prospect.AuditRecord{}, false, nil
	}
	record, err := r.store.GetAuditRecordByID(ctx, e.ID)
	if errors.Is(err, prospect.ErrNotFound) {
		return prospect.AuditRecord{}, false, nil
	}
	if err != nil {
		return prospect.AuditRecord{}, false, fmt.Errorf("load audit %s: %w", e.ID, err)
	}
	return record, true, nil
}

// Remember points the user's domain entry at record.
func (r *Recency) Remember(ctx context.Context, record prospect.AuditRecord) error {
	data, err := json.Marshal(entry{ID: record.ID, CreatedAt: record.CreatedAt})
	if err != nil {
		return fmt.Errorf("encode recency entry: %w", err)
	}
	if err := r.client.Set(ctx, r.key(record.UserID, record.Domain), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Forget drops the entry so the next audit runs fresh.
func (r *Recency) Forget(ctx context.Context, userID, domain string) error {
	if err := r.client.Del(ctx, r.key(userID, domain)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
