// Package cache answers whether a recent-enough audit already exists for a
// domain so the orchestrator can skip redundant work.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// DefaultMaxAge is the recency window used when callers pass zero.
const DefaultMaxAge = 24 * time.Hour

// Recency looks up and records audits by user and domain.
type Recency interface {
	Recent(ctx context.Context, userID, domain string, maxAge time.Duration) (prospect.AuditRecord, bool, error)
	Remember(ctx context.Context, record prospect.AuditRecord) error
}

// DefaultScanLimit bounds how many of a user's records are scanned per lookup.
const DefaultScanLimit = 100

// StoreCache answers lookups from the persistence gateway.
type StoreCache struct {
	store     prospect.AuditStore
	clock     prospect.Clock
	scanLimit int
}

var _ Recency = (*StoreCache)(nil)

// NewStoreCache builds a StoreCache. A non-positive scanLimit selects DefaultScanLimit.
func NewStoreCache(store prospect.AuditStore, clock prospect.Clock, scanLimit int) *StoreCache {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &StoreCache{store: store, clock: clock, scanLimit: scanLimit}
}

// Recent returns the newest record for domain created within maxAge.
func (c *StoreCache) Recent(ctx context.Context, userID, domain string, maxAge time.Duration) (prospect.AuditRecord, bool, error) {
	records, err := c.store.GetAuditRecordsByUser(ctx, userID, c.scanLimit)
	if err != nil {
		return prospect.AuditRecord{}, false, fmt.Errorf("list audit records: %w", err)
	}
	record, ok := Newest(records, domain, c.clock.Now(), maxAge)
	return record, ok, nil
}

// Remember is a no-op; the store already holds every record.
func (c *StoreCache) Remember(context.Context, prospect.AuditRecord) error { return nil }

// Newest picks the most recent record for domain that is no older than maxAge at now.
func Newest(records []prospect.AuditRecord, domain string, now time.Time, maxAge time.Duration) (prospect.AuditRecord, bool) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	var (
		best  prospect.AuditRecord
		found bool
	)
	for _, record := range records {
		if record.Domain != domain || !Fresh(record, now, maxAge) {
			continue
		}
		if !found || record.CreatedAt.After(best.CreatedAt) {
			best = record
			found = true
		}
	}
	return best, found
}

// Fresh reports whether record is within maxAge of now.
func Fresh(record prospect.AuditRecord, now time.Time, maxAge time.Duration) bool {
	return now.Sub(record.CreatedAt) <= maxAge
}
