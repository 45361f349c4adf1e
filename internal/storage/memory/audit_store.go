package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// AuditStore provides an in-memory persistence gateway for development/testing.
type AuditStore struct {
	mu      sync.RWMutex
	records map[string]prospect.AuditRecord
	order   []string
	assets  map[string][]prospect.Asset
	usage   []prospect.UsageEvent
}

var (
	_ prospect.AuditStore  = (*AuditStore)(nil)
	_ prospect.UsageLogger = (*AuditStore)(nil)
)

// NewAuditStore constructs an AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		records: make(map[string]prospect.AuditRecord),
		assets:  make(map[string][]prospect.Asset),
	}
}

// CreateAuditRecord stores a new record. Records are immutable; reusing an ID fails.
func (s *AuditStore) CreateAuditRecord(_ context.Context, record prospect.AuditRecord) (prospect.AuditRecord, error) {
	if record.ID == "" {
		return prospect.AuditRecord{}, errors.New("audit record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return prospect.AuditRecord{}, fmt.Errorf("audit record %s already exists", record.ID)
	}
	stored := cloneRecord(record)
	s.records[record.ID] = stored
	s.order = append(s.order, record.ID)
	return cloneRecord(stored), nil
}

// GetAuditRecordsByUser returns the user's records newest first, at most limit
// when limit is positive.
func (s *AuditStore) GetAuditRecordsByUser(_ context.Context, userID string, limit int) ([]prospect.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []prospect.AuditRecord
	for _, id := range s.order {
		if record := s.records[id]; record.UserID == userID {
			out = append(out, cloneRecord(record))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetAuditRecordByID fetches a record or returns prospect.ErrNotFound.
func (s *AuditStore) GetAuditRecordByID(_ context.Context, id string) (prospect.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return prospect.AuditRecord{}, fmt.Errorf("audit record %s: %w", id, prospect.ErrNotFound)
	}
	return cloneRecord(record), nil
}

// CreateAssetReference registers an artifact for an existing audit.
func (s *AuditStore) CreateAssetReference(_ context.Context, asset prospect.Asset) (prospect.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[asset.AuditID]; !ok {
		return prospect.Asset{}, fmt.Errorf("audit record %s: %w", asset.AuditID, prospect.ErrNotFound)
	}
	s.assets[asset.AuditID] = append(s.assets[asset.AuditID], asset)
	return asset, nil
}

// Assets returns the assets registered for an audit.
func (s *AuditStore) Assets(auditID string) []prospect.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]prospect.Asset(nil), s.assets[auditID]...)
}

// LogUsage records a usage event.
func (s *AuditStore) LogUsage(_ context.Context, event prospect.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, event)
	return nil
}

// Usage returns the recorded usage events.
func (s *AuditStore) Usage() []prospect.UsageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]prospect.UsageEvent(nil), s.usage...)
}

func cloneRecord(record prospect.AuditRecord) prospect.AuditRecord {
	record.Violations = append([]prospect.Violation(nil), record.Violations...)
	record.Issues = append([]prospect.SeoIssue(nil), record.Issues...)
	return record
}
