package prospect

import (
	"context"
	"io"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// PageLoader fetches a URL and parses it into a ScrapedPage.
type PageLoader interface {
	Load(ctx context.Context, url string) (ScrapedPage, error)
}

// SearchProvider returns business candidates for a query.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query Query) ([]Candidate, error)
}

// AccessibilityScanner audits a page for accessibility violations. Close
// releases any browser resources held by the scanner.
type AccessibilityScanner interface {
	Scan(ctx context.Context, url string) (AccessibilityResult, error)
	Close()
}

// FactChecker scores the factual claims made in a body of text.
type FactChecker interface {
	Check(ctx context.Context, text string) (FactCheckResult, error)
}

// AuditStore is the persistence gateway for audit records and assets.
type AuditStore interface {
	CreateAuditRecord(ctx context.Context, record AuditRecord) (AuditRecord, error)
	GetAuditRecordsByUser(ctx context.Context, userID string, limit int) ([]AuditRecord, error)
	GetAuditRecordByID(ctx context.Context, id string) (AuditRecord, error)
	CreateAssetReference(ctx context.Context, asset Asset) (Asset, error)
}

// UsageLogger records billable usage.
type UsageLogger interface {
	LogUsage(ctx context.Context, event UsageEvent) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for artifact naming and integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}
