package prospect

import "errors"

// Sentinel errors surfaced by the pipeline. Callers match them with errors.Is.
var (
	// ErrNoContent reports that a page was fetched (or attempted) but no usable
	// text could be extracted. It is a page-level failure, never a zero score.
	ErrNoContent = errors.New("could not extract content")
	// ErrNoLeads is returned by discovery when no lead of any rating was found.
	ErrNoLeads = errors.New("no leads found")
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrSearchUnavailable is returned by a single search provider that cannot serve a query.
	ErrSearchUnavailable = errors.New("search provider unavailable")
	// ErrFactCheckDisabled is returned by the noop fact checker.
	ErrFactCheckDisabled = errors.New("fact checking not configured")
	// ErrScannerDisabled is returned by the noop accessibility scanner.
	ErrScannerDisabled = errors.New("accessibility scanner not configured")
)
