package headless

import (
	"context"
	"errors"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// ErrDisabled is returned by Noop.
var ErrDisabled = errors.New("headless fetcher not configured")

// Noop implements prospect.Fetcher but always fails, so a chain configured
// without a browser keeps the HTTP result.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Name identifies the strategy in logs and metrics.
func (Noop) Name() string { return "headless-disabled" }

// Fetch returns ErrDisabled.
func (Noop) Fetch(_ context.Context, _ prospect.FetchRequest) (prospect.FetchResponse, error) {
	return prospect.FetchResponse{}, ErrDisabled
}

// Close is a no-op.
func (Noop) Close() {}
