package accessibility

import (
	"context"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// Noop is used when no browser is available. Audits still complete with a
// zeroed accessibility section.
type Noop struct{}

var _ prospect.AccessibilityScanner = Noop{}

// Scan always returns prospect.ErrScannerDisabled.
func (Noop) Scan(context.Context, string) (prospect.AccessibilityResult, error) {
	return prospect.AccessibilityResult{}, prospect.ErrScannerDisabled
}

// Close is a no-op.
func (Noop) Close() {}
