// Package detector decides when a lightweight fetch is too thin and the page
// must be rendered in a browser.
package detector

import (
	"github.com/JakeFAU/prospect-auditor/internal/extract"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// DefaultMinContentChars is the extracted-text floor below which a fetch is thin.
const DefaultMinContentChars = 200

// ThinContent promotes responses whose extractable main content is too short.
type ThinContent struct {
	MinContentChars int
}

// NewThinContent creates a new detector.
func NewThinContent(minChars int) *ThinContent {
	if minChars <= 0 {
		minChars = DefaultMinContentChars
	}
	return &ThinContent{MinContentChars: minChars}
}

// ShouldPromote reports whether the next fetch strategy should be tried.
func (d *ThinContent) ShouldPromote(resp prospect.FetchResponse) bool {
	return d.ContentLength(resp) < d.MinContentChars
}

// ContentLength returns the length of the extractable main text of resp.
func (d *ThinContent) ContentLength(resp prospect.FetchResponse) int {
	if len(resp.Body) == 0 {
		return 0
	}
	text, err := extract.MainText(resp.Body)
	if err != nil {
		return 0
	}
	return len(text)
}
