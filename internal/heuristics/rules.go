// Package heuristics holds the pattern rules the scorer and search filter rely
// on: contact (NAP) extraction, location keywords and domain classification.
package heuristics

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// Rules is the swappable set of heuristic patterns.
type Rules interface {
	ExtractNAP(text string) prospect.NAPDetails
	HasLocationKeyword(text string) bool
	IsBlocked(host string) bool
	IsHighAuthority(host string) bool
}

var (
	phonePattern    = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\b[2-9]\d{2}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	emailPattern    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	locationPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+)*,\s?[A-Z]{2}\b`)
)

// addressPattern matches "<number> <1-4 words> <street suffix>".
var addressPattern = regexp.MustCompile(
	`(?i)\b\d{1,6}\s+(?:[a-z][a-z0-9.'-]*\s+){1,4}?` +
		`(?:street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct|` +
		`parkway|pkwy|highway|hwy|place|pl|circle|cir|trail|trl|square|sq)\b\.?`)

// Default is the built-in rule set.
type Default struct {
	blocklist *substringBlocklist
	authority *authority
}

var _ Rules = (*Default)(nil)

// NewDefault builds the default rules. Extra blocklist entries are appended to
// the built-in directory and social list.
func NewDefault(extraBlocked ...string) *Default {
	entries := append(append([]string(nil), defaultBlocklist...), extraBlocked...)
	return &Default{
		blocklist: newSubstringBlocklist(entries),
		authority: newAuthority(defaultBrands, defaultCorporateTokens),
	}
}

// ExtractNAP returns the first phone, street address and email found in text.
func (d *Default) ExtractNAP(text string) prospect.NAPDetails {
	return prospect.NAPDetails{
		Phone:   strings.TrimSpace(phonePattern.FindString(text)),
		Address: strings.TrimSpace(addressPattern.FindString(text)),
		Email:   emailPattern.FindString(text),
	}
}

// HasLocationKeyword reports whether text mentions a "City, ST" style location.
func (d *Default) HasLocationKeyword(text string) bool {
	return locationPattern.MatchString(text)
}

// IsBlocked reports whether host belongs to a directory, social network or listing site.
func (d *Default) IsBlocked(host string) bool {
	return d.blocklist.IsBlocked(host)
}

// IsHighAuthority reports whether host looks like an institution, national
// brand or corporate entity rather than a local business.
func (d *Default) IsHighAuthority(host string) bool {
	return d.authority.matches(host)
}
