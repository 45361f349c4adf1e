// Package urlnorm canonicalizes raw domains and URLs into fetchable absolute
// URLs and bare-domain comparison keys.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalized is the result of canonicalizing a raw domain or URL.
type Normalized struct {
	// URL is an absolute, fetchable URL.
	URL string
	// Key is the lowercase hostname without a leading "www." used for dedup and cache lookups.
	Key string
}

// Normalize adds an https scheme when missing and prefixes "www." to bare
// two-label hosts. It never fails: malformed input is returned as-is with a
// best-effort key.
func Normalize(raw string) Normalized {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Normalized{}
	}
	candidate := trimmed
	if !hasScheme(candidate) {
		candidate = "https://" + strings.TrimPrefix(candidate, "//")
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" {
		return Normalized{URL: candidate, Key: fallbackKey(trimmed)}
	}

	host := strings.ToLower(u.Hostname())
	if strings.Count(host, ".") == 1 && !strings.HasPrefix(host, ".") && !strings.HasSuffix(host, ".") {
		host = "www." + host
	}
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""

	return Normalized{URL: u.String(), Key: stripWWW(host)}
}

// Key returns only the comparison key for raw.
func Key(raw string) string {
	return Normalize(raw).Key
}

// Hostname extracts the lowercase hostname from a URL or bare domain.
func Hostname(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !hasScheme(trimmed) {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func hasScheme(raw string) bool {
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return false
	}
	for _, r := range raw[:idx] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}

func fallbackKey(raw string) string {
	value := strings.ToLower(raw)
	if idx := strings.Index(value, "://"); idx >= 0 {
		value = value[idx+3:]
	}
	if idx := strings.IndexAny(value, "/?#"); idx >= 0 {
		value = value[:idx]
	}
	return stripWWW(value)
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
