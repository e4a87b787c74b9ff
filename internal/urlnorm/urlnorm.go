// Package urlnorm canonicalizes listing and auction URLs so that records
// referencing the same external listing can be matched by identity.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalize returns the canonical form of raw: fragment and query removed,
// host lowercased and trailing slashes trimmed. Unparseable input is cut at
// the first '#' or '?' instead. Empty input yields "".
//
// Normalize is idempotent.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fallback(raw)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""
	u.ForceQuery = false
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)

	return trimSlash(u.String())
}

// fallback handles strings net/url rejects.
func fallback(raw string) string {
	if i := strings.IndexAny(raw, "#?"); i >= 0 {
		raw = raw[:i]
	}
	return trimSlash(raw)
}

// trimSlash removes trailing slashes. Removing all of them rather than one
// keeps Normalize idempotent for inputs like "…/lot//".
func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}

// Key is a normalized URL used as a join key between auction telemetry and
// scraped listings.
type Key string

// KeyOf normalizes raw into a Key.
func KeyOf(raw string) Key {
	return Key(Normalize(raw))
}

// Empty reports whether the key cannot link anything.
func (k Key) Empty() bool {
	return k == ""
}

func (k Key) String() string {
	return string(k)
}

// Index builds a lookup of items by normalized URL. Items whose URL
// normalizes to "" are skipped; when two items share a key the first one
// wins, so callers pass items most-recent-first.
func Index[T any](items []T, urlOf func(T) string) map[Key]T {
	idx := make(map[Key]T, len(items))
	for _, item := range items {
		k := KeyOf(urlOf(item))
		if k.Empty() {
			continue
		}
		if _, exists := idx[k]; exists {
			continue
		}
		idx[k] = item
	}
	return idx
}

// MatchesAny reports whether k equals the normalized form of any candidate.
func (k Key) MatchesAny(candidates []string) bool {
	if k.Empty() {
		return false
	}
	for _, c := range candidates {
		if KeyOf(c) == k {
			return true
		}
	}
	return false
}
