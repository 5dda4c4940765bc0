// internal/domains/domains.go
package domains

import (
	"net/url"
	"strings"
)

// Normalize reduces a bare hostname or full URL to a canonical domain:
// scheme, path, query, fragment and port are stripped, the result is
// lower-cased and a leading "www." is removed. Empty or unparseable input
// normalizes to the empty string.
func Normalize(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Hostname() != "" {
			return stripPrefix(strings.ToLower(u.Hostname()))
		}
		// Parsing failed: fall back to stripping a leading http(s) scheme
		lower := strings.ToLower(s)
		for _, scheme := range []string{"http://", "https://"} {
			if strings.HasPrefix(lower, scheme) {
				s = s[len(scheme):]
				break
			}
		}
	}

	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}

	return stripPrefix(strings.ToLower(s))
}

func stripPrefix(host string) string {
	return strings.TrimPrefix(host, "www.")
}

// Match reports whether two domain strings refer to the same site after
// normalization. Equality only, never substring containment, so
// "example.com" does not match "myexample.com" or "example.com.evil.com".
// Empty inputs never match anything, including each other.
func Match(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}
