package canonical

import (
	"net/url"
	"strings"
)

// normalizePath accepts either a pathname or a full URL and returns a bare
// path with query, fragment, and trailing slashes stripped. Empty input
// normalizes to "".
func normalizePath(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	path := trimmed
	if u, err := url.Parse(trimmed); err == nil && u.Scheme != "" && u.Host != "" {
		path = u.Path
	} else {
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if i := strings.IndexByte(path, '#'); i >= 0 {
			path = path[:i]
		}
	}

	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	return path
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// grimoireEntityID derives a stable slug key for grimoire content pages:
// /grimoire/houses/mars -> "houses/mars", bare /grimoire -> "".
func grimoireEntityID(pagePath string) string {
	if !strings.HasPrefix(pagePath, "/grimoire") {
		return ""
	}
	rest := strings.TrimPrefix(pagePath, "/grimoire")
	rest = strings.Trim(rest, "/")
	return rest
}
