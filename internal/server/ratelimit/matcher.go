package ratelimit

import (
	"strings"
)

// MatchEndpoint returns the configuration for a request path and method, or nil when
// none applies. Patterns match segment by segment, where "*" matches any single
// segment; a pattern ending in "/" matches any path under it. Exact patterns are
// preferred over wildcard and prefix patterns.
func MatchEndpoint(path string, method string, configs []Endpoint) *Endpoint {
	if method == "GET" && (path == "/health" || path == "/metrics") {
		return &Endpoint{Path: path, Method: method}
	}

	var fallback *Endpoint
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if fallback == nil && matchPattern(c.Path, path) {
			fallback = c
		}
	}
	return fallback
}

func matchPattern(pattern, path string) bool {
	prefix := strings.HasSuffix(pattern, "/")
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	if prefix {
		if len(pathParts) <= len(patternParts) {
			return false
		}
		pathParts = pathParts[:len(patternParts)]
	} else if len(pathParts) != len(patternParts) {
		return false
	}

	for i, p := range patternParts {
		if p != "*" && p != pathParts[i] {
			return false
		}
	}
	return true
}
