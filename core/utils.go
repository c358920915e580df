package core

import (
	"strconv"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ParseIntFilter parses a raw numeric query-param value.
// An empty value means "filter not supplied"; a malformed value means the
// whole query must yield an empty result set rather than an error.
func ParseIntFilter(raw string) (val int, set, malformed bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, true
	}
	return n, true, false
}
