package util

import (
	"strconv"
	"strings"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParsePagination parses limit/offset query values with sane bounds.
// A non-positive or unparseable limit falls back to defaultLimit; limit is
// clamped to maxLimit and offset to zero.
func ParsePagination(limitStr, offsetStr string, defaultLimit, maxLimit int) (limit, offset int) {
	limit = ParseInt(limitStr, defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = ParseInt(offsetStr, 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// NormalizeTagName lowercases and trims a tag name for storage and lookup
func NormalizeTagName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.TrimPrefix(name, "#")
}

// ParseTagList splits a comma-separated tag string into normalized tag names
func ParseTagList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	seen := make(map[string]bool)
	for _, p := range parts {
		p = NormalizeTagName(p)
		if p != "" && !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}
