package helpers

import (
	"maps"
	"slices"
	"strings"
)

// String returns the dereferenced value of the input pointer if it's not nil, otherwise, it returns an empty string.
func String(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Truncate shortens the given string to the specified length, appending "..." if truncation occurs.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// LowerKeys returns a copy of headers with every key lower-cased. On collisions the value of the
// lexicographically smallest original key wins.
func LowerKeys(headers map[string]string) map[string]string {
	lch := make(map[string]string, len(headers))
	for _, k := range slices.Sorted(maps.Keys(headers)) {
		lk := strings.ToLower(k)
		if _, found := lch[lk]; !found {
			lch[lk] = headers[k]
		}
	}
	return lch
}
