package utils

import (
	"strings"
)

// Dedup removes duplicates from a list of base URLs or origins, normalizing
// trailing slashes first so "a/" and "a" collapse to one entry.
func Dedup(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range in {
		e = strings.TrimRight(e, "/")
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}
