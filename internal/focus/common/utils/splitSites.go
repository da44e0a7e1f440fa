package utils

import "strings"

// SplitSites splits user entered site text on commas, trims each entry and
// drops empties. Order is preserved and duplicates are kept.
func SplitSites(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
