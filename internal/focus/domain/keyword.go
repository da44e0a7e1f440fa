package domain

import (
	"strings"
	"unicode/utf8"
)

// MinKeywordLength is the shortest keyword, after trimming, that may take
// part in matching. Single characters would match nearly every URL.
const MinKeywordLength = 2

// NormalizeKeyword trims and lowercases raw. ok is false when the trimmed
// keyword is shorter than MinKeywordLength characters.
func NormalizeKeyword(raw string) (keyword string, ok bool) {
	k := strings.TrimSpace(raw)
	if utf8.RuneCountInString(k) < MinKeywordLength {
		return "", false
	}
	return strings.ToLower(k), true
}

// NormalizeKeywords applies NormalizeKeyword to every rule and keeps the
// survivors in their original order.
func NormalizeKeywords(rules []string) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		if k, ok := NormalizeKeyword(r); ok {
			out = append(out, k)
		}
	}
	return out
}
