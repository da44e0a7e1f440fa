package domain

import (
	"net/url"
	"strings"
)

// BlockPage is the reserved page blocked tabs are sent to. Tabs already on
// it are never matched again.
type BlockPage struct {
	base string
}

// NewBlockPage strips any query or fragment from rawURL and keeps the rest
// as the page's base URL.
func NewBlockPage(rawURL string) BlockPage {
	base := strings.TrimSpace(rawURL)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return BlockPage{base: base}
}

// URL returns the base URL without a query.
func (b BlockPage) URL() string { return b.base }

// Contains reports whether tabURL points at the block page, ignoring case
// and query. An unset block page contains nothing.
func (b BlockPage) Contains(tabURL string) bool {
	if b.base == "" || len(tabURL) < len(b.base) {
		return false
	}
	if !strings.EqualFold(tabURL[:len(b.base)], b.base) {
		return false
	}
	if len(tabURL) == len(b.base) {
		return true
	}
	switch tabURL[len(b.base)] {
	case '?', '#', '/':
		return true
	}
	return false
}

// For returns the block page URL annotated with the blocked site and the
// keyword that matched. Empty values are left out.
func (b BlockPage) For(site, rule string) string {
	q := url.Values{}
	if site != "" {
		q.Set("site", site)
	}
	if rule != "" {
		q.Set("rule", rule)
	}
	if len(q) == 0 {
		return b.base
	}
	return b.base + "?" + q.Encode()
}
