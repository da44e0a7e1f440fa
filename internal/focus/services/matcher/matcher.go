// Package matcher decides which open tabs must be sent to the block page.
// Matching is a pure function of one status document and one tab snapshot.
package matcher

import (
	"strings"

	"github.com/studywith/focuslink/internal/focus/domain"
)

// Matcher computes per-tab block decisions. BlockPage marks the reserved
// page that is excluded from matching.
type Matcher struct {
	BlockPage domain.BlockPage
}

// New returns a Matcher that never matches blockPageURL.
func New(blockPageURL string) Matcher {
	return Matcher{BlockPage: domain.NewBlockPage(blockPageURL)}
}

// Match returns one decision per tab, in input order.
//
// A tab is blocked when the document is blocking, the tab has a URL, the URL
// is not the block page, and the lowercased URL contains any normalized
// keyword as a substring. Keywords shorter than domain.MinKeywordLength after
// trimming never match.
func (m Matcher) Match(doc domain.StatusDocument, tabs []domain.Tab) []domain.MatchDecision {
	decisions := make([]domain.MatchDecision, len(tabs))
	if !doc.Blocking {
		for i, t := range tabs {
			decisions[i] = domain.Allow(t)
		}
		return decisions
	}

	keywords := domain.NormalizeKeywords(doc.Sites)
	for i, t := range tabs {
		decisions[i] = m.decide(keywords, t)
	}
	return decisions
}

func (m Matcher) decide(keywords []string, t domain.Tab) domain.MatchDecision {
	if !t.HasURL() || m.BlockPage.Contains(t.URL) {
		return domain.Allow(t)
	}
	u := strings.ToLower(t.URL)
	for _, k := range keywords {
		if strings.Contains(u, k) {
			return domain.BlockedBy(t, k)
		}
	}
	return domain.Allow(t)
}
