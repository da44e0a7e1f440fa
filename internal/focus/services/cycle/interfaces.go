package cycle

import (
	"context"

	"github.com/studywith/focuslink/internal/focus/domain"
)

// StatusFetcher performs the single status request of a cycle.
type StatusFetcher interface {
	Fetch(ctx context.Context) domain.FetchResult
}

// TabLister snapshots the currently open tabs.
type TabLister interface {
	Tabs(ctx context.Context) ([]domain.Tab, error)
}

// TabMatcher turns a status document and a tab snapshot into decisions.
type TabMatcher interface {
	Match(doc domain.StatusDocument, tabs []domain.Tab) []domain.MatchDecision
}

// TabEnforcer applies decisions.
type TabEnforcer interface {
	Apply(ctx context.Context, decisions []domain.MatchDecision) (blocked, failed int, err error)
}
