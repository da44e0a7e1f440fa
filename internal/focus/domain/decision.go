package domain

// MatchDecision is the per-cycle verdict for one tab. Derived, never stored.
type MatchDecision struct {
	Tab         Tab
	Block       bool
	MatchedRule string // normalized keyword that matched; empty when Block is false
}

// Allow returns a do-not-block decision for t.
func Allow(t Tab) MatchDecision { return MatchDecision{Tab: t} }

// BlockedBy returns a block decision for t attributed to keyword.
func BlockedBy(t Tab, keyword string) MatchDecision {
	return MatchDecision{Tab: t, Block: true, MatchedRule: keyword}
}
