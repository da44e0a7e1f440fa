package session

import (
	"time"

	"github.com/studywith/focuslink/internal/focus/domain"
)

// StateWriter is the write side of the desktop session state.
type StateWriter interface {
	Snapshot() domain.SessionState
	SetBlocking(blocking bool)
	SetRules(rules []string)
}

// RuleStore persists the last used rule list.
type RuleStore interface {
	Save(rules []string, updatedAt time.Time) error
	Load() ([]string, error)
}
