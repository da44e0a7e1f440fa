// Package session owns the desktop process's authoritative focus session
// state. Writers are the session controller; the status publisher only reads.
package session

import (
	"sync"

	"github.com/studywith/focuslink/internal/focus/domain"
)

// Snapshotter is the read side handed to the status publisher.
type Snapshotter interface {
	Snapshot() domain.SessionState
}

// State is a mutex guarded SessionState. The zero value is ready to use and
// reports blocking=false with no rules.
type State struct {
	mu  sync.RWMutex
	cur domain.SessionState
}

// Snapshot returns a complete, consistent copy of the current state.
func (s *State) Snapshot() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// Update replaces both fields in one step.
func (s *State) Update(blocking bool, rules []string) {
	next := domain.SessionState{Blocking: blocking, Rules: rules}.Clone()
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
}

// SetBlocking toggles enforcement and keeps the current rules.
func (s *State) SetBlocking(blocking bool) {
	s.mu.Lock()
	s.cur.Blocking = blocking
	s.mu.Unlock()
}

// SetRules replaces the rules and keeps the blocking flag.
func (s *State) SetRules(rules []string) {
	r := domain.SessionState{Rules: rules}.Clone().Rules
	s.mu.Lock()
	s.cur.Rules = r
	s.mu.Unlock()
}

var _ Snapshotter = (*State)(nil)
