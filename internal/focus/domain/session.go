package domain

// SessionState is the desktop process's view of whether a focus session is
// enforcing and which keyword rules apply. Rules may be non-empty while
// Blocking is false; rules outlive sessions, only the flag toggles.
type SessionState struct {
	Blocking bool
	Rules    []string
}

// Clone returns a deep copy so callers can never alias the owner's slice.
func (s SessionState) Clone() SessionState {
	rules := make([]string, len(s.Rules))
	copy(rules, s.Rules)
	return SessionState{Blocking: s.Blocking, Rules: rules}
}
