package domain

import "fmt"

// Phase is where the desktop session controller is in a focus session.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseFocus
	PhaseBreak
)

// String returns a stable string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFocus:
		return "focus"
	case PhaseBreak:
		return "break"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// Blocking reports whether enforcement should be on during the phase.
func (p Phase) Blocking() bool { return p == PhaseFocus }
