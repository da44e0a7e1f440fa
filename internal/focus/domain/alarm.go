package domain

import (
	"fmt"
	"strings"
	"time"
)

// Alarm is a named recurring trigger owned by the agent's host runtime.
// Names are unique; creating an alarm with an existing name replaces it.
type Alarm struct {
	Name        string
	Period      time.Duration
	ScheduledAt time.Time
}

// Validate checks the alarm for a usable name and period.
func (a Alarm) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("alarm name must not be empty")
	}
	if a.Period <= 0 {
		return fmt.Errorf("alarm %q: period must be positive, got %v", a.Name, a.Period)
	}
	return nil
}
