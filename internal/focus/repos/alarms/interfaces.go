// Package alarms persists the agent host runtime's named alarms and its
// install marker, so alarms outlive a suspended or restarted agent.
package alarms

import (
	"time"

	"github.com/studywith/focuslink/internal/focus/domain"
)

// Store abstracts the persistent alarm registry.
// - PutAlarm overwrites by name
// - MarkInstalled records the first run; firstRun is true exactly once per store
type Store interface {
	PutAlarm(a domain.Alarm) error
	DeleteAlarm(name string) error
	Alarms() ([]domain.Alarm, error)
	MarkInstalled(version string, at time.Time) (firstRun bool, err error)
	Close() error
}
