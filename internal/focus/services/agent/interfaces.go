package agent

import (
	"context"
	"time"

	"github.com/studywith/focuslink/internal/focus/domain"
)

// HostRuntime is the part of the host runtime the agent needs: lifecycle
// hooks and overwrite-by-name alarms.
type HostRuntime interface {
	OnInstalled(fn func(ctx context.Context) error)
	OnStartup(fn func(ctx context.Context) error)
	OnAlarm(fn func(ctx context.Context, a domain.Alarm))
	CreateAlarm(name string, period time.Duration) error
}

// CycleRunner runs one enforcement cycle.
type CycleRunner interface {
	Run(ctx context.Context) domain.CycleReport
}
