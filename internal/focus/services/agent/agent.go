// Package agent schedules enforcement. It (re)creates the enforcement alarm
// on install and on every startup, and runs one cycle per firing.
package agent

import (
	"context"
	"time"

	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/domain"
)

// Agent binds a cycle runner to the host runtime's alarm.
type Agent struct {
	runtime   HostRuntime
	runner    CycleRunner
	alarmName string
	period    time.Duration
	logger    log.Logger
}

// Options configures an Agent.
type Options struct {
	Runtime   HostRuntime
	Runner    CycleRunner
	AlarmName string
	Period    time.Duration
	Logger    log.Logger
}

func New(opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Agent{
		runtime:   opts.Runtime,
		runner:    opts.Runner,
		alarmName: opts.AlarmName,
		period:    opts.Period,
		logger:    logger,
	}
}

// Register installs the lifecycle hooks and the alarm listener. Call it
// before the runtime starts.
func (a *Agent) Register() {
	a.runtime.OnInstalled(a.EnsureAlarm)
	a.runtime.OnStartup(a.EnsureAlarm)
	a.runtime.OnAlarm(a.HandleAlarm)
}

// EnsureAlarm creates the enforcement alarm. Calling it again replaces the
// alarm, so it is safe on every startup.
func (a *Agent) EnsureAlarm(_ context.Context) error {
	if err := a.runtime.CreateAlarm(a.alarmName, a.period); err != nil {
		return err
	}
	a.logger.Info(map[string]any{
		"alarm":  a.alarmName,
		"period": a.period.String(),
	}, "enforcement_alarm_ensured")
	return nil
}

// HandleAlarm runs a cycle when the enforcement alarm fires and ignores
// every other alarm.
func (a *Agent) HandleAlarm(ctx context.Context, alarm domain.Alarm) {
	if alarm.Name != a.alarmName {
		return
	}
	report := a.runner.Run(ctx)
	fields := map[string]any{
		"tabs":    report.Tabs,
		"blocked": report.Blocked,
		"failed":  report.Failed,
	}
	if report.Skipped {
		fields = map[string]any{"reason": report.Reason}
	}
	a.logger.Debug(fields, "cycle_finished")
}
