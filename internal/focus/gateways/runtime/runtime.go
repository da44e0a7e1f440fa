// Package runtime is the agent's host runtime: lifecycle events and named,
// persistent alarms. Alarms are stored so a restarted agent resumes them,
// and at most one dispatch per alarm name is ever in flight.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studywith/focuslink/internal/focus/common/clock"
	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/domain"
	"github.com/studywith/focuslink/internal/focus/repos/alarms"
)

// ErrNotStarted is returned by Fire before Start.
var ErrNotStarted = errors.New("runtime not started")

// Hook runs on a lifecycle event.
type Hook = func(ctx context.Context) error

// AlarmListener runs when an alarm fires. Every listener sees every alarm.
type AlarmListener = func(ctx context.Context, a domain.Alarm)

// Runtime owns the alarm tickers and lifecycle hooks.
type Runtime struct {
	store   alarms.Store
	clock   clock.Clock
	logger  log.Logger
	version string

	mu        sync.Mutex
	ctx       context.Context
	starting  bool
	started   bool
	slots     map[string]*slot
	busy      map[string]*atomic.Bool
	installed []Hook
	startup   []Hook
	listeners []AlarmListener

	wg sync.WaitGroup
}

// slot is one live ticker. busy is shared by every slot that ever served
// the same name, so replacing an alarm cannot overlap its dispatches.
type slot struct {
	alarm domain.Alarm
	stop  chan struct{}
	busy  *atomic.Bool
}

// Options configures a Runtime.
type Options struct {
	Store   alarms.Store
	Clock   clock.Clock
	Logger  log.Logger
	Version string
}

func New(opts Options) *Runtime {
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Runtime{
		store:   opts.Store,
		clock:   clk,
		logger:  logger,
		version: opts.Version,
		slots:   make(map[string]*slot),
		busy:    make(map[string]*atomic.Bool),
	}
}

// OnInstalled registers fn for the first ever Start against the store.
func (r *Runtime) OnInstalled(fn Hook) {
	r.mu.Lock()
	r.installed = append(r.installed, fn)
	r.mu.Unlock()
}

// OnStartup registers fn for every Start after the first.
func (r *Runtime) OnStartup(fn Hook) {
	r.mu.Lock()
	r.startup = append(r.startup, fn)
	r.mu.Unlock()
}

// OnAlarm registers an alarm listener.
func (r *Runtime) OnAlarm(fn AlarmListener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Start records the install marker, restores persisted alarms, then runs
// the installed or startup hooks. Hook errors are logged, not returned.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started || r.starting {
		r.mu.Unlock()
		return fmt.Errorf("runtime already started")
	}
	r.starting = true
	r.mu.Unlock()

	firstRun, saved, err := r.load()
	if err != nil {
		r.mu.Lock()
		r.starting = false
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.ctx = ctx
	r.starting = false
	r.started = true
	for _, a := range saved {
		r.arm(a)
	}
	hooks := r.startup
	event := "startup"
	if firstRun {
		hooks = r.installed
		event = "installed"
	}
	hooks = append([]Hook(nil), hooks...)
	r.mu.Unlock()

	r.logger.Info(map[string]any{
		"event":    event,
		"restored": len(saved),
		"version":  r.version,
	}, "runtime_started")

	for _, h := range hooks {
		if err := h(ctx); err != nil {
			r.logger.Error(map[string]any{"event": event, "error": err}, "lifecycle_hook_failed")
		}
	}
	return nil
}

func (r *Runtime) load() (bool, []domain.Alarm, error) {
	firstRun, err := r.store.MarkInstalled(r.version, r.clock.Now())
	if err != nil {
		return false, nil, fmt.Errorf("failed to record install marker: %w", err)
	}
	saved, err := r.store.Alarms()
	if err != nil {
		return false, nil, fmt.Errorf("failed to restore alarms: %w", err)
	}
	return firstRun, saved, nil
}

// CreateAlarm creates or replaces the alarm called name. Replacing stops
// the old ticker first, so a name never has two tickers.
func (r *Runtime) CreateAlarm(name string, period time.Duration) error {
	a := domain.Alarm{Name: name, Period: period, ScheduledAt: r.clock.Now().Add(period)}
	if err := a.Validate(); err != nil {
		return err
	}
	if err := r.store.PutAlarm(a); err != nil {
		return fmt.Errorf("failed to persist alarm %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		r.arm(a)
	}
	r.logger.Debug(map[string]any{"alarm": name, "period": period.String()}, "alarm_created")
	return nil
}

// ClearAlarm stops and forgets the alarm called name.
func (r *Runtime) ClearAlarm(name string) error {
	if err := r.store.DeleteAlarm(name); err != nil {
		return fmt.Errorf("failed to delete alarm %q: %w", name, err)
	}
	r.mu.Lock()
	if s, ok := r.slots[name]; ok {
		close(s.stop)
		delete(r.slots, name)
	}
	r.mu.Unlock()
	return nil
}

// Alarms lists the persisted alarms.
func (r *Runtime) Alarms() ([]domain.Alarm, error) {
	return r.store.Alarms()
}

// Fire dispatches the alarm called name immediately, outside its schedule.
// It reports false when the alarm is unknown or a dispatch is in flight.
func (r *Runtime) Fire(name string) (bool, error) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return false, ErrNotStarted
	}
	s, ok := r.slots[name]
	ctx := r.ctx
	if ok {
		r.wg.Add(1)
	}
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	defer r.wg.Done()
	return r.dispatch(ctx, s.alarm, s.busy), nil
}

// Stop halts every ticker and waits for in-flight dispatches. Persisted
// alarms are kept for the next Start.
func (r *Runtime) Stop() {
	r.mu.Lock()
	for name, s := range r.slots {
		close(s.stop)
		delete(r.slots, name)
	}
	r.started = false
	r.mu.Unlock()
	r.wg.Wait()
}

// firstDelay is the wait until a's next scheduled firing at or after now.
// Missed firings collapse into one due immediately after the last missed
// slot, keeping the alarm on its original phase.
func firstDelay(a domain.Alarm, now time.Time) time.Duration {
	if a.ScheduledAt.IsZero() {
		return a.Period
	}
	if d := a.ScheduledAt.Sub(now); d >= 0 {
		return d
	}
	missed := now.Sub(a.ScheduledAt) / a.Period
	next := a.ScheduledAt.Add((missed + 1) * a.Period)
	return next.Sub(now)
}

// arm starts a ticker for a, replacing any existing one. r.mu must be held.
func (r *Runtime) arm(a domain.Alarm) {
	if old, ok := r.slots[a.Name]; ok {
		close(old.stop)
	}
	busy, ok := r.busy[a.Name]
	if !ok {
		busy = &atomic.Bool{}
		r.busy[a.Name] = busy
	}
	s := &slot{alarm: a, stop: make(chan struct{}), busy: busy}
	r.slots[a.Name] = s

	r.wg.Add(1)
	go r.tick(r.ctx, s, firstDelay(a, r.clock.Now()))
}

// tick waits first, dispatches once, then fires every period.
func (r *Runtime) tick(ctx context.Context, s *slot, first time.Duration) {
	defer r.wg.Done()
	wait := time.NewTimer(first)
	select {
	case <-ctx.Done():
		wait.Stop()
		return
	case <-s.stop:
		wait.Stop()
		return
	case <-wait.C:
		r.dispatch(ctx, s.alarm, s.busy)
	}

	t := time.NewTicker(s.alarm.Period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-t.C:
			r.dispatch(ctx, s.alarm, s.busy)
		}
	}
}

// dispatch runs the listeners unless a previous dispatch for the same name
// is still running.
func (r *Runtime) dispatch(ctx context.Context, a domain.Alarm, busy *atomic.Bool) bool {
	if !busy.CompareAndSwap(false, true) {
		r.logger.Debug(map[string]any{"alarm": a.Name}, "alarm_skipped_cycle_running")
		return false
	}
	defer busy.Store(false)

	r.mu.Lock()
	listeners := append([]AlarmListener(nil), r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, a)
	}
	return true
}
