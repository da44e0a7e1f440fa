// Package session drives focus sessions on the desktop: focus phases turn
// blocking on, breaks and the end of a session turn it off. Rules are kept
// throughout and persisted for the next run.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/studywith/focuslink/internal/focus/common/clock"
	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/domain"
)

// Plan describes one focus session. Reload, when set, is called at the
// start of every focus phase; its result replaces the rules. A failed reload keeps the previous rules.
type Plan struct {
	Rules  []string
	Focus  time.Duration
	Break  time.Duration
	Cycles int
	Reload func() ([]string, error)
}

// Validate rejects plans that cannot run.
func (p Plan) Validate() error {
	if p.Focus <= 0 {
		return fmt.Errorf("focus duration must be positive, got %v", p.Focus)
	}
	if p.Break < 0 {
		return fmt.Errorf("break duration must not be negative, got %v", p.Break)
	}
	if p.Cycles < 1 {
		return fmt.Errorf("cycles must be at least 1, got %d", p.Cycles)
	}
	return nil
}

// Summary records how a session went.
type Summary struct {
	ID              string
	Started         time.Time
	Ended           time.Time
	CyclesPlanned   int
	CyclesCompleted int
	FocusTotal      time.Duration
	Interrupted     bool
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Controller runs one session at a time against the shared state.
type Controller struct {
	state  StateWriter
	rules  RuleStore
	clock  clock.Clock
	wait   WaitFunc
	logger log.Logger

	mu      sync.Mutex
	running bool
	phase   domain.Phase
	cycle   int
}

// Options configures a Controller. Rules may be nil to skip persistence;
// Wait defaults to a timer.
type Options struct {
	State  StateWriter
	Rules  RuleStore
	Clock  clock.Clock
	Wait   WaitFunc
	Logger log.Logger
}

func NewController(opts Options) *Controller {
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	wait := opts.Wait
	if wait == nil {
		wait = sleep
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Controller{
		state:  opts.State,
		rules:  opts.Rules,
		clock:  clk,
		wait:   wait,
		logger: logger,
	}
}

// Restore loads the persisted rules into the state with blocking off. It
// returns the restored rules.
func (c *Controller) Restore() ([]string, error) {
	if c.rules == nil {
		return nil, nil
	}
	saved, err := c.rules.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load saved rules: %w", err)
	}
	c.state.SetRules(saved)
	c.state.SetBlocking(false)
	c.logger.Info(map[string]any{"rules": len(saved)}, "rules_restored")
	return saved, nil
}

// Phase returns the current phase and the 1-based cycle number.
func (c *Controller) Phase() (domain.Phase, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase, c.cycle
}

func (c *Controller) enter(p domain.Phase, cycle int) {
	c.mu.Lock()
	c.phase, c.cycle = p, cycle
	c.mu.Unlock()
	c.state.SetBlocking(p.Blocking())
}

// Run executes plan and returns when it finishes or ctx is done. Blocking
// is always off when Run returns. A cancelled session returns ctx.Err()
// together with its summary.
func (c *Controller) Run(ctx context.Context, plan Plan) (Summary, error) {
	if err := plan.Validate(); err != nil {
		return Summary{}, err
	}
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Summary{}, fmt.Errorf("a session is already running")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	started := c.clock.Now()
	sum := Summary{
		ID:            ulid.MustNew(ulid.Timestamp(started), ulid.DefaultEntropy()).String(),
		Started:       started,
		CyclesPlanned: plan.Cycles,
	}
	logger := log.WithFields(c.logger, map[string]any{"session": sum.ID})

	c.state.SetRules(plan.Rules)
	c.persist(plan.Rules, started, logger)

	logger.Info(map[string]any{
		"cycles": plan.Cycles,
		"focus":  plan.Focus.String(),
		"break":  plan.Break.String(),
		"rules":  len(plan.Rules),
	}, "session_started")

	err := c.runCycles(ctx, plan, &sum, logger)

	c.enter(domain.PhaseIdle, 0)
	sum.Ended = c.clock.Now()
	sum.Interrupted = err != nil
	logger.Info(map[string]any{
		"completed":   sum.CyclesCompleted,
		"planned":     sum.CyclesPlanned,
		"focus_total": sum.FocusTotal.String(),
		"interrupted": sum.Interrupted,
	}, "session_ended")
	return sum, err
}

func (c *Controller) persist(rules []string, at time.Time, logger log.Logger) {
	if c.rules == nil {
		return
	}
	if err := c.rules.Save(rules, at); err != nil {
		logger.Warn(map[string]any{"error": err}, "rules_persist_failed")
	}
}

// reload swaps in fresh rules from plan.Reload when they differ from current.
func (c *Controller) reload(plan Plan, current []string, logger log.Logger) []string {
	if plan.Reload == nil {
		return current
	}
	next, err := plan.Reload()
	if err != nil {
		logger.Warn(map[string]any{"error": err}, "rules_reload_failed")
		return current
	}
	if slices.Equal(next, current) {
		return current
	}
	c.state.SetRules(next)
	c.persist(next, c.clock.Now(), logger)
	logger.Info(map[string]any{"rules": len(next)}, "rules_reloaded")
	return next
}

func (c *Controller) logPhase(logger log.Logger) {
	p, n := c.Phase()
	logger.Info(map[string]any{"phase": p.String(), "cycle": n}, "phase_started")
}

func (c *Controller) runCycles(ctx context.Context, plan Plan, sum *Summary, logger log.Logger) error {
	current := plan.Rules
	for i := 1; i <= plan.Cycles; i++ {
		current = c.reload(plan, current, logger)
		c.enter(domain.PhaseFocus, i)
		c.logPhase(logger)
		if err := c.wait(ctx, plan.Focus); err != nil {
			return err
		}
		sum.CyclesCompleted = i
		sum.FocusTotal += plan.Focus

		if i == plan.Cycles || plan.Break == 0 {
			continue
		}
		c.enter(domain.PhaseBreak, i)
		c.logPhase(logger)
		if err := c.wait(ctx, plan.Break); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
