// Package cycle runs one enforcement pass: fetch the status, snapshot the
// tabs, match, enforce. A failed fetch ends the pass before any tab is read.
package cycle

import (
	"context"

	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/domain"
)

// Runner wires the cycle stages together.
type Runner struct {
	fetcher  StatusFetcher
	tabs     TabLister
	matcher  TabMatcher
	enforcer TabEnforcer
	logger   log.Logger
}

// Options configures a Runner.
type Options struct {
	Fetcher  StatusFetcher
	Tabs     TabLister
	Matcher  TabMatcher
	Enforcer TabEnforcer
	Logger   log.Logger
}

func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Runner{
		fetcher:  opts.Fetcher,
		tabs:     opts.Tabs,
		matcher:  opts.Matcher,
		enforcer: opts.Enforcer,
		logger:   logger,
	}
}

// Run executes one cycle. It never returns an error: every failure is
// logged and reflected in the report, and the next scheduled cycle is the
// retry.
func (r *Runner) Run(ctx context.Context) domain.CycleReport {
	res := r.fetcher.Fetch(ctx)
	if !res.OK() {
		r.logger.Debug(map[string]any{"error": res.Err}, "status_fetch_failed")
		return skipped(domain.SkipFetchFailed)
	}
	if !res.Status.Blocking {
		return skipped(domain.SkipNotBlocking)
	}

	tabs, err := r.tabs.Tabs(ctx)
	if err != nil {
		r.logger.Warn(map[string]any{"error": err}, "tab_query_failed")
		return skipped(domain.SkipTabsFailed)
	}

	decisions := r.matcher.Match(res.Status, tabs)
	blocked, failed, err := r.enforcer.Apply(ctx, decisions)
	if err != nil {
		r.logger.Warn(map[string]any{
			"failed": failed,
			"error":  err,
		}, "tab_enforcement_incomplete")
	}

	report := domain.CycleReport{Tabs: len(tabs), Blocked: blocked, Failed: failed}
	r.logger.Debug(map[string]any{
		"tabs":    report.Tabs,
		"rules":   len(res.Status.Sites),
		"blocked": report.Blocked,
		"failed":  report.Failed,
	}, "cycle_complete")
	return report
}

func skipped(reason string) domain.CycleReport {
	return domain.CycleReport{Skipped: true, Reason: reason}
}
