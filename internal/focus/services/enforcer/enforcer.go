// Package enforcer applies block decisions by sending matched tabs to the
// block page. It keeps no record of what it blocked; the next cycle decides
// again from scratch.
package enforcer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/common/utils"
	"github.com/studywith/focuslink/internal/focus/domain"
)

// Enforcer navigates blocked tabs to the block page.
type Enforcer struct {
	navigator Navigator
	page      domain.BlockPage
	logger    log.Logger
}

// Options configures an Enforcer.
type Options struct {
	Navigator    Navigator
	BlockPageURL string
	Logger       log.Logger
}

// New builds an Enforcer. A nil Logger discards output.
func New(opts Options) *Enforcer {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Enforcer{
		navigator: opts.Navigator,
		page:      domain.NewBlockPage(opts.BlockPageURL),
		logger:    logger,
	}
}

// Apply navigates every tab with Block set, concurrently, and waits for all
// of them. Tabs already showing the block page are left alone, so applying
// the same decisions twice is the same as applying them once. blocked counts
// navigations that succeeded, failed those that returned an error; err joins
// every navigation error.
func (e *Enforcer) Apply(ctx context.Context, decisions []domain.MatchDecision) (blocked, failed int, err error) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, d := range decisions {
		if !d.Block || e.page.Contains(d.Tab.URL) {
			continue
		}
		wg.Add(1)
		go func(d domain.MatchDecision) {
			defer wg.Done()
			navErr := e.navigate(ctx, d)
			mu.Lock()
			defer mu.Unlock()
			if navErr != nil {
				failed++
				err = multierr.Append(err, navErr)
				return
			}
			blocked++
		}(d)
	}
	wg.Wait()
	return blocked, failed, err
}

func (e *Enforcer) navigate(ctx context.Context, d domain.MatchDecision) error {
	site := utils.RegistrableDomain(d.Tab.URL)
	target := e.page.For(site, d.MatchedRule)

	if err := e.navigator.Navigate(ctx, d.Tab.ID, target); err != nil {
		e.logger.Warn(map[string]any{
			"tab":   string(d.Tab.ID),
			"site":  site,
			"error": err,
		}, "tab_navigation_failed")
		return fmt.Errorf("navigate tab %s: %w", d.Tab.ID, err)
	}

	e.logger.Info(map[string]any{
		"tab":  string(d.Tab.ID),
		"site": site,
		"rule": d.MatchedRule,
	}, "tab_blocked")
	return nil
}
