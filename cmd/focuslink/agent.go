package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/studywith/focuslink/internal/focus/common/clock"
	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/config"
	"github.com/studywith/focuslink/internal/focus/domain"
	"github.com/studywith/focuslink/internal/focus/gateways/blockpage"
	"github.com/studywith/focuslink/internal/focus/gateways/browser"
	"github.com/studywith/focuslink/internal/focus/gateways/fetcher"
	"github.com/studywith/focuslink/internal/focus/gateways/runtime"
	"github.com/studywith/focuslink/internal/focus/repos/alarms"
	alarmbolt "github.com/studywith/focuslink/internal/focus/repos/alarms/bolt"
	"github.com/studywith/focuslink/internal/focus/services/agent"
	"github.com/studywith/focuslink/internal/focus/services/cycle"
	"github.com/studywith/focuslink/internal/focus/services/enforcer"
	"github.com/studywith/focuslink/internal/focus/services/matcher"
)

// TabHost lists and navigates the browser's tabs.
type TabHost interface {
	Tabs(ctx context.Context) ([]domain.Tab, error)
	Navigate(ctx context.Context, id domain.TabID, url string) error
}

// AgentApp holds the components of the enforcement agent.
type AgentApp struct {
	config    *config.AppConfig
	store     alarms.Store
	runtime   *runtime.Runtime
	blockPage *blockpage.Server
	host      TabHost
	runner    *cycle.Runner
	agent     *agent.Agent
}

// buildAgent constructs and wires the agent. A nil host connects to the
// configured DevTools endpoint.
func buildAgent(cfg *config.AppConfig, host TabHost) (*AgentApp, error) {
	if host == nil {
		host = browser.NewCDPHost(cfg.Agent.DevToolsURL, log.Named("browser"))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Agent.StateDB), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	store, err := alarmbolt.New(cfg.Agent.StateDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open alarm store: %w", err)
	}

	page, err := blockpage.New(blockpage.Options{
		Addr:   cfg.Agent.BlockPageAddr,
		Logger: log.Named("blockpage"),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rt := runtime.New(runtime.Options{
		Store:   store,
		Clock:   clock.RealClock{},
		Logger:  log.Named("runtime"),
		Version: version,
	})

	runner := cycle.New(cycle.Options{
		Fetcher: fetcher.New(fetcher.Options{
			URL:     cfg.Agent.StatusURL,
			Timeout: cfg.Agent.FetchTimeout,
		}),
		Tabs:    host,
		Matcher: matcher.New(cfg.Agent.BlockPageURL()),
		Enforcer: enforcer.New(enforcer.Options{
			Navigator:    host,
			BlockPageURL: cfg.Agent.BlockPageURL(),
			Logger:       log.Named("enforcer"),
		}),
		Logger: log.Named("cycle"),
	})

	ag := agent.New(agent.Options{
		Runtime:   rt,
		Runner:    runner,
		AlarmName: cfg.Agent.AlarmName,
		Period:    cfg.Agent.PollInterval,
		Logger:    log.Named("agent"),
	})
	ag.Register()

	log.Info(map[string]any{
		"version":       version,
		"status_url":    cfg.Agent.StatusURL,
		"poll_interval": cfg.Agent.PollInterval.String(),
		"block_page":    cfg.Agent.BlockPageURL(),
		"devtools_url":  cfg.Agent.DevToolsURL,
	}, "agent_built")

	return &AgentApp{
		config:    cfg,
		store:     store,
		runtime:   rt,
		blockPage: page,
		host:      host,
		runner:    runner,
		agent:     ag,
	}, nil
}

// Start brings up the block page and the runtime. The runtime's lifecycle
// hooks (re)create the enforcement alarm.
func (app *AgentApp) Start(ctx context.Context) error {
	if err := app.blockPage.Start(ctx); err != nil {
		return fmt.Errorf("failed to start block page: %w", err)
	}
	if err := app.runtime.Start(ctx); err != nil {
		_ = app.blockPage.Stop(context.Background())
		return fmt.Errorf("failed to start runtime: %w", err)
	}
	log.Info(map[string]any{
		"block_page": app.blockPage.Address(),
		"alarm":      app.config.Agent.AlarmName,
	}, "agent_started")
	return nil
}

// Stop halts the alarms, the block page and the DevTools connection, and
// closes the store.
func (app *AgentApp) Stop(ctx context.Context) error {
	app.runtime.Stop()
	err := app.blockPage.Stop(ctx)
	if c, ok := app.host.(interface{ Close() error }); ok {
		err = multierr.Append(err, c.Close())
	}
	return multierr.Append(err, app.store.Close())
}

// Run starts the agent and blocks until ctx is cancelled.
func (app *AgentApp) Run(ctx context.Context) error {
	if err := app.Start(ctx); err != nil {
		_ = app.store.Close()
		return err
	}

	<-ctx.Done()
	log.Info(nil, "shutdown_initiated")
	return shutdown(app.Stop)
}
