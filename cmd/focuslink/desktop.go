package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/studywith/focuslink/internal/focus/common/clock"
	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/config"
	"github.com/studywith/focuslink/internal/focus/gateways/publisher"
	"github.com/studywith/focuslink/internal/focus/repos/presets"
	"github.com/studywith/focuslink/internal/focus/repos/rules"
	rulesbolt "github.com/studywith/focuslink/internal/focus/repos/rules/bolt"
	"github.com/studywith/focuslink/internal/focus/repos/session"
	sessionsvc "github.com/studywith/focuslink/internal/focus/services/session"
)

const presetCacheSize = 32

// DesktopApp holds the components of the desktop daemon.
type DesktopApp struct {
	config     *config.AppConfig
	state      *session.State
	rules      rules.Store
	presets    *presets.Cache
	preset     string
	publisher  *publisher.Publisher
	controller *sessionsvc.Controller
}

// buildDesktop constructs and wires the desktop components.
func buildDesktop(cfg *config.AppConfig) (*DesktopApp, error) {
	logger := log.GetLogger()

	if err := os.MkdirAll(filepath.Dir(cfg.Desktop.StateDB), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	store, err := rulesbolt.New(cfg.Desktop.StateDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}

	cache, err := presets.NewCache(presetCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create preset cache: %w", err)
	}

	state := &session.State{}
	saved := store.Stats()
	controller := sessionsvc.NewController(sessionsvc.Options{
		State:  state,
		Rules:  store,
		Clock:  clock.RealClock{},
		Logger: log.Named("session"),
	})

	addr := net.JoinHostPort(cfg.Desktop.Host, strconv.Itoa(cfg.Desktop.Port))
	pub := publisher.New(publisher.Options{
		Addr:   addr,
		State:  state,
		Logger: log.Named("publisher"),
	})

	logger.Info(map[string]any{
		"version":       version,
		"env":           cfg.Env,
		"address":       addr,
		"state_db":      cfg.Desktop.StateDB,
		"preset_dir":    cfg.Desktop.PresetDir,
		"saved_rules":   saved.Count,
		"rules_version": saved.Version,
		"rules_updated": saved.UpdatedUnix,
	}, "desktop_built")

	return &DesktopApp{
		config:     cfg,
		state:      state,
		rules:      store,
		presets:    cache,
		publisher:  pub,
		controller: controller,
	}, nil
}

// resolveRules picks the session keywords: the preset when named, then
// configured sites, then the rules saved by the previous run. A named preset
// is remembered so the session reloads it at every focus phase.
func (app *DesktopApp) resolveRules(preset string) ([]string, error) {
	app.preset = preset
	if preset != "" {
		p, err := app.presets.LoadByName(app.config.Desktop.PresetDir, preset)
		if err != nil {
			return nil, fmt.Errorf("failed to load preset %q: %w", preset, err)
		}
		log.Info(map[string]any{"preset": p.Name, "sites": len(p.Sites)}, "preset_loaded")
		return p.Sites, nil
	}
	if len(app.config.Desktop.Sites) > 0 {
		return app.config.Desktop.Sites, nil
	}
	saved, err := app.controller.Restore()
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// reloadPreset reads the session's preset through the cache.
func (app *DesktopApp) reloadPreset() ([]string, error) {
	p, err := app.presets.LoadByName(app.config.Desktop.PresetDir, app.preset)
	if err != nil {
		return nil, err
	}
	return p.Sites, nil
}

func (app *DesktopApp) savePreset(name string, sites []string) error {
	path, err := presets.SaveText(app.config.Desktop.PresetDir, name, sites)
	if err != nil {
		return fmt.Errorf("failed to save preset: %w", err)
	}
	log.Info(map[string]any{"preset": name, "path": path}, "preset_saved")
	return nil
}

// Run serves the status endpoint and, when startSession is set, runs one
// focus session. It blocks until ctx is cancelled.
func (app *DesktopApp) Run(ctx context.Context, sites []string, startSession bool) error {
	app.state.SetRules(sites)
	if err := app.publisher.Start(ctx); err != nil {
		_ = app.Close()
		return fmt.Errorf("failed to start status publisher: %w", err)
	}

	log.Info(map[string]any{
		"address": app.publisher.Address(),
		"rules":   len(sites),
	}, "desktop_started")

	if startSession {
		plan := sessionsvc.Plan{
			Rules:  sites,
			Focus:  app.config.Desktop.Focus,
			Break:  app.config.Desktop.Break,
			Cycles: app.config.Desktop.Cycles,
		}
		if app.preset != "" {
			plan.Reload = app.reloadPreset
		}
		if _, err := app.controller.Run(ctx, plan); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(map[string]any{"error": err}, "session_failed")
		}
	}

	<-ctx.Done()
	hits, misses := app.presets.Stats()
	log.Info(map[string]any{
		"preset_cache_hits":    hits,
		"preset_cache_misses":  misses,
		"preset_cache_entries": app.presets.Len(),
	}, "shutdown_initiated")
	return shutdown(func(ctx context.Context) error {
		return multierr.Append(app.publisher.Stop(ctx), app.Close())
	})
}

// Close releases the rule store.
func (app *DesktopApp) Close() error {
	return app.rules.Close()
}

// listPresets writes one line per preset in dir: name, site count, sites.
func listPresets(out io.Writer, dir string) error {
	all, err := presets.LoadDirectory(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := all[name]
		if _, err := fmt.Fprintf(out, "%s\t%d\t%s\n", name, len(p.Sites), strings.Join(p.Sites, ",")); err != nil {
			return err
		}
	}
	return nil
}
