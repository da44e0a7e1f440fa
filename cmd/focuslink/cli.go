package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/common/utils"
	"github.com/studywith/focuslink/internal/focus/config"
	"github.com/studywith/focuslink/internal/focus/gateways/fetcher"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(out io.Writer) *cli.App {
	app := &cli.App{
		Name:    appName,
		Usage:   "Focus session site blocking: desktop status publisher and browser enforcement agent",
		Version: version,
		Writer:  out,
		Commands: []*cli.Command{
			desktopCmd(out),
			agentCmd(),
			statusCmd(out),
		},
	}
	// Errors are returned to main instead of exiting inside the library.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func desktopCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "desktop",
		Usage: "Serve the session status and run a focus session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Loopback address to serve /status on"},
			&cli.IntFlag{Name: "port", Usage: "Port to serve /status on"},
			&cli.StringFlag{Name: "sites", Aliases: []string{"s"}, Usage: "Comma-separated keywords to block"},
			&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: "Load keywords from a preset in the preset directory"},
			&cli.StringFlag{Name: "save-preset", Usage: "Save the session keywords as a .txt preset with this name"},
			&cli.DurationFlag{Name: "focus", Usage: "Focus phase length"},
			&cli.DurationFlag{Name: "break", Usage: "Break length between focus phases"},
			&cli.IntFlag{Name: "cycles", Usage: "Number of focus phases"},
			&cli.BoolFlag{Name: "idle", Usage: "Only serve the status; do not start a session"},
			&cli.BoolFlag{Name: "list-presets", Usage: "Print the presets in the preset directory and exit"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(func(cfg *config.AppConfig) error {
				if c.IsSet("host") {
					cfg.Desktop.Host = c.String("host")
				}
				if c.IsSet("port") {
					cfg.Desktop.Port = c.Int("port")
				}
				if c.IsSet("sites") {
					cfg.Desktop.Sites = utils.SplitSites(c.String("sites"))
				}
				if c.IsSet("focus") {
					cfg.Desktop.Focus = c.Duration("focus")
				}
				if c.IsSet("break") {
					cfg.Desktop.Break = c.Duration("break")
				}
				if c.IsSet("cycles") {
					cfg.Desktop.Cycles = c.Int("cycles")
				}
				return nil
			})
			if err != nil {
				return err
			}
			if c.Bool("list-presets") {
				return listPresets(out, cfg.Desktop.PresetDir)
			}

			app, err := buildDesktop(cfg)
			if err != nil {
				return fmt.Errorf("failed to build desktop: %w", err)
			}

			rules, err := app.resolveRules(c.String("preset"))
			if err != nil {
				_ = app.Close()
				return err
			}
			if name := c.String("save-preset"); name != "" {
				if err := app.savePreset(name, rules); err != nil {
					_ = app.Close()
					return err
				}
			}

			ctx, cancel := signalContext()
			defer cancel()
			return app.Run(ctx, rules, !c.Bool("idle"))
		},
	}
}

func agentCmd() *cli.Command {
	return &cli.Command{
		Name:  "agent",
		Usage: "Run the browser enforcement agent against Chrome's DevTools endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status-url", Usage: "Desktop status endpoint"},
			&cli.DurationFlag{Name: "poll-interval", Usage: "Enforcement alarm period"},
			&cli.StringFlag{Name: "devtools-url", Usage: "Chrome remote debugging endpoint (host:port or ws:// URL)"},
			&cli.StringFlag{Name: "block-page-addr", Usage: "Loopback ip:port to serve the block page on"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(func(cfg *config.AppConfig) error {
				if c.IsSet("status-url") {
					cfg.Agent.StatusURL = c.String("status-url")
				}
				if c.IsSet("poll-interval") {
					cfg.Agent.PollInterval = c.Duration("poll-interval")
				}
				if c.IsSet("devtools-url") {
					cfg.Agent.DevToolsURL = c.String("devtools-url")
				}
				if c.IsSet("block-page-addr") {
					cfg.Agent.BlockPageAddr = c.String("block-page-addr")
				}
				return nil
			})
			if err != nil {
				return err
			}

			app, err := buildAgent(cfg, nil)
			if err != nil {
				return fmt.Errorf("failed to build agent: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()
			return app.Run(ctx)
		},
	}
}

func statusCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Fetch the desktop status once and print it as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status-url", Usage: "Desktop status endpoint"},
			&cli.DurationFlag{Name: "timeout", Usage: "Request timeout"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(func(cfg *config.AppConfig) error {
				if c.IsSet("status-url") {
					cfg.Agent.StatusURL = c.String("status-url")
				}
				return nil
			})
			if err != nil {
				return err
			}

			timeout := cfg.Agent.FetchTimeout
			if c.IsSet("timeout") {
				timeout = c.Duration("timeout")
			}
			return printStatus(c.Context, out, cfg.Agent.StatusURL, timeout)
		},
	}
}

// printStatus performs one fetch and writes the document as indented JSON.
func printStatus(ctx context.Context, out io.Writer, url string, timeout time.Duration) error {
	res := fetcher.New(fetcher.Options{URL: url, Timeout: timeout}).Fetch(ctx)
	if !res.OK() {
		log.Debug(map[string]any{"url": url, "error": res.Err}, "status_fetch_failed")
		return res.Err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Status)
}
