package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/config"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "focuslink"

	defaultShutdownTimeout = 10 * time.Second
)

func main() {
	app := newCLIApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment, lets apply override fields from flags,
// validates the result, and configures global logging.
func loadConfig(apply func(cfg *config.AppConfig) error) (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if apply != nil {
		if err := apply(cfg); err != nil {
			return nil, err
		}
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}
	if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("logging configuration error: %w", err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info(map[string]any{"signal": sig.String()}, "shutdown_signal_received")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// shutdown runs stop with a bounded context and reports a timeout.
func shutdown(stop func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- stop(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		log.Info(nil, "graceful_shutdown_completed")
		return nil
	case <-ctx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout.String()}, "shutdown_timeout_exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}
