// Package browser reaches the user's open tabs. CDPHost talks to a running
// Chrome over the DevTools Protocol; MemoryHost is an in-process stand-in.
// Both only list tabs and navigate them, never open or close one.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/domain"
)

// CDPHost connects lazily to the DevTools endpoint and reconnects after a
// failed call.
type CDPHost struct {
	endpoint string
	logger   log.Logger

	mu      sync.Mutex
	browser *rod.Browser
	cancel  context.CancelFunc
}

// NewCDPHost returns a host for endpoint, either host:port of a Chrome
// started with --remote-debugging-port or a ws:// debugger URL.
func NewCDPHost(endpoint string, logger log.Logger) *CDPHost {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &CDPHost{endpoint: endpoint, logger: logger}
}

func (h *CDPHost) connect() (*rod.Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser != nil {
		return h.browser, nil
	}

	ws, err := launcher.ResolveURL(h.endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolve devtools endpoint %s: %w", h.endpoint, err)
	}

	// The connection lives until Close, independent of any one cycle.
	ctx, cancel := context.WithCancel(context.Background())
	b := rod.New().ControlURL(ws).Context(ctx)
	if err := b.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to devtools %s: %w", ws, err)
	}

	h.browser, h.cancel = b, cancel
	h.logger.Info(map[string]any{"endpoint": ws}, "devtools_connected")
	return b, nil
}

// reset drops the connection so the next call dials again.
func (h *CDPHost) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
	h.browser, h.cancel = nil, nil
}

// Tabs lists page targets. Other target types (workers, extensions) are
// not tabs.
func (h *CDPHost) Tabs(ctx context.Context) ([]domain.Tab, error) {
	b, err := h.connect()
	if err != nil {
		return nil, err
	}
	res, err := proto.TargetGetTargets{}.Call(b.Context(ctx))
	if err != nil {
		h.reset()
		return nil, fmt.Errorf("list targets: %w", err)
	}

	tabs := make([]domain.Tab, 0, len(res.TargetInfos))
	for _, info := range res.TargetInfos {
		if info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		tabs = append(tabs, domain.Tab{ID: domain.TabID(info.TargetID), URL: info.URL})
	}
	return tabs, nil
}

// Navigate points the tab at url.
func (h *CDPHost) Navigate(ctx context.Context, id domain.TabID, url string) error {
	b, err := h.connect()
	if err != nil {
		return err
	}
	page, err := b.Context(ctx).PageFromTarget(proto.TargetTargetID(id))
	if err != nil {
		return fmt.Errorf("attach to tab %s: %w", id, err)
	}
	if err := page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate tab %s: %w", id, err)
	}
	return nil
}

// Close drops the DevTools connection. The browser and its tabs stay open.
func (h *CDPHost) Close() error {
	h.reset()
	return nil
}
