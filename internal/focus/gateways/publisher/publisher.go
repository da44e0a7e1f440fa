// Package publisher serves the desktop session state as the status document
// on GET /status. It only ever reads the state.
package publisher

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/domain"
	"github.com/studywith/focuslink/internal/focus/gateways/httpserver"
	"github.com/studywith/focuslink/internal/focus/repos/session"
)

// StatusPath is the only route the publisher answers.
const StatusPath = "/status"

// Publisher is the loopback status endpoint.
type Publisher struct {
	state  session.Snapshotter
	logger log.Logger
	server *httpserver.Server
}

// Options configures a Publisher.
type Options struct {
	Addr   string
	State  session.Snapshotter
	Logger log.Logger
}

func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	p := &Publisher{state: opts.State, logger: logger}
	p.server = httpserver.New("status", opts.Addr, p.Handler(), logger)
	return p
}

// Handler routes GET /status; other methods on it get 405 and other paths
// 404.
func (p *Publisher) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(StatusPath, p.handleStatus)
	return mux
}

func (p *Publisher) handleStatus(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodOptions:
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Cache-Control, Pragma")
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		h.Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	doc := domain.NewStatusDocument(p.state.Snapshot())
	body, err := json.Marshal(doc)
	if err != nil {
		p.logger.Error(map[string]any{"error": err}, "status_encode_failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
	p.logger.Debug(map[string]any{
		"blocking": doc.Blocking,
		"sites":    len(doc.Sites),
	}, "status_served")
}

// Start binds the listener and serves in the background.
func (p *Publisher) Start(ctx context.Context) error { return p.server.Start(ctx) }

// Stop shuts the listener down gracefully.
func (p *Publisher) Stop(ctx context.Context) error { return p.server.Stop(ctx) }

// Address returns the bound address.
func (p *Publisher) Address() string { return p.server.Address() }
