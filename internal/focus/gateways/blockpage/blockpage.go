// Package blockpage serves the page blocked tabs are sent to. The body is
// markdown rendered once at startup; the blocked site, the matched keyword
// and an encouragement message are filled in per request.
package blockpage

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"math/rand/v2"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/studywith/focuslink/internal/focus/common/log"
	"github.com/studywith/focuslink/internal/focus/gateways/httpserver"
)

// Path is the route of the block page.
const Path = "/blocked"

//go:embed page.md
var pageMarkdown []byte

//go:embed page.html
var pageTemplate string

// Messages are shown one at a time, picked at random per request.
var Messages = []string{
	"You're doing great. Keep that focus going!",
	"Nice. You just skipped a distraction.",
	"Stay with it. This is how goals get reached.",
	"Great focus. It really shows.",
	"Small choices add up to big results.",
	"Guarding your focus is impressive.",
	"The effort you put in now builds your future.",
	"Good call. Focused time is precious.",
	"Keep the distractions away and the goal in sight.",
	"Keep this up and you'll get there.",
	"Every minute of focus makes you stronger.",
	"Focused time is yours to keep.",
}

type pageData struct {
	Site    string
	Rule    string
	Body    template.HTML
	Message string
}

// Server renders and serves the block page.
type Server struct {
	tmpl   *template.Template
	body   template.HTML
	pick   func(n int) int
	logger log.Logger
	server *httpserver.Server
}

// Options configures a Server. Pick chooses a message index in [0, n);
// it defaults to math/rand.
type Options struct {
	Addr   string
	Logger log.Logger
	Pick   func(n int) int
}

// New renders the markdown body and parses the page template.
func New(opts Options) (*Server, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(pageMarkdown, &buf); err != nil {
		return nil, fmt.Errorf("failed to render block page markdown: %w", err)
	}
	tmpl, err := template.New("blocked").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse block page template: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}

	s := &Server{
		tmpl:   tmpl,
		body:   template.HTML(buf.String()),
		pick:   pick,
		logger: logger,
	}
	s.server = httpserver.New("blockpage", opts.Addr, s.Handler(), logger)
	return s, nil
}

// Handler serves GET Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+Path, s.handleBlocked)
	return mux
}

func (s *Server) handleBlocked(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{
		Site:    q.Get("site"),
		Rule:    q.Get("rule"),
		Body:    s.body,
		Message: Messages[s.pick(len(Messages))],
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.logger.Error(map[string]any{"error": err}, "block_page_render_failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	h.Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(buf.Bytes())
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error { return s.server.Start(ctx) }

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error { return s.server.Stop(ctx) }

// Address returns the bound address.
func (s *Server) Address() string { return s.server.Address() }
