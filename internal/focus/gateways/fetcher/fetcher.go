// Package fetcher pulls the status document from the desktop publisher.
// Every call is one uncached GET; failures come back as a FetchResult, never
// as a retry.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studywith/focuslink/internal/focus/domain"
)

const (
	// MaxBodyBytes caps the status body. Anything larger is malformed.
	MaxBodyBytes = 1 << 20
	// DefaultTimeout applies when Options.Timeout is not positive.
	DefaultTimeout = 1500 * time.Millisecond
)

var (
	// ErrUnreachable covers connection failures and timeouts.
	ErrUnreachable = errors.New("status endpoint unreachable")
	// ErrBadStatus is a non-2xx response.
	ErrBadStatus = errors.New("status endpoint returned error status")
	// ErrMalformed is a body that is not a valid status document.
	ErrMalformed = errors.New("malformed status document")
)

// Fetcher performs status requests against a fixed URL.
type Fetcher struct {
	url    string
	client *http.Client
}

// Options configures a Fetcher. Client is copied, never modified; the copy
// gets Timeout and does not follow redirects.
type Options struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func New(opts Options) *Fetcher {
	var client http.Client
	if opts.Client != nil {
		client = *opts.Client
	}
	client.Timeout = opts.Timeout
	if client.Timeout <= 0 {
		client.Timeout = DefaultTimeout
	}
	// A 3xx is a fetch failure like any other non-2xx.
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Fetcher{url: opts.URL, client: &client}
}

// wireStatus uses pointers so missing fields can be told apart from zero
// values.
type wireStatus struct {
	Blocking *bool     `json:"blocking"`
	Sites    *[]string `json:"sites"`
}

// Fetch performs exactly one GET and decodes the status document.
func (f *Fetcher) Fetch(ctx context.Context) domain.FetchResult {
	doc, err := f.fetch(ctx)
	if err != nil {
		return domain.FetchFailed(err)
	}
	return domain.Fetched(doc)
}

func (f *Fetcher) fetch(ctx context.Context) (domain.StatusDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return domain.StatusDocument{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.StatusDocument{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodyBytes))
		return domain.StatusDocument{}, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return domain.StatusDocument{}, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	if len(body) > MaxBodyBytes {
		return domain.StatusDocument{}, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformed, MaxBodyBytes)
	}
	return decode(body)
}

func decode(body []byte) (domain.StatusDocument, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.StatusDocument{}, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	var w wireStatus
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return domain.StatusDocument{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Blocking == nil {
		return domain.StatusDocument{}, fmt.Errorf("%w: missing blocking", ErrMalformed)
	}
	if w.Sites == nil {
		return domain.StatusDocument{}, fmt.Errorf("%w: missing sites", ErrMalformed)
	}
	sites := *w.Sites
	if sites == nil {
		sites = []string{}
	}
	return domain.StatusDocument{Blocking: *w.Blocking, Sites: sites}, nil
}
