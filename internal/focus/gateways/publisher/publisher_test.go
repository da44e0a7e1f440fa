package publisher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studywith/focuslink/internal/focus/domain"
	"github.com/studywith/focuslink/internal/focus/repos/session"
)

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStatus_QuiescentState(t *testing.T) {
	p := New(Options{State: &session.State{}})
	rec := get(t, p.Handler(), http.MethodGet, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"blocking":false,"sites":[]}`, rec.Body.String())
}

func TestStatus_ReflectsLatestState(t *testing.T) {
	st := &session.State{}
	st.SetRules([]string{"youtube"})
	p := New(Options{State: st})

	assert.JSONEq(t, `{"blocking":false,"sites":["youtube"]}`, get(t, p.Handler(), http.MethodGet, "/status").Body.String())

	st.Update(true, []string{"youtube", "reddit"})
	assert.JSONEq(t, `{"blocking":true,"sites":["youtube","reddit"]}`, get(t, p.Handler(), http.MethodGet, "/status").Body.String())

	st.SetBlocking(false)
	assert.JSONEq(t, `{"blocking":false,"sites":["youtube","reddit"]}`, get(t, p.Handler(), http.MethodGet, "/status").Body.String())
}

func TestStatus_Methods(t *testing.T) {
	p := New(Options{State: &session.State{}})
	h := p.Handler()

	rec := get(t, h, http.MethodPost, "/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Header().Get("Allow"), "GET")

	rec = get(t, h, http.MethodOptions, "/status")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get(t, h, http.MethodHead, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, h, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, http.MethodGet, "/status/extra").Code)
}

func TestStatus_ConcurrentUpdatesAreConsistent(t *testing.T) {
	st := &session.State{}
	h := New(Options{State: st}).Handler()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				st.Update(true, []string{"aa", "bb"})
			} else {
				st.Update(false, []string{"cc"})
			}
		}
	}()

	for i := 0; i < 200; i++ {
		var doc domain.StatusDocument
		require.NoError(t, json.Unmarshal(get(t, h, http.MethodGet, "/status").Body.Bytes(), &doc))
		if len(doc.Sites) == 0 {
			continue
		}
		if doc.Blocking {
			assert.Equal(t, []string{"aa", "bb"}, doc.Sites)
		} else {
			assert.Equal(t, []string{"cc"}, doc.Sites)
		}
	}
	close(stop)
	wg.Wait()
}

func TestPublisher_StartStop(t *testing.T) {
	st := &session.State{}
	st.SetRules([]string{"youtube"})
	st.SetBlocking(true)
	p := New(Options{Addr: "127.0.0.1:0", State: st})

	require.NoError(t, p.Start(context.Background()))
	defer func() { _ = p.Stop(context.Background()) }()

	resp, err := http.Get("http://" + p.Address() + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"blocking":true,"sites":["youtube"]}`, string(body))
}
