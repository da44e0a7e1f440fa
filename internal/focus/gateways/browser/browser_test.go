package browser

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studywith/focuslink/internal/focus/domain"
)

func TestMemoryHost(t *testing.T) {
	h := NewMemoryHost()
	a := h.Open("https://youtube.com")
	b := h.Open("")

	tabs, err := h.Tabs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Tab{{ID: a, URL: "https://youtube.com"}, {ID: b}}, tabs)

	require.NoError(t, h.Navigate(context.Background(), a, "http://127.0.0.1:5001/blocked"))
	assert.Equal(t, "http://127.0.0.1:5001/blocked", h.URL(a))
	assert.Equal(t, 1, h.Navigations())

	err = h.Navigate(context.Background(), "99", "x")
	assert.ErrorIs(t, err, ErrNoSuchTab)
	assert.ErrorIs(t, h.Visit("99", "x"), ErrNoSuchTab)

	require.NoError(t, h.Visit(a, "https://example.com"))
	assert.Equal(t, "https://example.com", h.URL(a))
	assert.Equal(t, 1, h.Navigations(), "user visits are not navigations")
}

func TestMemoryHost_FailTabs(t *testing.T) {
	h := NewMemoryHost()
	h.Open("https://youtube.com")
	h.FailTabs(errors.New("gone"))
	_, err := h.Tabs(context.Background())
	assert.Error(t, err)
	h.FailTabs(nil)
	_, err = h.Tabs(context.Background())
	assert.NoError(t, err)
}

func TestMemoryHost_NavigateCancelled(t *testing.T) {
	h := NewMemoryHost()
	id := h.Open("https://youtube.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, h.Navigate(ctx, id, "x"))
	assert.Equal(t, "https://youtube.com", h.URL(id))
}

func TestCDPHost_UnreachableEndpoint(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	h := NewCDPHost(addr, nil)
	defer h.Close()

	_, err = h.Tabs(context.Background())
	assert.Error(t, err)
	assert.Error(t, h.Navigate(context.Background(), "1", "http://127.0.0.1:5001/blocked"))
}
