package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/studywith/focuslink/internal/focus/domain"
)

// ErrNoSuchTab is returned when navigating a tab that does not exist.
var ErrNoSuchTab = errors.New("no such tab")

// MemoryHost keeps tabs in memory. It is safe for concurrent use.
type MemoryHost struct {
	mu          sync.Mutex
	next        int
	order       []domain.TabID
	urls        map[domain.TabID]string
	navigations int
	tabsErr     error
}

func NewMemoryHost() *MemoryHost {
	return &MemoryHost{urls: make(map[domain.TabID]string)}
}

// Open adds a tab showing url and returns its id.
func (m *MemoryHost) Open(url string) domain.TabID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := domain.TabID(strconv.Itoa(m.next))
	m.order = append(m.order, id)
	m.urls[id] = url
	return id
}

// Visit changes a tab's URL as if the user navigated it.
func (m *MemoryHost) Visit(id domain.TabID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.urls[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchTab, id)
	}
	m.urls[id] = url
	return nil
}

// URL returns the tab's current URL.
func (m *MemoryHost) URL(id domain.TabID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.urls[id]
}

// Navigations counts calls to Navigate that succeeded.
func (m *MemoryHost) Navigations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.navigations
}

// FailTabs makes Tabs return err until called again with nil.
func (m *MemoryHost) FailTabs(err error) {
	m.mu.Lock()
	m.tabsErr = err
	m.mu.Unlock()
}

func (m *MemoryHost) Tabs(context.Context) ([]domain.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tabsErr != nil {
		return nil, m.tabsErr
	}
	tabs := make([]domain.Tab, 0, len(m.order))
	for _, id := range m.order {
		tabs = append(tabs, domain.Tab{ID: id, URL: m.urls[id]})
	}
	return tabs, nil
}

func (m *MemoryHost) Navigate(ctx context.Context, id domain.TabID, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.urls[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchTab, id)
	}
	m.urls[id] = url
	m.navigations++
	return nil
}
