package domain

// TabID is the host runtime's opaque handle for a tab. It is stable for the
// tab's lifetime only.
type TabID string

// Tab is a per-cycle snapshot of an open browser tab. Never keep one across
// cycles: the URL, or the tab itself, may be gone by the next one.
type Tab struct {
	ID  TabID
	URL string // empty for privileged tabs the host will not describe
}

// HasURL reports whether the tab can be evaluated at all.
func (t Tab) HasURL() bool { return t.URL != "" }
