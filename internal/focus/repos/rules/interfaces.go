// Package rules persists the user's keyword rule list so it survives
// restarts of the desktop process, independent of the blocking flag.
package rules

import "time"

// StoreStats captures counts and metadata for the persisted rule list.
type StoreStats struct {
	Count       uint64
	Version     uint64 // bumped on every Save
	UpdatedUnix int64  // seconds since epoch, 0 if never saved
}

// Store abstracts the persistent rule list.
// - Save replaces the whole list atomically, preserving order
// - Load returns the list in saved order (empty, never nil, when unset)
type Store interface {
	Save(rules []string, updatedAt time.Time) error
	Load() ([]string, error)
	Stats() StoreStats
	Close() error
}
