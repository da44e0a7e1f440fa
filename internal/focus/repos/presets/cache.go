package presets

import (
	"os"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cachedPreset remembers the file identity a preset was parsed from.
type cachedPreset struct {
	preset  Preset
	modTime time.Time
	size    int64
}

// Cache is an LRU of parsed presets keyed by path. An entry is reused only
// while the file's modification time and size are unchanged.
type Cache struct {
	lru    *lru.Cache[string, cachedPreset]
	hits   uint64
	misses uint64
}

// NewCache creates a Cache holding up to size presets.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, cachedPreset](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Load returns the preset at path, parsing it only when the file changed.
func (c *Cache) Load(path string) (Preset, error) {
	st, err := os.Stat(path)
	if err != nil {
		c.lru.Remove(path)
		return Preset{}, err
	}
	if e, ok := c.lru.Get(path); ok && e.modTime.Equal(st.ModTime()) && e.size == st.Size() {
		atomic.AddUint64(&c.hits, 1)
		return clonePreset(e.preset), nil
	}
	atomic.AddUint64(&c.misses, 1)

	p, err := LoadFile(path)
	if err != nil {
		return Preset{}, err
	}
	c.lru.Add(path, cachedPreset{preset: p, modTime: st.ModTime(), size: st.Size()})
	return clonePreset(p), nil
}

// LoadByName resolves name inside dir and loads it through the cache.
func (c *Cache) LoadByName(dir, name string) (Preset, error) {
	path, err := Resolve(dir, name)
	if err != nil {
		return Preset{}, err
	}
	return c.Load(path)
}

// Stats returns cumulative hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// Len returns the number of cached presets.
func (c *Cache) Len() int { return c.lru.Len() }

func clonePreset(p Preset) Preset {
	sites := make([]string, len(p.Sites))
	copy(sites, p.Sites)
	p.Sites = sites
	return p
}
