package catalog

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/harvester/internal/keys"
)

// DefaultCacheCapacity is the number of files a Cache keeps by default.
const DefaultCacheCapacity = 4096

type cacheEntry struct {
	size     int64
	modTime  time.Time
	callName string
	keys     *keys.Map
}

// Cache keeps the keys extracted per file. An entry is reused only while
// the file's size and modification time are unchanged.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	entries otter.Cache[string, cacheEntry]
}

// NewCache creates a cache holding up to capacity files.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	entries, err := otter.MustBuilder[string, cacheEntry](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create key cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

func (c *Cache) lookup(path, callName string, info fs.FileInfo) (*keys.Map, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.entries.Get(path)
	if !ok {
		return nil, false
	}
	if e.size != info.Size() || !e.modTime.Equal(info.ModTime()) || e.callName != callName {
		c.entries.Delete(path)
		return nil, false
	}
	return e.keys, true
}

func (c *Cache) store(path, callName string, info fs.FileInfo, m *keys.Map) {
	if c == nil {
		return
	}
	c.entries.Set(path, cacheEntry{
		size:     info.Size(),
		modTime:  info.ModTime(),
		callName: callName,
		keys:     m,
	})
}

// Invalidate drops the entry of a file, e.g. after it was removed.
func (c *Cache) Invalidate(path string) {
	if c == nil {
		return
	}
	c.entries.Delete(path)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Size()
}

// Hits returns how many lookups were served from the cache.
func (c *Cache) Hits() int64 {
	if c == nil {
		return 0
	}
	return c.entries.Stats().Hits()
}

// Close releases the cache.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.entries.Close()
}
