// Package loadercache caches values derived from a classpath, such as class
// loaders, and rebuilds an entry whenever the classpath snapshot it was built
// from is no longer Equal to the caller's current snapshot.
package loadercache

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cpsnap/internal/logging"
	"cpsnap/internal/snapshot"
)

// Stats counts cache outcomes since creation or the last Clear.
type Stats struct {
	Hits        int64
	Misses      int64
	Rebuilds    int64
	BuildErrors int64
}

type entry[V any] struct {
	snap  snapshot.Snapshot
	value V
}

// Cache maps an id plus the snapshot of its classpath to a built value. It
// holds at most one entry per id and never evicts on its own.
type Cache[V any] struct {
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[string]entry[V]
	stats   Stats
}

// New returns an empty cache. A nil logger discards mismatch diagnostics.
func New[V any](logger *slog.Logger) *Cache[V] {
	return &Cache[V]{
		logger:  logging.NewComponentLogger(logger, "loadercache"),
		entries: make(map[string]entry[V]),
	}
}

// Get returns the value cached for id when its snapshot is Equal to snap.
// Otherwise build is called and its result replaces the entry. build runs
// with the cache locked and must not call back into the cache. A failed
// build drops any stale entry for id.
func (c *Cache[V]) Get(id string, snap snapshot.Snapshot, build func() (V, error)) (V, error) {
	var zero V
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, errors.New("loader cache id is required")
	}
	if build == nil {
		return zero, errors.New("loader cache build func is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found := c.entries[id]
	if found && existing.snap.Equal(snap) {
		c.stats.Hits++
		return existing.value, nil
	}

	if found {
		c.stats.Rebuilds++
		diff := snapshot.Compare(existing.snap, snap)
		attrs := append([]logging.Attr{
			logging.String(logging.FieldEventType, "loader_cache_rebuild"),
			logging.String("cache_id", id),
			logging.String("previous_digest", existing.snap.Digest().String()),
			logging.String(logging.FieldDigest, snap.Digest().String()),
		}, diff.Attrs()...)
		c.logger.Info("classpath changed; rebuilding cached value", logging.Args(attrs...)...)
	} else {
		c.stats.Misses++
	}

	value, err := build()
	if err != nil {
		c.stats.BuildErrors++
		delete(c.entries, id)
		return zero, fmt.Errorf("build %s: %w", id, err)
	}
	c.entries[id] = entry[V]{snap: snap, value: value}
	return value, nil
}

// Peek returns the cached value for id without consulting a snapshot.
func (c *Cache[V]) Peek(id string) (V, snapshot.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[strings.TrimSpace(id)]
	return e.value, e.snap, ok
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Remove drops the entry for id and reports whether one existed.
func (c *Cache[V]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	id = strings.TrimSpace(id)
	_, ok := c.entries[id]
	delete(c.entries, id)
	return ok
}

// Clear drops every entry and resets the counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.stats = Stats{}
}

// Stats returns a copy of the counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
