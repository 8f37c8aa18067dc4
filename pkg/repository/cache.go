package repository

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is how long a filtered view stays cached.
const DefaultCacheTTL = 5 * time.Minute

// readCache holds filtered views keyed by collection name and serialized
// filters. Entries expire lazily on access and are swept by the go-cache
// janitor. A generation counter keeps a load that raced with an
// invalidation from storing its now-stale result.
type readCache struct {
	entries *gocache.Cache

	mu         sync.Mutex
	generation map[string]uint64
}

func newReadCache(ttl time.Duration) *readCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &readCache{
		entries:    gocache.New(ttl, 2*ttl),
		generation: make(map[string]uint64),
	}
}

func (c *readCache) get(key string) (interface{}, bool) {
	return c.entries.Get(key)
}

// gen returns the current generation of the entries under prefix.
func (c *readCache) gen(prefix string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation[prefix]
}

// set stores value unless prefix was invalidated since gen was taken.
func (c *readCache) set(prefix string, gen uint64, key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation[prefix] != gen {
		return
	}
	c.entries.SetDefault(key, value)
}

// invalidatePrefix drops every entry whose key starts with prefix and
// returns how many were dropped.
func (c *readCache) invalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation[prefix]++
	dropped := 0
	for key := range c.entries.Items() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Delete(key)
			dropped++
		}
	}
	return dropped
}

func (c *readCache) keys() []string {
	items := c.entries.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Stats counts cache lookups for one collection.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
