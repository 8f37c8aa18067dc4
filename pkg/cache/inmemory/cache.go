package inmemory

import (
	"context"
	"path"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/redhat-data-and-ai/classroster/pkg/cache/keyspace"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
)

// subscriberBuffer bounds each subscriber's queue; changes are dropped once full.
const subscriberBuffer = 256

// Config holds the in-memory driver settings. Durations are in seconds and
// -1 disables expiry / the janitor.
type Config struct {
	DefaultExpiration int32 `mapstructure:"defaultExpiration" yaml:"defaultExpiration"`
	CleanupInterval   int32 `mapstructure:"cleanupInterval" yaml:"cleanupInterval"`

	// QuotaBytes caps the total size of stored values. Zero means unlimited.
	QuotaBytes int `mapstructure:"quotaBytes" yaml:"quotaBytes"`
}

// InMemoryCache is a process-local store backed by go-cache. Contexts that
// share one instance see each other's changes through Subscribe.
type InMemoryCache struct {
	client *gocache.Cache
	quota  int

	mu          sync.RWMutex
	used        int
	subscribers map[int]chan keyspace.Change
	nextSubID   int
}

// NewCache inits an InMemoryCache instance
func NewCache(config *Config) (*InMemoryCache, error) {
	if config == nil {
		config = getDefaultConfig()
	}

	return &InMemoryCache{
		client:      gocache.New(seconds(config.DefaultExpiration), seconds(config.CleanupInterval)),
		quota:       config.QuotaBytes,
		subscribers: make(map[int]chan keyspace.Change),
	}, nil
}

func getDefaultConfig() *Config {
	return &Config{
		DefaultExpiration: -1,
		CleanupInterval:   -1,
	}
}

func seconds(v int32) time.Duration {
	if v < 0 {
		return gocache.NoExpiration
	}
	return time.Duration(v) * time.Second
}

// Set - sets a key value pair in the cache
func (c *InMemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := 0
	if old, ok := c.client.Get(key); ok {
		previous = len(old.(string))
	}
	if c.quota > 0 && c.used-previous+len(value) > c.quota {
		return keyspace.ErrQuotaExceeded
	}

	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.client.Set(key, value, ttl)
	c.used += len(value) - previous
	return nil
}

// Get - gets a value from the cache
func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, error) {
	val, ok := c.client.Get(key)
	if !ok {
		return "", keyspace.ErrKeyNotFound
	}
	return val, nil
}

// GetByPattern returns all unexpired keys matching a glob pattern.
func (c *InMemoryCache) GetByPattern(_ context.Context, keyPattern string) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	for key, item := range c.client.Items() {
		matched, err := path.Match(keyPattern, key)
		if err != nil {
			return nil, err
		}
		if matched {
			values[key] = item.Object
		}
	}
	return values, nil
}

// Delete - deletes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.client.Get(key); ok {
		c.used -= len(old.(string))
	}
	c.client.Delete(key)
	return nil
}

// Publish fans the change out to every subscriber of this instance.
func (c *InMemoryCache) Publish(ctx context.Context, change keyspace.Change) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, ch := range c.subscribers {
		select {
		case ch <- change:
		default:
			logger.Logger(ctx).WithField("subscriber", id).WithField("key", change.Key).
				Warn("subscriber queue full, dropping change")
		}
	}
	return nil
}

// Subscribe registers a new listener for published changes.
func (c *InMemoryCache) Subscribe(_ context.Context) (<-chan keyspace.Change, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan keyspace.Change, subscriberBuffer)
	c.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
