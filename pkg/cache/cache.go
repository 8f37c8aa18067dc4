package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redhat-data-and-ai/classroster/pkg/cache/inmemory"
	"github.com/redhat-data-and-ai/classroster/pkg/cache/keyspace"
	"github.com/redhat-data-and-ai/classroster/pkg/cache/redis"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Cache is the shared key-value store every execution context reads and
// writes. Values are strings; callers own the encoding.
type Cache interface {
	// Set stores value under key. A zero ttl means the key never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Get returns the value for key, or keyspace.ErrKeyNotFound.
	Get(ctx context.Context, key string) (interface{}, error)

	// GetByPattern returns every key matching the glob pattern with its value.
	GetByPattern(ctx context.Context, keyPattern string) (map[string]interface{}, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Publish announces a change to every subscriber, including other processes
	// when the driver is shared.
	Publish(ctx context.Context, change keyspace.Change) error

	// Subscribe returns a channel of changes and a function that stops the
	// subscription and closes the channel.
	Subscribe(ctx context.Context) (<-chan keyspace.Change, func(), error)
}

// Config selects and configures a cache driver.
type Config struct {
	Driver   string           `mapstructure:"driver" yaml:"driver"`
	InMemory *inmemory.Config `mapstructure:"inmemory" yaml:"inmemory"`
	Redis    *redis.Config    `mapstructure:"redis" yaml:"redis"`
}

// New builds the cache driver named in config.
func New(config *Config) (Cache, error) {
	if config == nil {
		return nil, fmt.Errorf("cache config is required")
	}

	switch config.Driver {
	case DriverMemory, "":
		return inmemory.NewCache(config.InMemory)
	case DriverRedis:
		return redis.NewCache(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", config.Driver)
	}
}

// Compile-time interface compliance checks
var (
	_ Cache = (*inmemory.InMemoryCache)(nil)
	_ Cache = (*redis.RedisCache)(nil)
)
