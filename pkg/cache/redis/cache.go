package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/redhat-data-and-ai/classroster/pkg/cache/keyspace"
	"github.com/redhat-data-and-ai/classroster/pkg/common/constants"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
)

// Config holds all required info for initializing redis driver
type Config struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Database int32  `mapstructure:"database" yaml:"database"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	// Channel is the pub/sub channel used for change notifications.
	Channel string `mapstructure:"channel" yaml:"channel"`
}

// RedisCache holds the handler for the redisclient and auxiliary info
type RedisCache struct {
	client  redis.UniversalClient
	channel string
}

// NewCache inits a RedisCache instance
func NewCache(config *Config) (*RedisCache, error) {
	if config == nil {
		config = getDefaultConfig()
	}

	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)
	options := &redis.UniversalOptions{
		Addrs:    []string{addr},
		Username: config.Username,
		Password: config.Password,
		DB:       int(config.Database),
	}

	redisClient := redis.NewUniversalClient(options)

	// Enable OpenTelemetry instrumentation
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		return nil, fmt.Errorf("failed to instrument redis: %w", err)
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
	}

	channel := config.Channel
	if channel == "" {
		channel = constants.ChangeChannel
	}

	rc := RedisCache{
		client:  redisClient,
		channel: channel,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := rc.client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("ping failed: %w: %w", keyspace.ErrUnavailable, err)
	}

	return &rc, nil
}

func getDefaultConfig() *Config {
	return &Config{
		Username: "",
		Host:     "localhost",
		Port:     "6379",
		Database: 0,
		Password: "",
		Channel:  constants.ChangeChannel,
	}
}

// Set - sets a key value pair in redis
func (rc *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// Get - gets a value from redis
func (rc *RedisCache) Get(ctx context.Context, key string) (interface{}, error) {
	val, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", keyspace.ErrKeyNotFound
		}
		return "", err
	}
	return val, nil
}

func (rc *RedisCache) GetByPattern(ctx context.Context, keyPattern string) (map[string]interface{}, error) {
	// First, collect all keys matching the pattern
	var keys []string
	iter := rc.client.Scan(ctx, 0, keyPattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return make(map[string]interface{}), nil
	}

	// Use MGET to retrieve all values in a single round trip
	vals, err := rc.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{}, len(keys))
	for i, key := range keys {
		// Skip nil values (keys that expired between SCAN and MGET)
		if vals[i] != nil {
			values[key] = vals[i]
		}
	}

	return values, nil
}

// Delete - deletes a key from redis
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

// Publish sends the change to every process subscribed to the change channel.
func (rc *RedisCache) Publish(ctx context.Context, change keyspace.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode change for key %s: %w", change.Key, err)
	}
	return rc.client.Publish(ctx, rc.channel, payload).Err()
}

// Subscribe listens on the change channel. The returned channel is closed
// once the cancel function is called.
func (rc *RedisCache) Subscribe(ctx context.Context) (<-chan keyspace.Change, func(), error) {
	pubsub := rc.client.Subscribe(ctx, rc.channel)
	// Wait for the subscription to be confirmed so that publishes issued
	// right after Subscribe returns are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", rc.channel, err)
	}

	log := logger.Logger(ctx).WithField("channel", rc.channel)
	out := make(chan keyspace.Change)
	done := make(chan struct{})
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var change keyspace.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					log.WithError(err).Warn("discarding malformed change notification")
					continue
				}
				select {
				case out <- change:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

// Disconnect ... disconnects from the redis server
func (rc *RedisCache) Disconnect() error {
	err := rc.client.Close()
	if err != nil {
		return err
	}
	return nil
}
