package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-data-and-ai/classroster/pkg/cache/keyspace"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	rc, err := NewCache(&Config{
		Host: mr.Host(),
		Port: mr.Port(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Disconnect() })
	return rc, mr
}

func TestNewCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err = NewCache(&Config{Host: host, Port: port})
	assert.ErrorIs(t, err, keyspace.ErrUnavailable)
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "students", `[{"id":"1"}]`, 0))
	mr.CheckGet(t, "students", `[{"id":"1"}]`)

	val, err := rc.Get(ctx, "students")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, val)

	require.NoError(t, rc.Delete(ctx, "students"))
	_, err = rc.Get(ctx, "students")
	assert.ErrorIs(t, err, keyspace.ErrKeyNotFound)
}

func TestRedisCache_TTL(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "temp", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := rc.Get(ctx, "temp")
	assert.ErrorIs(t, err, keyspace.ErrKeyNotFound)
}

func TestRedisCache_GetByPattern(t *testing.T) {
	rc, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "students", "a", 0))
	require.NoError(t, rc.Set(ctx, "studentAssignments", "b", 0))
	require.NoError(t, rc.Set(ctx, "assignments", "c", 0))

	values, err := rc.GetByPattern(ctx, "student*")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"students": "a", "studentAssignments": "b"}, values)

	values, err = rc.GetByPattern(ctx, "nothing*")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRedisCache_PublishSubscribe(t *testing.T) {
	rc, _ := newTestCache(t)
	ctx := context.Background()

	changes, cancel, err := rc.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	sent := keyspace.Change{Key: "class-groups", Value: `[]`, Origin: "ctx-b"}
	require.NoError(t, rc.Publish(ctx, sent))

	select {
	case got := <-changes:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	cancel()
	select {
	case _, open := <-changes:
		assert.False(t, open, "channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel was not closed after cancel")
	}
}
