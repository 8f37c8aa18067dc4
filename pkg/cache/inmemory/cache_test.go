package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-data-and-ai/classroster/pkg/cache/keyspace"
)

func newTestCache(t *testing.T, quota int) *InMemoryCache {
	t.Helper()
	c, err := NewCache(&Config{DefaultExpiration: -1, CleanupInterval: -1, QuotaBytes: quota})
	require.NoError(t, err)
	return c
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "students", `[]`, 0))

	val, err := c.Get(ctx, "students")
	require.NoError(t, err)
	assert.Equal(t, `[]`, val)

	require.NoError(t, c.Delete(ctx, "students"))
	_, err = c.Get(ctx, "students")
	assert.ErrorIs(t, err, keyspace.ErrKeyNotFound)

	// deleting again is not an error
	assert.NoError(t, c.Delete(ctx, "students"))
}

func TestInMemoryCache_TTL(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, keyspace.ErrKeyNotFound)
}

func TestInMemoryCache_GetByPattern(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "students", "a", 0))
	require.NoError(t, c.Set(ctx, "studentAssignments", "b", 0))
	require.NoError(t, c.Set(ctx, "class-groups", "c", 0))

	values, err := c.GetByPattern(ctx, "student*")
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.Equal(t, "a", values["students"])
	assert.Equal(t, "b", values["studentAssignments"])

	_, err = c.GetByPattern(ctx, "[")
	assert.Error(t, err)
}

func TestInMemoryCache_Quota(t *testing.T) {
	c := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "12345", 0))
	require.NoError(t, c.Set(ctx, "b", "12345", 0))
	assert.ErrorIs(t, c.Set(ctx, "c", "1", 0), keyspace.ErrQuotaExceeded)

	// overwriting a key only counts the difference
	require.NoError(t, c.Set(ctx, "a", "1234", 0))
	require.NoError(t, c.Set(ctx, "c", "1", 0))

	// deleting frees space
	require.NoError(t, c.Delete(ctx, "b"))
	assert.NoError(t, c.Set(ctx, "d", "12345", 0))
}

func TestInMemoryCache_PublishSubscribe(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	ch1, cancel1, err := c.Subscribe(ctx)
	require.NoError(t, err)
	ch2, cancel2, err := c.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel2()

	change := keyspace.Change{Key: "students", Value: "[]", Origin: "tab-a"}
	require.NoError(t, c.Publish(ctx, change))

	assert.Equal(t, change, <-ch1)
	assert.Equal(t, change, <-ch2)

	cancel1()
	cancel1()
	_, open := <-ch1
	assert.False(t, open, "channel should be closed after cancel")

	require.NoError(t, c.Publish(ctx, change))
	assert.Equal(t, change, <-ch2)
}
