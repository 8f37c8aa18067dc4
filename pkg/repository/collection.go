package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/redhat-data-and-ai/classroster/pkg/common/ids"
	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/durable"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
	"github.com/redhat-data-and-ai/classroster/pkg/store"
)

// ErrNotFound is reported when an operation names an id that does not exist.
var ErrNotFound = errors.New("record not found")

// Entity is the pointer side of a record type stored in a Collection.
type Entity[T any] interface {
	*T
	GetID() string
	SetID(id string)
	Stamp(now time.Time, created bool)
	SearchText() []string
}

// Filter selects the records of a filtered view.
type Filter[T any] interface {
	Match(T) bool
}

// Collection is the cached CRUD surface over one store key. Every write
// replaces the whole collection in the store and drops every cached view of
// it; concurrent writers in other contexts overwrite each other (last write
// wins).
type Collection[T any, PT Entity[T], F Filter[T]] struct {
	name               string
	store              store.CollectionStore[[]T]
	cache              *readCache
	stats              counters
	loads              singleflight.Group
	refreshBeforeWrite bool
	now                func() time.Time

	// writeMu serializes read-modify-write cycles issued from this process.
	writeMu sync.Mutex
}

func newCollection[T any, PT Entity[T], F Filter[T]](
	name string, s store.CollectionStore[[]T], cache *readCache, opts Options,
) *Collection[T, PT, F] {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Collection[T, PT, F]{
		name:               name,
		store:              s,
		cache:              cache,
		refreshBeforeWrite: opts.RefreshBeforeWrite,
		now:                now,
	}
}

// Name returns the collection name, which is also its cache key prefix.
func (c *Collection[T, PT, F]) Name() string {
	return c.name
}

func (c *Collection[T, PT, F]) prefix() string {
	return c.name + ":"
}

func (c *Collection[T, PT, F]) log(ctx context.Context) *logrus.Entry {
	return logger.Logger(ctx).WithField("collection", c.name)
}

func (c *Collection[T, PT, F]) cacheKey(filters *F) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", fmt.Errorf("failed to serialize filters: %w", err)
	}
	return c.prefix() + string(data), nil
}

// Get returns the records matching filters (all records when filters is nil).
// Results are served from the read cache while fresh.
func (c *Collection[T, PT, F]) Get(ctx context.Context, filters *F) structs.Result[[]T] {
	key, err := c.cacheKey(filters)
	if err != nil {
		c.log(ctx).WithError(err).Error("failed to build cache key")
		return structs.Fail([]T{}, err)
	}

	if cached, ok := c.cache.get(key); ok {
		c.stats.hits.Add(1)
		return structs.Ok(slices.Clone(cached.([]T)))
	}

	// Loads are shared per generation so a Get issued after a write never
	// joins a load that started before it.
	gen := c.cache.gen(c.prefix())
	v, _, _ := c.loads.Do(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		c.stats.misses.Add(1)

		all := c.store.Read(ctx)
		filtered := make([]T, 0, len(all))
		for _, rec := range all {
			if filters == nil || (*filters).Match(rec) {
				filtered = append(filtered, rec)
			}
		}

		c.cache.set(c.prefix(), gen, key, filtered)
		return filtered, nil
	})

	return structs.Ok(slices.Clone(v.([]T)))
}

// Search returns the records whose text fields contain query, ignoring case.
// A blank query returns every record.
func (c *Collection[T, PT, F]) Search(ctx context.Context, query string) structs.Result[[]T] {
	res := c.Get(ctx, nil)
	if !res.Success {
		return res
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return res
	}

	matches := make([]T, 0)
	for i := range res.Data {
		for _, field := range PT(&res.Data[i]).SearchText() {
			if strings.Contains(strings.ToLower(field), query) {
				matches = append(matches, res.Data[i])
				break
			}
		}
	}
	return structs.Ok(matches)
}

// current returns the collection to modify. With refreshBeforeWrite the
// store is re-read first so writes from other contexts are not overwritten
// with a stale copy.
func (c *Collection[T, PT, F]) current(ctx context.Context) []T {
	if c.refreshBeforeWrite {
		c.store.Flush(ctx)
		return slices.Clone(c.store.Refresh(ctx))
	}
	return slices.Clone(c.store.Read(ctx))
}

func indexOf[T any, PT Entity[T]](records []T, id string) int {
	if id == "" {
		return -1
	}
	for i := range records {
		if PT(&records[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func idsOf[T any, PT Entity[T]](records []T) []string {
	out := make([]string, len(records))
	for i := range records {
		out[i] = PT(&records[i]).GetID()
	}
	return out
}

// Save replaces the record with the same id or appends it. A record without
// an id gets the next sequential id.
func (c *Collection[T, PT, F]) Save(ctx context.Context, record T) structs.Result[T] {
	c.writeMu.Lock()

	all := c.current(ctx)
	rec := PT(&record)
	now := c.now()

	idx := indexOf[T, PT](all, rec.GetID())
	if idx >= 0 {
		rec.Stamp(now, false)
	} else {
		if rec.GetID() == "" {
			rec.SetID(ids.Next(idsOf[T, PT](all)))
		}
		rec.Stamp(now, true)
	}

	if err := durable.Validate().Struct(record); err != nil {
		c.writeMu.Unlock()
		c.log(ctx).WithError(err).Warn("rejecting invalid record")
		return structs.Fail(record, fmt.Errorf("%w: %w", durable.ErrValidation, err))
	}

	if idx >= 0 {
		all[idx] = record
	} else {
		all = append(all, record)
	}

	pending := c.store.Write(ctx, all)
	c.invalidate(ctx)
	c.writeMu.Unlock()

	if res := <-pending; !res.Success {
		return structs.Fail(record, res.Err)
	}
	return structs.Ok(record)
}

// Delete removes the record with id.
func (c *Collection[T, PT, F]) Delete(ctx context.Context, id string) structs.Result[bool] {
	c.writeMu.Lock()

	all := c.current(ctx)
	idx := indexOf[T, PT](all, id)
	if idx < 0 {
		c.writeMu.Unlock()
		return structs.Fail(false, fmt.Errorf("%s %s: %w", c.name, id, ErrNotFound))
	}

	pending := c.store.Write(ctx, slices.Delete(all, idx, idx+1))
	c.invalidate(ctx)
	c.writeMu.Unlock()

	if res := <-pending; !res.Success {
		return structs.Fail(false, res.Err)
	}
	return structs.Ok(true)
}

// BulkUpdate merges patch into every record whose id is in ids and persists
// the collection once. Patch keys follow the records' JSON field names; "id"
// and "createdAt" are ignored. Returns the updated records.
func (c *Collection[T, PT, F]) BulkUpdate(ctx context.Context, ids []string, patch map[string]interface{}) structs.Result[[]T] {
	c.writeMu.Lock()

	all := c.current(ctx)
	now := c.now()
	updated := make([]T, 0, len(ids))

	for i := range all {
		if !slices.Contains(ids, PT(&all[i]).GetID()) {
			continue
		}
		merged, err := mergePatch(all[i], patch)
		if err != nil {
			c.writeMu.Unlock()
			c.log(ctx).WithError(err).Warn("rejecting bulk update")
			return structs.Fail([]T{}, err)
		}
		PT(&merged).Stamp(now, false)
		if err := durable.Validate().Struct(merged); err != nil {
			c.writeMu.Unlock()
			c.log(ctx).WithError(err).Warn("rejecting bulk update")
			return structs.Fail([]T{}, fmt.Errorf("%w: %w", durable.ErrValidation, err))
		}
		all[i] = merged
		updated = append(updated, merged)
	}

	if len(updated) == 0 {
		c.writeMu.Unlock()
		return structs.Ok(updated)
	}

	pending := c.store.Write(ctx, all)
	c.invalidate(ctx)
	c.writeMu.Unlock()

	if res := <-pending; !res.Success {
		return structs.Fail(updated, res.Err)
	}
	return structs.Ok(updated)
}

func mergePatch[T any](record T, patch map[string]interface{}) (T, error) {
	var merged T

	data, err := json.Marshal(record)
	if err != nil {
		return merged, fmt.Errorf("failed to encode record: %w", err)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return merged, fmt.Errorf("failed to decode record: %w", err)
	}
	for k, v := range patch {
		if k == "id" || k == "createdAt" {
			continue
		}
		fields[k] = v
	}

	data, err = json.Marshal(fields)
	if err != nil {
		return merged, fmt.Errorf("failed to encode patch: %w", err)
	}
	if err := json.Unmarshal(data, &merged); err != nil {
		return merged, fmt.Errorf("invalid patch: %w", err)
	}
	return merged, nil
}

// Invalidate drops every cached view of this collection.
func (c *Collection[T, PT, F]) Invalidate(ctx context.Context) {
	c.invalidate(ctx)
}

func (c *Collection[T, PT, F]) invalidate(ctx context.Context) {
	dropped := c.cache.invalidatePrefix(c.prefix())
	c.log(ctx).WithField("dropped", dropped).Debug("invalidated cached views")
}

// Stats returns the cache hit and miss counts of this collection.
func (c *Collection[T, PT, F]) Stats() Stats {
	return c.stats.snapshot()
}
