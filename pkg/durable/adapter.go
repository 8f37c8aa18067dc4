// Package durable gives typed, observable access to a single key of the
// shared store.
//
// An Adapter keeps the decoded value in memory, persists writes after a
// debounce window, and (optionally) applies changes made to the same key by
// other execution contexts. Store failures never escape: reads fall back to
// the initial value and writes report failures through structs.Result.
package durable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/redhat-data-and-ai/classroster/pkg/cache"
	"github.com/redhat-data-and-ai/classroster/pkg/cache/keyspace"
	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
)

const (
	DefaultDebounce     = 300 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
)

var (
	// ErrClosed is reported to writers whose value was still pending when the adapter closed.
	ErrClosed = errors.New("adapter closed")
)

// Option customizes an Adapter.
type Option[T any] func(*Adapter[T])

// WithDebounce sets the debounce window. Zero or negative persists on the next tick.
func WithDebounce[T any](d time.Duration) Option[T] {
	return func(a *Adapter[T]) { a.debounce = d }
}

// WithValidator rejects stored or incoming values that fail v.
func WithValidator[T any](v Validator[T]) Option[T] {
	return func(a *Adapter[T]) { a.validator = v }
}

// WithCrossContextSync enables applying changes published by other contexts.
func WithCrossContextSync[T any](enabled bool) Option[T] {
	return func(a *Adapter[T]) { a.crossContext = enabled }
}

// WithOrigin sets the id this adapter stamps on the changes it publishes.
// Adapters sharing an origin ignore each other's changes.
func WithOrigin[T any](origin string) Option[T] {
	return func(a *Adapter[T]) { a.origin = origin }
}

// WithWriteTimeout bounds a single persist call.
func WithWriteTimeout[T any](d time.Duration) Option[T] {
	return func(a *Adapter[T]) { a.writeTimeout = d }
}

// pendingWrite is a debounced write waiting for its timer.
type pendingWrite[T any] struct {
	ctx     context.Context
	value   T
	timer   *time.Timer
	waiters []chan structs.Result[T]
}

// Adapter is a typed view over one key of a cache.Cache.
type Adapter[T any] struct {
	store        cache.Cache
	key          string
	initial      T
	validator    Validator[T]
	debounce     time.Duration
	writeTimeout time.Duration
	crossContext bool
	origin       string

	mu        sync.Mutex
	value     T
	loaded    bool
	pending   *pendingWrite[T]
	inflight  int
	closed    bool
	stopWatch func()

	listenersMu sync.Mutex
	listeners   map[int]func(T)
	nextID      int

	// persistMu orders persists so an older flush never lands after a newer one.
	persistMu sync.Mutex
}

// New creates an adapter for key. When cross-context sync is enabled it
// starts listening for changes immediately.
func New[T any](ctx context.Context, store cache.Cache, key string, initial T, opts ...Option[T]) *Adapter[T] {
	a := &Adapter[T]{
		store:        store,
		key:          key,
		initial:      initial,
		debounce:     DefaultDebounce,
		writeTimeout: DefaultWriteTimeout,
		listeners:    make(map[int]func(T)),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.origin == "" {
		a.origin = uuid.New().String()
	}
	a.value = initial

	if a.crossContext {
		a.watch(ctx)
	}
	return a
}

// Key returns the store key this adapter owns.
func (a *Adapter[T]) Key() string {
	return a.key
}

// Origin returns the id stamped on published changes.
func (a *Adapter[T]) Origin() string {
	return a.origin
}

func (a *Adapter[T]) log(ctx context.Context) *logrus.Entry {
	return logger.Logger(ctx).WithFields(logrus.Fields{
		"key":    a.key,
		"origin": a.origin,
	})
}

// Read returns the current value, loading it from the store on first use.
// A missing, unparsable or invalid stored value yields the initial value.
func (a *Adapter[T]) Read(ctx context.Context) T {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		a.value = a.load(ctx)
		a.loaded = true
	}
	return a.value
}

// Refresh discards the in-memory value and reads the store again. While a
// write is pending or being persisted the in-memory value is newer than the
// store and is kept.
func (a *Adapter[T]) Refresh(ctx context.Context) T {
	a.mu.Lock()
	if a.pending != nil || a.inflight > 0 {
		value := a.value
		a.mu.Unlock()
		a.log(ctx).Debug("write pending, keeping in-memory value")
		return value
	}
	value := a.load(ctx)
	a.value = value
	a.loaded = true
	a.mu.Unlock()

	a.notify(value)
	return value
}

// load reads and decodes the stored value. Callers hold a.mu.
func (a *Adapter[T]) load(ctx context.Context) T {
	raw, err := a.store.Get(ctx, a.key)
	if err != nil {
		if !errors.Is(err, keyspace.ErrKeyNotFound) {
			a.log(ctx).WithError(err).Error("failed to read key from store, using initial value")
		}
		return a.initial
	}

	value, err := a.decode(raw)
	if err != nil {
		a.log(ctx).WithError(err).Warn("discarding stored value, using initial value")
		return a.initial
	}
	return value
}

func (a *Adapter[T]) decode(raw interface{}) (T, error) {
	var value T

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return value, fmt.Errorf("unexpected stored type %T", raw)
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("failed to parse stored value: %w", err)
	}
	if a.validator != nil {
		if err := a.validator(value); err != nil {
			return value, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	return value, nil
}

// Write makes value current immediately and persists it once no further
// write arrives within the debounce window. The returned channel receives
// exactly one result; a write superseded by a later one receives the later
// write's result.
func (a *Adapter[T]) Write(ctx context.Context, value T) <-chan structs.Result[T] {
	result := make(chan structs.Result[T], 1)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		result <- structs.Fail(value, ErrClosed)
		return result
	}

	a.value = value
	a.loaded = true

	var waiters []chan structs.Result[T]
	if a.pending != nil {
		a.pending.timer.Stop()
		waiters = a.pending.waiters
	}
	p := &pendingWrite[T]{
		ctx:     context.WithoutCancel(ctx),
		value:   value,
		waiters: append(waiters, result),
	}
	p.timer = time.AfterFunc(a.debounce, func() { a.flushPending(p) })
	a.pending = p
	a.mu.Unlock()

	a.notify(value)
	return result
}

// Flush persists a pending write now instead of waiting for its timer.
// Without a pending write it reports the current value as persisted.
func (a *Adapter[T]) Flush(ctx context.Context) structs.Result[T] {
	a.mu.Lock()
	p := a.pending
	if p == nil {
		value := a.value
		a.mu.Unlock()
		return structs.Ok(value)
	}
	p.timer.Stop()
	a.pending = nil
	a.inflight++
	a.mu.Unlock()

	return a.persist(ctx, p)
}

func (a *Adapter[T]) flushPending(p *pendingWrite[T]) {
	a.mu.Lock()
	if a.pending != p {
		// superseded or flushed explicitly
		a.mu.Unlock()
		return
	}
	a.pending = nil
	a.inflight++
	a.mu.Unlock()

	a.persist(p.ctx, p)
}

func (a *Adapter[T]) persist(ctx context.Context, p *pendingWrite[T]) structs.Result[T] {
	a.persistMu.Lock()
	res := a.save(ctx, p.value)
	a.persistMu.Unlock()

	a.mu.Lock()
	a.inflight--
	a.mu.Unlock()

	for _, w := range p.waiters {
		w <- res
	}
	return res
}

func (a *Adapter[T]) save(ctx context.Context, value T) structs.Result[T] {
	log := a.log(ctx)

	data, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).Error("failed to encode value")
		return structs.Fail(value, fmt.Errorf("failed to encode %s: %w", a.key, err))
	}

	ctx, cancel := context.WithTimeout(ctx, a.writeTimeout)
	defer cancel()

	if err := a.store.Set(ctx, a.key, string(data), 0); err != nil {
		log.WithError(err).Error("failed to persist value")
		return structs.Fail(value, fmt.Errorf("failed to persist %s: %w", a.key, err))
	}

	change := keyspace.Change{Key: a.key, Value: string(data), Origin: a.origin}
	if err := a.store.Publish(ctx, change); err != nil {
		// the value is stored; other contexts will pick it up on their next refresh
		log.WithError(err).Warn("failed to publish change")
	}

	log.Debug("persisted value")
	return structs.Ok(value)
}

// Remove deletes the key, cancels any pending write and resets the value to
// the initial one.
func (a *Adapter[T]) Remove(ctx context.Context) structs.Result[bool] {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return structs.Fail(false, ErrClosed)
	}
	p := a.pending
	a.pending = nil
	if p != nil {
		p.timer.Stop()
	}
	a.value = a.initial
	a.loaded = true
	a.mu.Unlock()

	a.persistMu.Lock()
	err := a.store.Delete(ctx, a.key)
	if err == nil {
		if pubErr := a.store.Publish(ctx, keyspace.Change{Key: a.key, Origin: a.origin, Removed: true}); pubErr != nil {
			a.log(ctx).WithError(pubErr).Warn("failed to publish removal")
		}
	}
	a.persistMu.Unlock()

	var res structs.Result[bool]
	if err != nil {
		a.log(ctx).WithError(err).Error("failed to remove key")
		res = structs.Fail(false, fmt.Errorf("failed to remove %s: %w", a.key, err))
	} else {
		res = structs.Ok(true)
	}

	if p != nil {
		cancelled := structs.Fail(p.value, fmt.Errorf("write to %s cancelled by remove", a.key))
		for _, w := range p.waiters {
			w <- cancelled
		}
	}

	a.notify(a.initial)
	return res
}

// Subscribe registers fn to be called with every new value: local writes,
// removals, refreshes and changes from other contexts. fn runs on the
// goroutine that produced the change and must not block.
func (a *Adapter[T]) Subscribe(fn func(T)) func() {
	a.listenersMu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.listenersMu.Unlock()

	return func() {
		a.listenersMu.Lock()
		delete(a.listeners, id)
		a.listenersMu.Unlock()
	}
}

func (a *Adapter[T]) notify(value T) {
	a.listenersMu.Lock()
	fns := make([]func(T), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.listenersMu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

func (a *Adapter[T]) watch(ctx context.Context) {
	changes, stop, err := a.store.Subscribe(context.WithoutCancel(ctx))
	if err != nil {
		a.log(ctx).WithError(err).Error("cross-context sync disabled, subscription failed")
		return
	}
	a.stopWatch = stop

	go func() {
		for change := range changes {
			a.apply(ctx, change)
		}
	}()
}

// apply takes a change published by another context.
func (a *Adapter[T]) apply(ctx context.Context, change keyspace.Change) {
	if change.Key != a.key || change.Origin == a.origin {
		return
	}
	log := a.log(ctx).WithField("from", change.Origin)

	value := a.initial
	if !change.Removed {
		decoded, err := a.decode(change.Value)
		if err != nil {
			log.WithError(err).Warn("ignoring invalid change from another context")
			return
		}
		value = decoded
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.value = value
	a.loaded = true
	a.mu.Unlock()

	log.Debug("applied change from another context")
	a.notify(value)
}

// Close cancels any pending write and stops listening for changes. Writers
// still waiting receive ErrClosed and no new persist starts afterwards.
func (a *Adapter[T]) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	p := a.pending
	a.pending = nil
	stop := a.stopWatch
	a.stopWatch = nil
	a.mu.Unlock()

	if p != nil {
		p.timer.Stop()
		res := structs.Fail(p.value, ErrClosed)
		for _, w := range p.waiters {
			w <- res
		}
	}
	if stop != nil {
		stop()
	}
}
