// Package integrity maintains the soft reference between Student.Group and
// ClassGroup.Name. The store enforces no schema, so students can end up
// pointing at a class that no longer exists (an orphan). The Manager exposes
// that state and repairs it on request, or automatically after every change
// to the class collection when auto-cleanup is enabled.
//
// Mutators report failure through booleans, counts or structs.Result values
// and never panic.
package integrity

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/redhat-data-and-ai/classroster/pkg/common/constants"
	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
	"github.com/redhat-data-and-ai/classroster/pkg/store"
)

// Confirmer approves the deletion of a class that students still reference.
// A nil Confirmer declines.
type Confirmer func(ctx context.Context, className string, students []structs.Student) bool

// AlwaysConfirm approves every deletion.
func AlwaysConfirm(context.Context, string, []structs.Student) bool { return true }

// CacheInvalidator drops cached views of the student collection.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// RenameHook is called after a class has been renamed.
type RenameHook func(ctx context.Context, oldName, newName string)

// Option customizes a Manager.
type Option func(*Manager)

// WithDefaultClassName sets the class created by cleanup when no class exists.
func WithDefaultClassName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.defaultClassName = name
		}
	}
}

// WithCacheInvalidator registers the cache to drop after every student write.
func WithCacheInvalidator(inv CacheInvalidator) Option {
	return func(m *Manager) { m.invalidator = inv }
}

// WithOnClassRenamed registers a hook run after EditClass renames a class.
// Students are not migrated unless the hook does it.
func WithOnClassRenamed(hook RenameHook) Option {
	return func(m *Manager) { m.onClassRenamed = hook }
}

// WithAutoCleanup re-runs CleanupOrphanedStudents whenever the class
// collection changes.
func WithAutoCleanup(enabled bool) Option {
	return func(m *Manager) { m.autoCleanup = enabled }
}

// Manager owns the class collection and guards student references to it.
type Manager struct {
	classes  store.ClassStoreInterface
	students store.StudentStoreInterface

	defaultClassName string
	invalidator      CacheInvalidator
	onClassRenamed   RenameHook
	autoCleanup      bool
	now              func() time.Time

	// mu serializes read-modify-write cycles on both collections.
	mu sync.Mutex

	memoMu  sync.Mutex
	memo    map[string][]structs.Student
	memoGen uint64

	unsubscribe []func()
	trigger     chan struct{}
	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// New creates a Manager over the class and student stores. With auto-cleanup
// enabled a background worker is started; call Close to stop it.
func New(ctx context.Context, classes store.ClassStoreInterface, students store.StudentStoreInterface, opts ...Option) *Manager {
	m := &Manager{
		classes:          classes,
		students:         students,
		defaultClassName: constants.DefaultClassName,
		now:              func() time.Time { return time.Now().UTC() },
		memo:             make(map[string][]structs.Student),
		trigger:          make(chan struct{}, 1),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.unsubscribe = append(m.unsubscribe, students.Subscribe(func([]structs.Student) {
		m.resetMemo()
	}))

	if m.autoCleanup {
		m.unsubscribe = append(m.unsubscribe, classes.Subscribe(func([]structs.ClassGroup) {
			// coalesce bursts; the worker reads the latest collection anyway
			select {
			case m.trigger <- struct{}{}:
			default:
			}
		}))

		m.wg.Add(1)
		go m.cleanupWorker(context.WithoutCancel(ctx))
	}

	return m
}

func (m *Manager) log(ctx context.Context) *logrus.Entry {
	return logger.Logger(ctx).WithField("component", "integrity")
}

// cleanupWorker runs CleanupOrphanedStudents off the goroutine that changed
// the class collection, since that goroutine may hold m.mu.
func (m *Manager) cleanupWorker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case <-m.trigger:
			if moved := m.CleanupOrphanedStudents(ctx); moved > 0 {
				m.log(ctx).WithField("moved", moved).Info("auto-cleanup reassigned orphaned students")
			}
		}
	}
}

// Close stops listening to the stores and waits for the cleanup worker.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		for _, stop := range m.unsubscribe {
			stop()
		}
		close(m.done)
		m.wg.Wait()
	})
}

func (m *Manager) invalidateStudents(ctx context.Context) {
	if m.invalidator != nil {
		m.invalidator.Invalidate(ctx)
	}
}

func (m *Manager) resetMemo() {
	m.memoMu.Lock()
	m.memo = make(map[string][]structs.Student)
	m.memoGen++
	m.memoMu.Unlock()
}
