// Package repository serves filtered and searched views of the student and
// assignment collections through a short-lived read cache.
//
// A Repository is an ordinary value: construct one per execution context and
// pass it to whoever needs it. Its cache is private to that context and is
// only invalidated by that context's own writes. A write made by another
// context becomes visible here once the adapter has applied the change and
// the cached view has expired or been invalidated locally.
package repository

import (
	"time"

	"github.com/redhat-data-and-ai/classroster/pkg/common/constants"
	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/store"
)

// Options configures a Repository.
type Options struct {
	// CacheTTL is the lifetime of a cached view. Defaults to DefaultCacheTTL.
	CacheTTL time.Duration

	// RefreshBeforeWrite re-reads the store before each read-modify-write.
	// Off by default, which keeps whole-collection last-write-wins behaviour.
	RefreshBeforeWrite bool

	// Now overrides the clock used for record timestamps.
	Now func() time.Time
}

type (
	StudentCollection    = Collection[structs.Student, *structs.Student, structs.StudentFilters]
	AssignmentCollection = Collection[structs.Assignment, *structs.Assignment, structs.AssignmentFilters]
)

// Repository groups the cached collections of one execution context.
type Repository struct {
	Students    *StudentCollection
	Assignments *AssignmentCollection

	cache *readCache
}

// New creates a Repository over the given stores.
func New(students store.StudentStoreInterface, assignments store.AssignmentStoreInterface, opts Options) *Repository {
	cache := newReadCache(opts.CacheTTL)
	return &Repository{
		Students: newCollection[structs.Student, *structs.Student, structs.StudentFilters](
			constants.StudentsKey, students, cache, opts),
		Assignments: newCollection[structs.Assignment, *structs.Assignment, structs.AssignmentFilters](
			constants.AssignmentsKey, assignments, cache, opts),
		cache: cache,
	}
}

// CachedKeys lists the keys currently held in the read cache, sorted.
func (r *Repository) CachedKeys() []string {
	return r.cache.keys()
}
