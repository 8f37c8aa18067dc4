package store

import (
	"context"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
)

// CollectionStore defines typed access to one key of the shared store.
// This interface enables mocking in tests and keeps the repository and the
// integrity manager independent of the adapter implementation.
type CollectionStore[T any] interface {
	// Key returns the store key backing this collection
	Key() string

	// Read returns the current value, loading it on first use
	// Never fails; a missing or invalid stored value yields the initial value
	Read(ctx context.Context) T

	// Write makes value current and persists it after the debounce window
	// The channel receives exactly one result
	Write(ctx context.Context, value T) <-chan structs.Result[T]

	// Flush persists a pending write immediately
	Flush(ctx context.Context) structs.Result[T]

	// Refresh re-reads the store, bypassing the in-memory value
	Refresh(ctx context.Context) T

	// Remove deletes the key and resets the value to the initial one
	Remove(ctx context.Context) structs.Result[bool]

	// Subscribe registers a listener for new values and returns its cancel function
	Subscribe(fn func(T)) func()
}

// StudentStoreInterface is the store of all students
// Key format: "students"
type StudentStoreInterface = CollectionStore[[]structs.Student]

// ClassStoreInterface is the store of all class groups
// Key format: "class-groups"
type ClassStoreInterface = CollectionStore[[]structs.ClassGroup]

// AssignmentStoreInterface is the store of all assignments
// Key format: "assignments"
type AssignmentStoreInterface = CollectionStore[[]structs.Assignment]

// StudentAssignmentStoreInterface holds per-student homework progress
// Key format: "studentAssignments"
type StudentAssignmentStoreInterface = CollectionStore[structs.StudentAssignments]
