// Package keyspace holds the types shared by every cache driver: the change
// event published when a key is written or removed, and the sentinel errors
// drivers translate their native failures into.
package keyspace

import "errors"

var (
	// ErrKeyNotFound is returned by Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrQuotaExceeded is returned by Set when the store has no room left for the value.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnavailable is returned when the store cannot be reached at all.
	ErrUnavailable = errors.New("storage unavailable")
)

// Change describes a write to, or removal of, a single key.
// Origin identifies the execution context that made the change so that
// listeners can skip their own writes.
type Change struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Origin  string `json:"origin"`
	Removed bool   `json:"removed,omitempty"`
}
