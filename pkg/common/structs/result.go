package structs

import "time"

// Result is the envelope returned by every store, repository and manager
// operation that reports success or failure. Err keeps the failure's error
// chain for callers in the same process; only its message is serialized.
type Result[T any] struct {
	Success   bool      `json:"success"`
	Data      T         `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Err error `json:"-"`
}

// Ok wraps data in a successful Result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data, Timestamp: time.Now().UTC()}
}

// Fail builds a failed Result carrying err. data is kept so that readers can
// still fall back to it (e.g. an empty collection).
func Fail[T any](data T, err error) Result[T] {
	r := Result[T]{Success: false, Data: data, Timestamp: time.Now().UTC(), Err: err}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
