package durable

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrValidation wraps every validator rejection.
var ErrValidation = errors.New("validation failed")

// Validator checks a decoded value before it becomes current.
type Validator[T any] func(T) error

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate returns the shared validator instance used for struct tags.
func Validate() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// StructValidator validates a struct value against its `validate` tags.
func StructValidator[T any]() Validator[T] {
	return func(v T) error {
		return Validate().Struct(v)
	}
}

// RecordsValidator validates every element of a slice against its
// `validate` tags and reports the index of the first failure.
func RecordsValidator[E any]() Validator[[]E] {
	return func(records []E) error {
		for i := range records {
			if err := Validate().Struct(records[i]); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		return nil
	}
}

// Chain runs validators in order and returns the first error.
func Chain[T any](validators ...Validator[T]) Validator[T] {
	return func(v T) error {
		for _, fn := range validators {
			if fn == nil {
				continue
			}
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	}
}
