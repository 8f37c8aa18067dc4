package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/redhat-data-and-ai/classroster/pkg/cache"
	"github.com/redhat-data-and-ai/classroster/pkg/common/constants"
	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/durable"
)

// Options configures every adapter created by New.
type Options struct {
	// Origin identifies this execution context. Generated when empty.
	Origin           string
	Debounce         time.Duration
	WriteTimeout     time.Duration
	CrossContextSync bool
}

// Store provides typed access to every key of the shared store
// It encapsulates key naming, JSON serialization and validation
// NOTE: This store does NOT serialize read-modify-write cycles - callers that
// need it are responsible for their own synchronization
type Store struct {
	Students             *durable.Adapter[[]structs.Student]
	Classes              *durable.Adapter[[]structs.ClassGroup]
	Assignments          *durable.Adapter[[]structs.Assignment]
	StudentAssignments   *durable.Adapter[structs.StudentAssignments]
	NotificationSettings *durable.Adapter[structs.NotificationSettings]
	IntegrationConfig    *durable.Adapter[structs.IntegrationConfig]

	origin string
}

// New creates a new Store instance with all adapters initialized
func New(ctx context.Context, c cache.Cache, opts Options) *Store {
	if opts.Origin == "" {
		opts.Origin = uuid.New().String()
	}
	if opts.Debounce == 0 {
		opts.Debounce = durable.DefaultDebounce
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = durable.DefaultWriteTimeout
	}

	return &Store{
		Students: newAdapter(ctx, c, constants.StudentsKey, []structs.Student{}, opts,
			durable.RecordsValidator[structs.Student]()),
		Classes: newAdapter(ctx, c, constants.ClassGroupsKey, []structs.ClassGroup{}, opts,
			durable.RecordsValidator[structs.ClassGroup]()),
		Assignments: newAdapter(ctx, c, constants.AssignmentsKey, []structs.Assignment{}, opts,
			durable.RecordsValidator[structs.Assignment]()),
		StudentAssignments: newAdapter(ctx, c, constants.StudentAssignmentsKey, structs.StudentAssignments{}, opts,
			validateHomework),
		NotificationSettings: newAdapter(ctx, c, constants.NotificationSettingsKey, structs.NotificationSettings{}, opts,
			durable.StructValidator[structs.NotificationSettings]()),
		IntegrationConfig: newAdapter(ctx, c, constants.IntegrationConfigKey, structs.IntegrationConfig{}, opts,
			durable.StructValidator[structs.IntegrationConfig]()),
		origin: opts.Origin,
	}
}

func newAdapter[T any](
	ctx context.Context, c cache.Cache, key string, initial T, opts Options, validator durable.Validator[T],
) *durable.Adapter[T] {
	return durable.New(ctx, c, key, initial,
		durable.WithOrigin[T](opts.Origin),
		durable.WithDebounce[T](opts.Debounce),
		durable.WithWriteTimeout[T](opts.WriteTimeout),
		durable.WithCrossContextSync[T](opts.CrossContextSync),
		durable.WithValidator(validator),
	)
}

func validateHomework(v structs.StudentAssignments) error {
	for studentID, statuses := range v {
		for assignmentID, status := range statuses {
			if !status.Valid() {
				return &InvalidHomeworkStatusError{StudentID: studentID, AssignmentID: assignmentID, Status: status}
			}
		}
	}
	return nil
}

// Origin returns the id of this execution context.
func (s *Store) Origin() string {
	return s.origin
}

// Flush persists every pending write.
func (s *Store) Flush(ctx context.Context) {
	s.Students.Flush(ctx)
	s.Classes.Flush(ctx)
	s.Assignments.Flush(ctx)
	s.StudentAssignments.Flush(ctx)
	s.NotificationSettings.Flush(ctx)
	s.IntegrationConfig.Flush(ctx)
}

// Close stops every adapter. Pending writes are dropped; call Flush first to keep them.
func (s *Store) Close() {
	s.Students.Close()
	s.Classes.Close()
	s.Assignments.Close()
	s.StudentAssignments.Close()
	s.NotificationSettings.Close()
	s.IntegrationConfig.Close()
}

// Compile-time interface compliance checks
var (
	_ StudentStoreInterface           = (*durable.Adapter[[]structs.Student])(nil)
	_ ClassStoreInterface             = (*durable.Adapter[[]structs.ClassGroup])(nil)
	_ AssignmentStoreInterface        = (*durable.Adapter[[]structs.Assignment])(nil)
	_ StudentAssignmentStoreInterface = (*durable.Adapter[structs.StudentAssignments])(nil)
)
