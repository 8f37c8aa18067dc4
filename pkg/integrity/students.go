package integrity

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redhat-data-and-ai/classroster/pkg/common/ids"
	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/durable"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrDuplicateID     = errors.New("student id already exists")
)

// GetStudentsByClass returns the students whose group is exactly name. The
// result is memoized until the student collection changes.
func (m *Manager) GetStudentsByClass(ctx context.Context, name string) []structs.Student {
	m.memoMu.Lock()
	if cached, ok := m.memo[name]; ok {
		m.memoMu.Unlock()
		return slices.Clone(cached)
	}
	gen := m.memoGen
	m.memoMu.Unlock()

	matches := make([]structs.Student, 0)
	for _, s := range m.students.Read(ctx) {
		if s.Group == name {
			matches = append(matches, s)
		}
	}

	m.memoMu.Lock()
	if m.memoGen == gen {
		m.memo[name] = matches
	}
	m.memoMu.Unlock()

	return slices.Clone(matches)
}

// prepare fills defaults, stamps and validates a student about to be stored.
func (m *Manager) prepare(s *structs.Student, existing []structs.Student, created bool) error {
	if s.Status == "" {
		s.Status = structs.StudentActive
	}
	if s.ID == "" {
		s.ID = ids.Next(idsOf(existing))
	}
	s.Stamp(m.now(), created)
	if err := durable.Validate().Struct(s); err != nil {
		return fmt.Errorf("%w: %w", durable.ErrValidation, err)
	}
	return nil
}

func idsOf(students []structs.Student) []string {
	out := make([]string, len(students))
	for i := range students {
		out[i] = students[i].ID
	}
	return out
}

func indexOfStudent(students []structs.Student, id string) int {
	return slices.IndexFunc(students, func(s structs.Student) bool { return s.ID == id })
}

// commit writes students and drops the repository cache. Callers hold m.mu;
// it is released before the pending result is returned.
func (m *Manager) commit(ctx context.Context, students []structs.Student) <-chan structs.Result[[]structs.Student] {
	pending := m.students.Write(ctx, students)
	m.invalidateStudents(ctx)
	m.mu.Unlock()
	return pending
}

// AddStudent appends s, assigning the next id when s has none. A missing
// status defaults to active. The group is not checked against the classes.
func (m *Manager) AddStudent(ctx context.Context, s structs.Student) structs.Result[structs.Student] {
	m.mu.Lock()
	students := slices.Clone(m.students.Read(ctx))
	if s.ID != "" && indexOfStudent(students, s.ID) >= 0 {
		m.mu.Unlock()
		return structs.Fail(s, fmt.Errorf("%s: %w", s.ID, ErrDuplicateID))
	}
	if err := m.prepare(&s, students, true); err != nil {
		m.mu.Unlock()
		m.log(ctx).WithError(err).Warn("rejecting invalid student")
		return structs.Fail(s, err)
	}

	if res := <-m.commit(ctx, append(students, s)); !res.Success {
		return structs.Fail(s, res.Err)
	}
	return structs.Ok(s)
}

// UpdateStudent replaces the student with s.ID, keeping its creation time.
func (m *Manager) UpdateStudent(ctx context.Context, s structs.Student) structs.Result[structs.Student] {
	m.mu.Lock()
	students := slices.Clone(m.students.Read(ctx))
	idx := indexOfStudent(students, s.ID)
	if s.ID == "" || idx < 0 {
		m.mu.Unlock()
		return structs.Fail(s, fmt.Errorf("%s: %w", s.ID, ErrStudentNotFound))
	}
	s.CreatedAt = students[idx].CreatedAt
	if err := m.prepare(&s, students, false); err != nil {
		m.mu.Unlock()
		m.log(ctx).WithError(err).Warn("rejecting invalid student")
		return structs.Fail(s, err)
	}
	students[idx] = s

	if res := <-m.commit(ctx, students); !res.Success {
		return structs.Fail(s, res.Err)
	}
	return structs.Ok(s)
}

// DeleteStudent removes the student with id.
func (m *Manager) DeleteStudent(ctx context.Context, id string) structs.Result[bool] {
	m.mu.Lock()
	students := slices.Clone(m.students.Read(ctx))
	idx := indexOfStudent(students, id)
	if idx < 0 {
		m.mu.Unlock()
		return structs.Fail(false, fmt.Errorf("%s: %w", id, ErrStudentNotFound))
	}

	if res := <-m.commit(ctx, slices.Delete(students, idx, idx+1)); !res.Success {
		return structs.Fail(false, res.Err)
	}
	return structs.Ok(true)
}

// ImportStudents merges batch into the collection: records whose id exists
// replace the stored one, the rest are appended with fresh ids. Nothing is
// written if any record is invalid. The write is flushed before returning.
func (m *Manager) ImportStudents(ctx context.Context, batch []structs.Student) structs.Result[[]structs.Student] {
	m.mu.Lock()
	students := slices.Clone(m.students.Read(ctx))
	imported := make([]structs.Student, 0, len(batch))

	for i, s := range batch {
		idx := -1
		if s.ID != "" {
			idx = indexOfStudent(students, s.ID)
		}
		if idx >= 0 {
			s.CreatedAt = students[idx].CreatedAt
		}
		if err := m.prepare(&s, students, idx < 0); err != nil {
			m.mu.Unlock()
			m.log(ctx).WithError(err).WithField("row", i).Warn("rejecting import")
			return structs.Fail([]structs.Student{}, fmt.Errorf("record %d: %w", i, err))
		}
		if idx >= 0 {
			students[idx] = s
		} else {
			students = append(students, s)
		}
		imported = append(imported, s)
	}

	pending := m.commit(ctx, students)
	m.students.Flush(ctx)
	if res := <-pending; !res.Success {
		return structs.Fail(imported, res.Err)
	}

	m.log(ctx).WithField("count", len(imported)).Info("imported students")
	return structs.Ok(imported)
}
