package structs

import (
	"slices"
	"time"
)

const (
	StudentActive   = "active"
	StudentInactive = "inactive"
)

// Student is a learner. Group holds the name of a ClassGroup and is not
// enforced by the store; see the integrity package for orphan handling.
type Student struct {
	ID             string    `json:"id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	Group          string    `json:"group"`
	Status         string    `json:"status" validate:"oneof=active inactive"`
	CompletionRate float64   `json:"completionRate" validate:"gte=0,lte=100"`
	Email          string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string    `json:"phone,omitempty"`
	ParentPhone    string    `json:"parentPhone,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (s *Student) GetID() string {
	return s.ID
}

func (s *Student) SetID(id string) {
	s.ID = id
}

func (s *Student) Stamp(now time.Time, created bool) {
	if created || s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// SearchText returns the fields matched by free-text search.
func (s *Student) SearchText() []string {
	return []string{s.Name, s.Group, s.Email, s.Phone, s.Notes}
}

// IsActive reports whether the student status is active.
func (s *Student) IsActive() bool {
	return s.Status == StudentActive
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// StudentFilters narrows a student listing. Empty fields do not filter;
// non-empty fields are combined with AND.
type StudentFilters struct {
	Status         []string `json:"status,omitempty"`
	Group          []string `json:"group,omitempty"`
	CompletionRate *Range   `json:"completionRate,omitempty"`
}

// Match reports whether s passes every set filter.
func (f StudentFilters) Match(s Student) bool {
	if len(f.Status) > 0 && !slices.Contains(f.Status, s.Status) {
		return false
	}
	if len(f.Group) > 0 && !slices.Contains(f.Group, s.Group) {
		return false
	}
	if f.CompletionRate != nil && !f.CompletionRate.Contains(s.CompletionRate) {
		return false
	}
	return true
}
