package structs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redhat-data-and-ai/classroster/pkg/common/constants"
)

const (
	AssignmentDraft     = "draft"
	AssignmentActive    = "active"
	AssignmentCompleted = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Assignment is a homework item. AssignedTo holds student names, class names
// or one of the "all students" sentinels; none of them are checked against
// existing records.
type Assignment struct {
	ID          string    `json:"id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Type        string    `json:"type,omitempty"`
	DueDate     DueDate   `json:"dueDate"`
	AssignedTo  []string  `json:"assignedTo"`
	Status      string    `json:"status,omitempty" validate:"omitempty,oneof=draft active completed"`
	Priority    string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// dueDateLayouts are the ISO 8601 forms accepted for a due date, tried in order.
var dueDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly}

// DueDate is an assignment deadline. It decodes both full timestamps and
// plain dates; a date with no time of day is encoded back as a plain date.
type DueDate struct {
	time.Time
}

// ParseDueDate parses v in any of the accepted ISO 8601 forms.
func ParseDueDate(v string) (DueDate, error) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return DueDate{Time: t}, nil
		}
	}
	return DueDate{}, fmt.Errorf("invalid due date %q", v)
}

func (d DueDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	if d.Location() == time.UTC && d.Equal(d.Truncate(24*time.Hour)) {
		return json.Marshal(d.Format(time.DateOnly))
	}
	return json.Marshal(d.Format(time.RFC3339Nano))
}

func (d *DueDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = DueDate{}
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("due date must be a string: %w", err)
	}
	if v == "" {
		*d = DueDate{}
		return nil
	}
	parsed, err := ParseDueDate(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (a *Assignment) GetID() string {
	return a.ID
}

func (a *Assignment) SetID(id string) {
	a.ID = id
}

func (a *Assignment) Stamp(now time.Time, created bool) {
	if created || a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}

func (a *Assignment) SearchText() []string {
	text := []string{a.Title, a.Description, a.Subject, a.Type}
	return append(text, a.Tags...)
}

// AssignedToEveryone reports whether AssignedTo contains an "all students" sentinel.
func (a *Assignment) AssignedToEveryone() bool {
	return slices.Contains(a.AssignedTo, constants.AllStudentsKo) ||
		slices.Contains(a.AssignedTo, constants.AllStudentsEn)
}

// AssignmentFilters narrows an assignment listing. Categories combine with
// AND; AssignedTo and Tags match when any entry overlaps.
type AssignmentFilters struct {
	Status     []string   `json:"status,omitempty"`
	Priority   []string   `json:"priority,omitempty"`
	Type       []string   `json:"type,omitempty"`
	AssignedTo []string   `json:"assignedTo,omitempty"`
	DueFrom    *time.Time `json:"dueFrom,omitempty"`
	DueTo      *time.Time `json:"dueTo,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

func (f AssignmentFilters) Match(a Assignment) bool {
	if len(f.Status) > 0 && !slices.Contains(f.Status, a.Status) {
		return false
	}
	if len(f.Priority) > 0 && !slices.Contains(f.Priority, a.Priority) {
		return false
	}
	if len(f.Type) > 0 && !slices.Contains(f.Type, a.Type) {
		return false
	}
	if len(f.AssignedTo) > 0 && !overlaps(f.AssignedTo, a.AssignedTo) {
		return false
	}
	if f.DueFrom != nil && a.DueDate.Time.Before(*f.DueFrom) {
		return false
	}
	if f.DueTo != nil && a.DueDate.Time.After(*f.DueTo) {
		return false
	}
	if len(f.Tags) > 0 && !overlaps(f.Tags, a.Tags) {
		return false
	}
	return true
}

func overlaps(allowed, values []string) bool {
	for _, v := range values {
		if slices.Contains(allowed, v) {
			return true
		}
	}
	return false
}
