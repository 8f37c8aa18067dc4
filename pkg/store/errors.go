package store

import (
	"fmt"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
)

// InvalidHomeworkStatusError reports an unknown status in the homework progress map.
type InvalidHomeworkStatusError struct {
	StudentID    string
	AssignmentID string
	Status       structs.HomeworkStatus
}

func (e *InvalidHomeworkStatusError) Error() string {
	return fmt.Sprintf("student %s, assignment %s: invalid homework status %q", e.StudentID, e.AssignmentID, e.Status)
}
