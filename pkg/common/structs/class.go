package structs

// ClassGroup is a class students are enrolled in. Names are unique, compared
// case-sensitively; students reference a class by name, not by id.
type ClassGroup struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (c *ClassGroup) GetID() string {
	return c.ID
}

func (c *ClassGroup) GetName() string {
	return c.Name
}

// ClassStats summarizes the students of one class.
type ClassStats struct {
	ClassName         string `json:"className"`
	TotalStudents     int    `json:"totalStudents"`
	ActiveStudents    int    `json:"activeStudents"`
	AverageCompletion int    `json:"averageCompletion"`
}
