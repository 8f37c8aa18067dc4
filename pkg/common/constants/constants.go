package constants

// Keys of the shared store. Each key holds one JSON document.
const (
	StudentsKey             = "students"
	ClassGroupsKey          = "class-groups"
	AssignmentsKey          = "assignments"
	StudentAssignmentsKey   = "studentAssignments"
	NotificationSettingsKey = "notification-settings"
	IntegrationConfigKey    = "integration-config"
)

// ChangeChannel is the pub/sub channel carrying keyspace.Change events between contexts.
const ChangeChannel = "classroster:changes"

// Sentinel values accepted in Assignment.AssignedTo meaning every student.
const (
	AllStudentsKo = "전체 학생"
	AllStudentsEn = "all students"
)

// DefaultClassName is used by orphan cleanup when no class exists at all.
const DefaultClassName = "미배정"
