package structs

const (
	HomeworkPending    HomeworkStatus = "pending"
	HomeworkInProgress HomeworkStatus = "in-progress"
	HomeworkCompleted  HomeworkStatus = "completed"
)

// HomeworkStatus is the progress of one student on one assignment.
type HomeworkStatus string

// Valid reports whether s is one of the known statuses.
func (s HomeworkStatus) Valid() bool {
	switch s {
	case HomeworkPending, HomeworkInProgress, HomeworkCompleted:
		return true
	}
	return false
}

// StudentAssignments maps student id -> assignment id -> status.
type StudentAssignments map[string]map[string]HomeworkStatus

// NotificationSettings configures reminder delivery.
type NotificationSettings struct {
	EmailEnabled  bool   `json:"emailEnabled"`
	SMSEnabled    bool   `json:"smsEnabled"`
	ReminderHours int    `json:"reminderHours" validate:"gte=0"`
	SenderName    string `json:"senderName,omitempty"`
	NotifyParents bool   `json:"notifyParents"`
	OverdueAlerts bool   `json:"overdueAlerts"`
}

// IntegrationConfig configures the spreadsheet and form integrations.
type IntegrationConfig struct {
	SpreadsheetID string `json:"spreadsheetId,omitempty"`
	SheetName     string `json:"sheetName,omitempty"`
	FormURL       string `json:"formUrl,omitempty" validate:"omitempty,url"`
	SyncEnabled   bool   `json:"syncEnabled"`
	SyncInterval  int    `json:"syncIntervalMinutes" validate:"gte=0"`
}
