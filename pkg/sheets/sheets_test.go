package sheets

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf := &bytes.Buffer{}
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf
}

// padded extends row to n cells; GetRows drops trailing empty cells.
func padded(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

func TestExportImportStudents(t *testing.T) {
	students := []structs.Student{
		{ID: "1", Name: "김민수", Group: "A반", Status: structs.StudentActive, CompletionRate: 80, Email: "kim@example.com"},
		{ID: "2", Name: "이영희", Group: "B반", Status: structs.StudentInactive, CompletionRate: 42.5, Notes: "transfer"},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, ExportStudents(buf, students))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows(StudentsSheet)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Len(t, rows, 3)
	assert.Equal(t, StudentColumns, rows[0])

	imported, err := ImportStudents(buf)
	require.NoError(t, err)
	assert.Equal(t, students, imported)
}

func TestImportStudents_HeaderOrderAndBlankRows(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"group", "NAME", "completionRate"},
		{"A반", "김민수", "75%"},
		{"B반", "", "10"},
		{"B반", "이영희"},
	})

	imported, err := ImportStudents(buf)
	require.NoError(t, err)
	assert.Equal(t, []structs.Student{
		{Name: "김민수", Group: "A반", CompletionRate: 75},
		{Name: "이영희", Group: "B반"},
	}, imported)
}

func TestImportStudents_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]interface{}
		wantErr string
	}{
		{
			name:    "missing name column",
			rows:    [][]interface{}{{"ID", "Group"}, {"1", "A반"}},
			wantErr: ErrMissingColumn.Error(),
		},
		{
			name:    "bad completion rate",
			rows:    [][]interface{}{{"Name", "CompletionRate"}, {"kim", "lots"}},
			wantErr: "row 2: invalid completion rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportStudents(workbook(t, tt.rows))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImportStudents_NotAWorkbook(t *testing.T) {
	_, err := ImportStudents(strings.NewReader("name,group\nkim,A"))
	assert.Error(t, err)
}

func TestImportStudents_EmptySheet(t *testing.T) {
	imported, err := ImportStudents(workbook(t, nil))
	require.NoError(t, err)
	assert.Empty(t, imported)
}

func TestExportAssignments(t *testing.T) {
	due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	buf := &bytes.Buffer{}
	require.NoError(t, ExportAssignments(buf, []structs.Assignment{
		{
			ID: "1", Title: "Fractions", Subject: "Math", Status: structs.AssignmentActive,
			Priority: structs.PriorityHigh, DueDate: structs.DueDate{Time: due}, AssignedTo: []string{"A반", "B반"}, Tags: []string{"homework"},
		},
		{ID: "2", Title: "Draft"},
	}))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(AssignmentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, AssignmentColumns, rows[0])
	assert.Equal(t, []string{"1", "Fractions", "Math", "", "active", "high", "2025-03-14", "A반, B반", "homework", ""},
		padded(rows[1], len(AssignmentColumns)))
	assert.Equal(t, []string{"2", "Draft", "", "", "", "", "", "", "", ""}, padded(rows[2], len(AssignmentColumns)))

	parsed, err := ParseDate(rows[1][6])
	require.NoError(t, err)
	assert.True(t, due.Equal(parsed))
}
