// Package sheets converts student and assignment collections to and from
// .xlsx workbooks. Each workbook has a header row followed by one row per
// record.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
)

const (
	StudentsSheet    = "Students"
	AssignmentsSheet = "Assignments"

	dateLayout = "2006-01-02"
)

var (
	StudentColumns = []string{
		"ID", "Name", "Group", "Status", "CompletionRate", "Email", "Phone", "ParentPhone", "Notes",
	}
	AssignmentColumns = []string{
		"ID", "Title", "Subject", "Type", "Status", "Priority", "DueDate", "AssignedTo", "Tags", "Description",
	}

	// ErrNoSheet is returned when a workbook has no worksheet to read.
	ErrNoSheet = errors.New("workbook does not contain any sheets")
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("required column missing")
)

// ExportStudents writes students to w as a workbook.
func ExportStudents(w io.Writer, students []structs.Student) error {
	rows := make([][]interface{}, 0, len(students))
	for _, s := range students {
		rows = append(rows, []interface{}{
			s.ID, s.Name, s.Group, s.Status, s.CompletionRate, s.Email, s.Phone, s.ParentPhone, s.Notes,
		})
	}
	return writeWorkbook(w, StudentsSheet, StudentColumns, rows)
}

// ExportAssignments writes assignments to w as a workbook. List fields are
// joined with ", " and due dates use YYYY-MM-DD.
func ExportAssignments(w io.Writer, assignments []structs.Assignment) error {
	rows := make([][]interface{}, 0, len(assignments))
	for _, a := range assignments {
		due := ""
		if !a.DueDate.IsZero() {
			due = a.DueDate.Format(dateLayout)
		}
		rows = append(rows, []interface{}{
			a.ID, a.Title, a.Subject, a.Type, a.Status, a.Priority, due,
			strings.Join(a.AssignedTo, ", "), strings.Join(a.Tags, ", "), a.Description,
		})
	}
	return writeWorkbook(w, AssignmentsSheet, AssignmentColumns, rows)
}

func writeWorkbook(w io.Writer, sheet string, header []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Logger(context.Background()).WithError(err).Warn("failed to close workbook")
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ImportStudents reads students from the first sheet of the workbook in r.
// Columns are matched by header name, ignoring case and order; only Name is
// required. Rows without a name are skipped. Ids, statuses and timestamps
// are left for the caller to fill in.
func ImportStudents(r io.Reader) ([]structs.Student, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Logger(context.Background()).WithError(err).Warn("failed to close workbook")
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []structs.Student{}, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("%w: Name", ErrMissingColumn)
	}

	cell := func(row []string, name string) string {
		i, ok := columns[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	students := make([]structs.Student, 0, len(rows)-1)
	for i, row := range rows[1:] {
		name := cell(row, "Name")
		if name == "" {
			continue
		}

		s := structs.Student{
			ID:          cell(row, "ID"),
			Name:        name,
			Group:       cell(row, "Group"),
			Status:      cell(row, "Status"),
			Email:       cell(row, "Email"),
			Phone:       cell(row, "Phone"),
			ParentPhone: cell(row, "ParentPhone"),
			Notes:       cell(row, "Notes"),
		}
		if rate := cell(row, "CompletionRate"); rate != "" {
			v, err := strconv.ParseFloat(strings.TrimSuffix(rate, "%"), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid completion rate %q", i+2, rate)
			}
			s.CompletionRate = v
		}
		students = append(students, s)
	}
	return students, nil
}

// ParseDate parses a YYYY-MM-DD date as exported by ExportAssignments.
func ParseDate(v string) (time.Time, error) {
	return time.Parse(dateLayout, v)
}
