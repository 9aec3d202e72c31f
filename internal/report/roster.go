// Package report renders course progress as spreadsheets.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-classroom/internal/account"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
)

const sheetName = "Progress"

// Student is the display identity of a roster row.
type Student struct {
	Name  string
	Email string
}

// Students resolves roster student ids to names. Unknown ids are left out.
func Students(ctx context.Context, users account.Store, roster *classroom.Roster) (map[string]Student, error) {
	ids := make([]string, 0, len(roster.Rows))
	for _, row := range roster.Rows {
		ids = append(ids, row.StudentID)
	}
	found, err := users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get students: %w", err)
	}
	out := make(map[string]Student, len(found))
	for _, u := range found {
		out[u.ID] = Student{Name: u.Name, Email: u.Email}
	}
	return out, nil
}

// FileName returns the download name of a course roster.
func FileName(course classroom.Course) string {
	return fmt.Sprintf("progress-%s.xlsx", course.ID)
}

// WriteRoster writes the roster as an XLSX workbook with one row per student
// and one column per topic.
func WriteRoster(w io.Writer, roster *classroom.Roster, students map[string]Student) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Student", "Email", "Enrolled"}
	for _, t := range roster.Topics {
		header = append(header, fmt.Sprintf("%s (%d)", t.Name, t.Resources))
	}
	header = append(header, "Done", "Total", "Progress")
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i, row := range roster.Rows {
		st, ok := students[row.StudentID]
		if !ok {
			st = Student{Name: row.StudentID}
		}
		values := []any{st.Name, st.Email, row.EnrolledAt.UTC().Format("2006-01-02")}
		for _, t := range roster.Topics {
			values = append(values, row.TopicDone[t.ID])
		}
		values = append(values, row.Done, row.Total, row.Progress)
		if err := setRow(f, i+2, values); err != nil {
			return err
		}
	}

	if err := style(f, len(header), len(roster.Rows)); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("set row %d: %w", row, err)
	}
	return nil
}

func style(f *excelize.File, cols, rows int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", last, 18); err != nil {
		return fmt.Errorf("set widths: %w", err)
	}
	if rows == 0 {
		return nil
	}

	// 9 is the built-in "0%" number format.
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		return fmt.Errorf("percent style: %w", err)
	}
	top, _ := excelize.CoordinatesToCellName(cols, 2)
	bottom, _ := excelize.CoordinatesToCellName(cols, rows+1)
	if err := f.SetCellStyle(sheetName, top, bottom, percent); err != nil {
		return fmt.Errorf("apply percent style: %w", err)
	}
	return nil
}
