package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-classroom/internal/account"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
	"github.com/p-n-ai/pai-classroom/internal/report"
)

func sampleRoster() *classroom.Roster {
	return &classroom.Roster{
		Course: classroom.Course{ID: "c1", Name: "Algebra"},
		Topics: []classroom.TopicSummary{
			{ID: "t1", Name: "Linear", Resources: 2},
			{ID: "t2", Name: "Quadratic", Resources: 2},
		},
		Rows: []classroom.RosterRow{
			{
				StudentID:  "s1",
				EnrolledAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
				TopicDone:  map[string]int{"t1": 2, "t2": 1},
				Done:       3,
				Total:      4,
				Progress:   0.75,
			},
			{
				StudentID:  "s2",
				EnrolledAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
				TopicDone:  map[string]int{},
				Total:      4,
			},
		},
	}
}

func TestWriteRoster(t *testing.T) {
	var buf bytes.Buffer
	students := map[string]report.Student{"s1": {Name: "Ali", Email: "ali@example.com"}}

	require.NoError(t, report.WriteRoster(&buf, sampleRoster(), students))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Progress")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Student", "Email", "Enrolled", "Linear (2)", "Quadratic (2)", "Done", "Total", "Progress"}, rows[0])
	assert.Equal(t, []string{"Ali", "ali@example.com", "2026-03-01", "2", "1", "3", "4"}, rows[1][:7])
	assert.Equal(t, "s2", rows[2][0], "unknown students fall back to their id")

	raw, err := f.GetCellValue("Progress", "H2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.75", raw)
}

func TestWriteRoster_Empty(t *testing.T) {
	var buf bytes.Buffer
	roster := &classroom.Roster{Course: classroom.Course{ID: "c1"}}

	require.NoError(t, report.WriteRoster(&buf, roster, nil))
	assert.NotZero(t, buf.Len())
}

func TestStudents(t *testing.T) {
	ctx := context.Background()
	users := account.NewMemoryStore()
	u, err := users.CreateUser(ctx, account.User{Name: "Ali", Email: "ali@example.com"})
	require.NoError(t, err)

	roster := sampleRoster()
	roster.Rows[0].StudentID = u.ID

	got, err := report.Students(ctx, users, roster)
	require.NoError(t, err)
	assert.Equal(t, map[string]report.Student{u.ID: {Name: "Ali", Email: "ali@example.com"}}, got)
}

func TestFileName(t *testing.T) {
	if got := report.FileName(classroom.Course{ID: "abc"}); got != "progress-abc.xlsx" {
		t.Errorf("FileName() = %q, want progress-abc.xlsx", got)
	}
}
