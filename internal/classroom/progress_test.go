package classroom_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
)

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "A", Text: "a"},
		{Kind: classroom.KindText, Name: "B", Text: "b"},
	})
	require.NoError(t, err)

	for _, it := range items {
		_, err := f.svc.SetResourceStatus(ctx, studentA, f.topic.ID, it.ID, true)
		require.NoError(t, err)
	}
	_, err = f.svc.SetResourceStatus(ctx, studentB, f.topic.ID, items[0].ID, true)
	require.NoError(t, err)

	dashA, err := f.svc.Dashboard(ctx, studentA)
	require.NoError(t, err)
	assert.Empty(t, dashA.Enrolled)
	require.Len(t, dashA.Completed, 1)
	assert.Equal(t, 1.0, dashA.Completed[0].Progress)

	dashB, err := f.svc.Dashboard(ctx, studentB)
	require.NoError(t, err)
	require.Len(t, dashB.Enrolled, 1)
	assert.Equal(t, 1, dashB.Enrolled[0].Done)
	assert.Equal(t, 2, dashB.Enrolled[0].TotalCoreResources)
	assert.InDelta(t, 0.5, dashB.Enrolled[0].Progress, 1e-9)

	dashI, err := f.svc.Dashboard(ctx, instructor)
	require.NoError(t, err)
	require.Len(t, dashI.Created, 1)
	assert.Equal(t, f.course.ID, dashI.Created[0].ID)
	assert.Empty(t, dashI.Enrolled)
}

func TestDashboard_EmptyCourseNeverCompleted(t *testing.T) {
	f := newFixture(t)

	dash, err := f.svc.Dashboard(context.Background(), studentA)
	require.NoError(t, err)
	assert.Len(t, dash.Enrolled, 1)
	assert.Empty(t, dash.Completed)
}

func TestDashboard_IgnoresDeletedResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "A", Text: "a"},
		{Kind: classroom.KindText, Name: "B", Text: "b"},
	})
	require.NoError(t, err)
	_, err = f.svc.SetResourceStatus(ctx, studentA, f.topic.ID, items[0].ID, true)
	require.NoError(t, err)
	_, err = f.svc.DeleteCoreResource(ctx, instructor, f.topic.ID, items[0].ID)
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(ctx, studentA)
	require.NoError(t, err)
	require.Len(t, dash.Enrolled, 1)
	assert.Equal(t, 0, dash.Enrolled[0].Done)
	assert.Equal(t, 1, dash.Enrolled[0].TotalCoreResources)
}

func TestProgressRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "A", Text: "a"},
		{Kind: classroom.KindText, Name: "B", Text: "b"},
	})
	require.NoError(t, err)
	_, err = f.svc.SetResourceStatus(ctx, studentB, f.topic.ID, items[1].ID, true)
	require.NoError(t, err)

	roster, err := f.svc.ProgressRoster(ctx, instructor, f.course.ID)
	require.NoError(t, err)
	require.Len(t, roster.Rows, 2)
	require.Len(t, roster.Topics, 1)

	rows := map[string]classroom.RosterRow{}
	for _, r := range roster.Rows {
		rows[r.StudentID] = r
	}
	assert.Equal(t, 0, rows[studentA].Done)
	assert.Equal(t, 1, rows[studentB].Done)
	assert.Equal(t, 1, rows[studentB].TopicDone[f.topic.ID])
	assert.Equal(t, 2, rows[studentB].Total)

	_, err = f.svc.ProgressRoster(ctx, studentA, f.course.ID)
	requireKind(t, err, apperr.KindUnauthorized)
}
