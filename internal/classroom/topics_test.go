package classroom_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
)

func quiz() []classroom.Question {
	return []classroom.Question{
		{Question: "2x = 4, x = ?", Options: []string{"1", "2"}, Answer: "2"},
	}
}

func TestReplaceCoreResources_NormalizesPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "Intro", Text: "hello"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].ID, 24)
	assert.Equal(t, classroom.KindText, got[0].Kind)
	assert.Equal(t, "hello", got[0].Payload)
	assert.Equal(t, "hello", got[0].Text())

	stored, err := f.store.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(got, stored.CoreResources); diff != "" {
		t.Errorf("stored resources mismatch (-returned +stored):\n%s", diff)
	}
	events := f.events.Events()
	assert.Equal(t, classroom.EventResourcesReplaced, events[len(events)-1].Type)
}

func TestReplaceCoreResources_KeepsGivenIDs(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.ReplaceCoreResources(context.Background(), instructor, f.topic.ID, []classroom.ResourceInput{
		{ID: "keep-me", Kind: classroom.KindVideo, Name: "Clip", URL: "https://v.test/1", Text: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "keep-me", got[0].ID)
	assert.Equal(t, "https://v.test/1", got[0].URL())
}

func TestReplaceCoreResources_InvalidItemLeavesTopicUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "Intro", Text: "hello"},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		items []classroom.ResourceInput
		param string
	}{
		{"bad-kind", []classroom.ResourceInput{
			{Kind: classroom.KindText, Name: "ok", Text: "a"},
			{Kind: "audio", Name: "x", URL: "u"},
		}, "1"},
		{"no-name", []classroom.ResourceInput{{Kind: classroom.KindText, Text: "a"}}, "0"},
		{"no-payload", []classroom.ResourceInput{{Kind: classroom.KindVideo, Name: "v"}}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, tt.items)
			requireKind(t, err, apperr.KindBadRequest)
			ae := apperr.As(err)
			assert.Equal(t, "Invalid data", ae.Msg)
			require.Len(t, ae.Fields, 1)
			assert.Equal(t, tt.param, ae.Fields[0].Param)

			stored, err := f.store.GetTopic(ctx, f.topic.ID)
			require.NoError(t, err)
			require.Len(t, stored.CoreResources, 1)
			assert.Equal(t, "Intro", stored.CoreResources[0].Name)
		})
	}
}

func TestReplaceCoreResources_RequiresInstructor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ReplaceCoreResources(context.Background(), studentA, f.topic.ID, nil)
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestReplaceCoreResources_UnknownTopic(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ReplaceCoreResources(context.Background(), instructor, classroom.NewID(), nil)
	requireMsg(t, err, "Topic not found")
}

func TestAddTest_InsertsAtPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "Intro", Text: "hello"},
	})
	require.NoError(t, err)

	zero := 0
	test, err := f.svc.AddTest(ctx, instructor, f.topic.ID, classroom.TestInput{Name: "Quiz1", Questions: quiz(), Position: &zero})
	require.NoError(t, err)

	persisted, err := f.store.GetTest(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quiz1", persisted.Name)
	assert.Equal(t, f.topic.ID, persisted.Topic)

	topic, err := f.store.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	require.Len(t, topic.CoreResources, 2)
	first := topic.CoreResources[0]
	assert.Equal(t, classroom.KindTest, first.Kind)
	assert.Equal(t, test.ID, first.TestID())
	assert.Equal(t, "Quiz1", first.Name)
	assert.Equal(t, "Intro", topic.CoreResources[1].Name)
}

func TestAddTest_Positions(t *testing.T) {
	tests := []struct {
		name     string
		position *int
		wantAt   int
	}{
		{"nil-appends", nil, 2},
		{"beyond-appends", intPtr(10), 2},
		{"negative-prepends", intPtr(-3), 0},
		{"middle", intPtr(1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			_, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
				{Kind: classroom.KindText, Name: "A", Text: "a"},
				{Kind: classroom.KindText, Name: "B", Text: "b"},
			})
			require.NoError(t, err)

			test, err := f.svc.AddTest(ctx, instructor, f.topic.ID, classroom.TestInput{Name: "Q", Questions: quiz(), Position: tt.position})
			require.NoError(t, err)

			topic, err := f.store.GetTopic(ctx, f.topic.ID)
			require.NoError(t, err)
			require.Len(t, topic.CoreResources, 3)
			assert.Equal(t, test.ID, topic.CoreResources[tt.wantAt].TestID())
		})
	}
}

func TestAddTest_FieldErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddTest(context.Background(), instructor, f.topic.ID, classroom.TestInput{})
	requireKind(t, err, apperr.KindBadRequest)

	want := []apperr.FieldError{
		{Param: "name", Msg: "Can't be empty"},
		{Param: "questions", Msg: "questions can't be empty"},
	}
	if diff := cmp.Diff(want, apperr.As(err).Fields); diff != "" {
		t.Errorf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestAddTest_SchemaErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		questions []classroom.Question
	}{
		{"one-option", []classroom.Question{{Question: "q", Options: []string{"a"}, Answer: "a"}}},
		{"empty-question", []classroom.Question{{Options: []string{"a", "b"}, Answer: "a"}}},
		{"answer-not-an-option", []classroom.Question{{Question: "q", Options: []string{"a", "b"}, Answer: "c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddTest(ctx, instructor, f.topic.ID, classroom.TestInput{Name: "Q", Questions: tt.questions})
			requireKind(t, err, apperr.KindBadRequest)
			assert.NotEmpty(t, apperr.As(err).Fields)

			topic, err := f.store.GetTopic(ctx, f.topic.ID)
			require.NoError(t, err)
			assert.Empty(t, topic.CoreResources)
		})
	}
}

func TestDeleteCoreResource_TestCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "Intro", Text: "hello"},
	})
	require.NoError(t, err)
	test, err := f.svc.AddTest(ctx, instructor, f.topic.ID, classroom.TestInput{Name: "Quiz1", Questions: quiz()})
	require.NoError(t, err)

	topic, err := f.store.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	testItem := topic.CoreResources[1]

	remaining, err := f.svc.DeleteCoreResource(ctx, instructor, f.topic.ID, testItem.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Intro", remaining[0].Name)

	_, err = f.store.GetTest(ctx, test.ID)
	assert.ErrorIs(t, err, classroom.ErrNotFound)
}

func TestDeleteCoreResource_TestDeleteFails(t *testing.T) {
	f, hooked := newHookedFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddTest(ctx, instructor, f.topic.ID, classroom.TestInput{Name: "Quiz1", Questions: quiz()})
	require.NoError(t, err)
	topic, err := f.store.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	require.Len(t, topic.CoreResources, 1)
	before := len(f.events.Events())

	hooked.deleteTestErr = errors.New("connection reset")
	_, err = f.svc.DeleteCoreResource(ctx, instructor, f.topic.ID, topic.CoreResources[0].ID)
	requireKind(t, err, apperr.KindInternal)

	after, err := f.store.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	assert.Equal(t, topic.CoreResources, after.CoreResources)
	assert.NotContains(t, eventTypes(f.events.Events()[before:]), classroom.EventResourceDeleted)
}

func TestReplaceCoreResources_ForeignTest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.svc.AddTopic(ctx, instructor, f.course.ID, "T2", "")
	require.NoError(t, err)
	test, err := f.svc.AddTest(ctx, instructor, other.ID, classroom.TestInput{Name: "Quiz1", Questions: quiz()})
	require.NoError(t, err)

	_, err = f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "Intro", Text: "hello"},
		{Kind: classroom.KindTest, Name: "Quiz1", TestID: test.ID},
	})
	requireKind(t, err, apperr.KindBadRequest)
	assert.Equal(t, "Test belongs to another topic", apperr.As(err).Fields[0].Msg)

	topic, err := f.store.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	assert.Empty(t, topic.CoreResources)

	items, err := f.svc.ReplaceCoreResources(ctx, instructor, other.ID, []classroom.ResourceInput{
		{Kind: classroom.KindTest, Name: "Quiz1 renamed", TestID: test.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, test.ID, items[0].TestID())
}

func TestDeleteCoreResource_NonTestKeepsTests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
		{Kind: classroom.KindText, Name: "Intro", Text: "hello"},
	})
	require.NoError(t, err)
	test, err := f.svc.AddTest(ctx, instructor, f.topic.ID, classroom.TestInput{Name: "Quiz1", Questions: quiz()})
	require.NoError(t, err)

	remaining, err := f.svc.DeleteCoreResource(ctx, instructor, f.topic.ID, items[0].ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, test.ID, remaining[0].TestID())

	_, err = f.store.GetTest(ctx, test.ID)
	assert.NoError(t, err)
}

func TestDeleteCoreResource_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DeleteCoreResource(context.Background(), instructor, f.topic.ID, "nope")
	requireMsg(t, err, "Core resource not found")
}

func TestGetTopic_PopulatesAndMemoizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddComment(ctx, studentA, f.topic.ID, classroom.ListDoubt, "help")
	require.NoError(t, err)

	view, err := f.svc.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	require.Len(t, view.Doubt, 1)
	assert.Equal(t, "help", view.Doubt[0].Text)
	assert.Empty(t, view.ResourceDump)

	_, err = f.svc.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	_, err = f.svc.AddComment(ctx, studentB, f.topic.ID, classroom.ListDoubt, "me too")
	require.NoError(t, err)
	view, err = f.svc.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	assert.Len(t, view.Doubt, 2)
}

func TestGetTopic_FillRacingMutation(t *testing.T) {
	f, hooked := newHookedFixture(t)
	ctx := context.Background()

	hooked.onGetComments = func() {
		_, err := f.svc.ReplaceCoreResources(ctx, instructor, f.topic.ID, []classroom.ResourceInput{
			{Kind: classroom.KindText, Name: "Intro", Text: "hello"},
		})
		assert.NoError(t, err)
	}
	stale, err := f.svc.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	assert.Empty(t, stale.CoreResources)

	view, err := f.svc.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	require.Len(t, view.CoreResources, 1)
	assert.Equal(t, "Intro", view.CoreResources[0].Name)

	view, err = f.svc.GetTopic(ctx, f.topic.ID)
	require.NoError(t, err)
	assert.Len(t, view.CoreResources, 1)
	assert.Equal(t, 1, f.cache.hits)
}

func TestUpdateTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name := "Renamed"
	topic, err := f.svc.UpdateTopic(ctx, instructor, f.topic.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", topic.Name)
	assert.Equal(t, "Linear equations", topic.Description)

	empty := " "
	_, err = f.svc.UpdateTopic(ctx, instructor, f.topic.ID, &empty, nil)
	requireKind(t, err, apperr.KindBadRequest)
}

func TestGetTest_ClassroomOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	test, err := f.svc.AddTest(ctx, instructor, f.topic.ID, classroom.TestInput{Name: "Quiz1", Questions: quiz()})
	require.NoError(t, err)

	got, err := f.svc.GetTest(ctx, studentA, test.ID)
	require.NoError(t, err)
	assert.Equal(t, test.ID, got.ID)

	_, err = f.svc.GetTest(ctx, outsider, test.ID)
	requireKind(t, err, apperr.KindUnauthorized)
}

func intPtr(v int) *int { return &v }
