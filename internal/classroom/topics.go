package classroom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
)

// TopicView is a topic with its comment lists populated.
type TopicView struct {
	ID            string         `json:"_id"`
	Course        string         `json:"course"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	CoreResources []ResourceItem `json:"coreResources"`
	Doubt         []Comment      `json:"doubt"`
	ResourceDump  []Comment      `json:"resourceDump"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// TestInput is the payload of AddTest. A nil Position appends.
type TestInput struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
	Position  *int       `json:"position,omitempty"`
}

// GetTopic returns the populated topic. Reads are memoized until the next
// mutation of the topic.
func (s *Service) GetTopic(ctx context.Context, topicID string) (*TopicView, error) {
	if topicID == "" {
		return nil, apperr.BadRequest("Invalid Topic Id")
	}

	gen, err := s.cache.GetInt(ctx, topicGenKey(topicID))
	cacheable := err == nil
	if err != nil {
		slog.Warn("topic cache read failed", "topic_id", topicID, "error", err)
	}
	if cacheable {
		var cached TopicView
		if hit, err := s.cache.GetJSON(ctx, topicKey(topicID, gen), &cached); err != nil {
			slog.Warn("topic cache read failed", "topic_id", topicID, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	topic, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, storeErr(err, "Topic not found")
	}

	view := &TopicView{
		ID:            topic.ID,
		Course:        topic.Course,
		Name:          topic.Name,
		Description:   topic.Description,
		CoreResources: topic.CoreResources,
		CreatedAt:     topic.CreatedAt,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		view.Doubt, err = s.store.GetComments(gctx, topic.Doubt)
		return err
	})
	g.Go(func() error {
		var err error
		view.ResourceDump, err = s.store.GetComments(gctx, topic.ResourceDump)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	if !cacheable {
		return view, nil
	}
	if err := s.cache.SetJSON(ctx, topicKey(topicID, gen), view, s.topicTTL); err != nil {
		slog.Warn("topic cache write failed", "topic_id", topicID, "error", err)
	}
	return view, nil
}

// UpdateTopic changes the name and/or description of a topic.
func (s *Service) UpdateTopic(ctx context.Context, identity, topicID string, name, description *string) (*Topic, error) {
	if _, _, err := s.topicGuard(ctx, identity, topicID, s.InstructorAuth); err != nil {
		return nil, err
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, apperr.Invalid(apperr.FieldError{Param: "name", Msg: "Can't be empty"})
	}

	topic, err := s.store.UpdateTopic(ctx, topicID, name, description)
	if err != nil {
		return nil, storeErr(err, "Topic not found")
	}
	s.invalidateTopic(ctx, topicID)
	return topic, nil
}

// ReplaceCoreResources validates every item before writing, then replaces the
// topic's core resources wholesale.
func (s *Service) ReplaceCoreResources(ctx context.Context, identity, topicID string, items []ResourceInput) ([]ResourceItem, error) {
	topic, _, err := s.topicGuard(ctx, identity, topicID, s.InstructorAuth)
	if err != nil {
		return nil, err
	}

	normalized := make([]ResourceItem, 0, len(items))
	for i, in := range items {
		if !in.valid() {
			return nil, apperr.Invalid(apperr.FieldError{Param: strconv.Itoa(i), Msg: "Invalid data"})
		}
		item := in.item()
		if item.Kind == KindTest {
			if err := s.checkTestOwner(ctx, topicID, item.TestID()); err != nil {
				if errors.Is(err, errForeignTest) {
					return nil, apperr.Invalid(apperr.FieldError{Param: strconv.Itoa(i), Msg: "Test belongs to another topic"})
				}
				return nil, apperr.Internal(err)
			}
		}
		normalized = append(normalized, item)
	}

	stored, err := s.store.SetCoreResources(ctx, topicID, normalized)
	if err != nil {
		return nil, storeErr(err, "Topic not found")
	}
	s.invalidateTopic(ctx, topicID)
	s.publish(Event{
		Type:     EventResourcesReplaced,
		CourseID: topic.Course,
		TopicID:  topicID,
		UserID:   identity,
		Data:     map[string]any{"count": len(stored)},
	})
	return stored, nil
}

var errForeignTest = errors.New("test belongs to another topic")

// checkTestOwner fails with errForeignTest when testID names a Test of a
// different topic. Unknown tests pass; the item then only dangles.
func (s *Service) checkTestOwner(ctx context.Context, topicID, testID string) error {
	test, err := s.store.GetTest(ctx, testID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load test %s: %w", testID, err)
	}
	if test.Topic != topicID {
		return errForeignTest
	}
	return nil
}

// DeleteCoreResource removes one item. Deleting a test item deletes the Test
// first and leaves the topic untouched if that fails.
func (s *Service) DeleteCoreResource(ctx context.Context, identity, topicID, resourceID string) ([]ResourceItem, error) {
	topic, _, err := s.topicGuard(ctx, identity, topicID, s.InstructorAuth)
	if err != nil {
		return nil, err
	}

	var target *ResourceItem
	for i := range topic.CoreResources {
		if topic.CoreResources[i].ID == resourceID {
			target = &topic.CoreResources[i]
			break
		}
	}
	if target == nil {
		return nil, apperr.BadRequest("Core resource not found")
	}

	if target.Kind == KindTest {
		if err := s.store.DeleteTest(ctx, target.TestID()); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, apperr.Internal(err)
		}
	}

	remaining, err := s.store.RemoveCoreResource(ctx, topicID, resourceID)
	if err != nil {
		return nil, storeErr(err, "Topic not found")
	}
	s.invalidateTopic(ctx, topicID)
	s.publish(Event{
		Type:     EventResourceDeleted,
		CourseID: topic.Course,
		TopicID:  topicID,
		UserID:   identity,
		Data:     map[string]any{"resourceId": resourceID, "kind": string(target.Kind)},
	})
	return remaining, nil
}

// AddTest creates a Test and references it from the topic at the requested
// position. Both writes run concurrently and must both succeed.
func (s *Service) AddTest(ctx context.Context, identity, topicID string, in TestInput) (*Test, error) {
	topic, _, err := s.topicGuard(ctx, identity, topicID, s.InstructorAuth)
	if err != nil {
		return nil, err
	}

	var fields []apperr.FieldError
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, apperr.FieldError{Param: "name", Msg: "Can't be empty"})
	}
	if len(in.Questions) == 0 {
		fields = append(fields, apperr.FieldError{Param: "questions", Msg: "questions can't be empty"})
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid(fields...)
	}

	test := Test{
		ID:        NewID(),
		Topic:     topicID,
		Name:      in.Name,
		Questions: in.Questions,
		CreatedAt: time.Now(),
	}
	fields, err = validateTest(test)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid(fields...)
	}

	position := -1
	if in.Position != nil {
		position = max(*in.Position, 0)
	}
	item := ResourceItem{ID: NewID(), Kind: KindTest, Name: test.Name, Payload: test.ID}

	var created *Test
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		created, err = s.store.CreateTest(gctx, test)
		return err
	})
	g.Go(func() error {
		return s.store.InsertCoreResource(gctx, topicID, item, position)
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr(err, "Topic not found")
	}

	s.invalidateTopic(ctx, topicID)
	s.publish(Event{
		Type:     EventTestCreated,
		CourseID: topic.Course,
		TopicID:  topicID,
		UserID:   identity,
		Data:     map[string]any{"testId": created.ID, "position": position},
	})
	return created, nil
}

// GetTest returns a test to members of its course.
func (s *Service) GetTest(ctx context.Context, identity, testID string) (*Test, error) {
	if testID == "" {
		return nil, apperr.BadRequest("Test not found")
	}
	test, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return nil, storeErr(err, "Test not found")
	}
	if _, _, err := s.topicGuard(ctx, identity, test.Topic, s.ClassroomAuth); err != nil {
		return nil, err
	}
	return test, nil
}
