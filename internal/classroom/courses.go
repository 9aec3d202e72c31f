package classroom

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
)

// TopicSummary is a topic as listed on its course page.
type TopicSummary struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Resources   int    `json:"resources"`
}

// CourseView is the public course page.
type CourseView struct {
	ID                 string         `json:"_id"`
	Name               string         `json:"name"`
	Description        string         `json:"description"`
	Instructor         string         `json:"instructor"`
	Topics             []TopicSummary `json:"topics"`
	Discussion         []Comment      `json:"discussion"`
	TotalCoreResources int            `json:"totalCoreResources"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// CreateCourse creates a course owned by identity.
func (s *Service) CreateCourse(ctx context.Context, identity, name, description string) (*Course, error) {
	if identity == "" {
		return nil, apperr.Unauthorized("No token, authorization denied")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid(apperr.FieldError{Param: "name", Msg: "Can't be empty"})
	}

	course, err := s.store.CreateCourse(ctx, Course{
		Name:        name,
		Description: strings.TrimSpace(description),
		Instructor:  identity,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return course, nil
}

// GetCourse returns the public course page.
func (s *Service) GetCourse(ctx context.Context, courseID string) (*CourseView, error) {
	if courseID == "" {
		return nil, apperr.BadRequest("Course Id not found")
	}
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, storeErr(err, "Course not found")
	}

	var (
		topics     []Topic
		discussion []Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		topics, err = s.store.GetTopics(gctx, course.Topics)
		return err
	})
	g.Go(func() error {
		var err error
		discussion, err = s.store.GetComments(gctx, course.Discussion)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	view := &CourseView{
		ID:          course.ID,
		Name:        course.Name,
		Description: course.Description,
		Instructor:  course.Instructor,
		Topics:      make([]TopicSummary, 0, len(topics)),
		Discussion:  discussion,
		CreatedAt:   course.CreatedAt,
	}
	for _, t := range topics {
		view.Topics = append(view.Topics, TopicSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Resources:   len(t.CoreResources),
		})
		view.TotalCoreResources += len(t.CoreResources)
	}
	return view, nil
}

// UpdateCourse changes the name and/or description of a course.
func (s *Service) UpdateCourse(ctx context.Context, identity, courseID string, name, description *string) (*Course, error) {
	if _, err := s.InstructorAuth(ctx, identity, courseID); err != nil {
		return nil, err
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, apperr.Invalid(apperr.FieldError{Param: "name", Msg: "Can't be empty"})
	}

	course, err := s.store.UpdateCourse(ctx, courseID, name, description)
	if err != nil {
		return nil, storeErr(err, "Course not found")
	}
	return course, nil
}

// AddTopic appends a new topic to the course.
func (s *Service) AddTopic(ctx context.Context, identity, courseID, name, description string) (*Topic, error) {
	if _, err := s.InstructorAuth(ctx, identity, courseID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid(apperr.FieldError{Param: "name", Msg: "Can't be empty"})
	}

	topic, err := s.store.CreateTopic(ctx, Topic{
		Course:      courseID,
		Name:        name,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.store.PushCourseTopic(ctx, courseID, topic.ID); err != nil {
		return nil, storeErr(err, "Course not found")
	}
	return topic, nil
}

// DeleteTopic removes a topic from its course. Tests and comments that only
// the topic referenced are left to the sweeper.
func (s *Service) DeleteTopic(ctx context.Context, identity, courseID, topicID string) (*Course, error) {
	if _, err := s.InstructorAuth(ctx, identity, courseID); err != nil {
		return nil, err
	}
	topic, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, storeErr(err, "Topic not found")
	}
	if topic.Course != courseID {
		return nil, apperr.BadRequest("Topic not found")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.DeleteTopic(gctx, topicID)
	})
	g.Go(func() error {
		return s.store.PullCourseTopic(gctx, courseID, topicID)
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	s.invalidateTopic(ctx, topicID)

	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, storeErr(err, "Course not found")
	}
	return course, nil
}

// Enroll makes identity a student of the course.
func (s *Service) Enroll(ctx context.Context, identity, courseID string) (*CourseProgress, error) {
	if courseID == "" {
		return nil, apperr.BadRequest("Course Id not found")
	}
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, storeErr(err, "Course not found")
	}
	if course.Instructor == identity {
		return nil, apperr.BadRequest("Instructor cannot enroll")
	}

	progress, err := s.store.CreateProgress(ctx, CourseProgress{User: identity, Course: courseID})
	if errors.Is(err, ErrAlreadyEnrolled) {
		return nil, apperr.BadRequest("Already enrolled")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.publish(Event{Type: EventEnrolled, CourseID: courseID, UserID: identity})
	return progress, nil
}

// SetResourceStatus marks a core resource done or not done for the student.
func (s *Service) SetResourceStatus(ctx context.Context, identity, topicID, resourceID string, done bool) (*CourseProgress, error) {
	topic, course, err := s.topicGuard(ctx, identity, topicID, s.StudentAuth)
	if err != nil {
		return nil, err
	}
	found := false
	for _, r := range topic.CoreResources {
		if r.ID == resourceID {
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.BadRequest("Core resource not found")
	}

	progress, err := s.store.SetResourceStatus(ctx, identity, course.ID, topicID, resourceID, done)
	if err != nil {
		return nil, storeErr(err, "Not enrolled in course")
	}
	return progress, nil
}
