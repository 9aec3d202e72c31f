package classroom

import (
	"context"
	"errors"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
)

// Role is a caller's relation to a course.
type Role int

const (
	RoleNone Role = iota
	RoleInstructor
	RoleStudent
)

// RoleIn resolves identity's role in course. Students are users holding a
// CourseProgress record who are not the instructor.
func (s *Service) RoleIn(ctx context.Context, identity string, course *Course) (Role, error) {
	if identity == "" {
		return RoleNone, nil
	}
	if course.Instructor == identity {
		return RoleInstructor, nil
	}
	_, err := s.store.GetProgress(ctx, identity, course.ID)
	switch {
	case err == nil:
		return RoleStudent, nil
	case errors.Is(err, ErrNotFound):
		return RoleNone, nil
	default:
		return RoleNone, apperr.Internal(err)
	}
}

// InstructorAuth allows only the course instructor.
func (s *Service) InstructorAuth(ctx context.Context, identity, courseID string) (*Course, error) {
	return s.authorize(ctx, identity, courseID, "Not authorized to edit course", RoleInstructor)
}

// StudentAuth allows only enrolled students.
func (s *Service) StudentAuth(ctx context.Context, identity, courseID string) (*Course, error) {
	return s.authorize(ctx, identity, courseID, "Not enrolled in course", RoleStudent)
}

// ClassroomAuth allows the instructor and enrolled students.
func (s *Service) ClassroomAuth(ctx context.Context, identity, courseID string) (*Course, error) {
	return s.authorize(ctx, identity, courseID, "Not a member of this course", RoleInstructor, RoleStudent)
}

func (s *Service) authorize(ctx context.Context, identity, courseID, deny string, allowed ...Role) (*Course, error) {
	if courseID == "" {
		return nil, apperr.BadRequest("Course Id not found")
	}
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, storeErr(err, "Course not found")
	}
	role, err := s.RoleIn(ctx, identity, course)
	if err != nil {
		return nil, err
	}
	for _, r := range allowed {
		if role == r {
			return course, nil
		}
	}
	return nil, apperr.Unauthorized(deny)
}

// topicGuard resolves the topic's course and runs guard against it.
func (s *Service) topicGuard(ctx context.Context, identity, topicID string,
	guard func(context.Context, string, string) (*Course, error),
) (*Topic, *Course, error) {
	if topicID == "" {
		return nil, nil, apperr.BadRequest("Invalid Topic Id")
	}
	topic, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, nil, storeErr(err, "Topic not found")
	}
	course, err := guard(ctx, identity, topic.Course)
	if err != nil {
		return nil, nil, err
	}
	return topic, course, nil
}

// commentGuard resolves the comment's course and runs guard against it.
func (s *Service) commentGuard(ctx context.Context, identity, commentID string,
	guard func(context.Context, string, string) (*Course, error),
) (*Comment, *Course, error) {
	if commentID == "" {
		return nil, nil, apperr.BadRequest("Comment not found")
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, nil, storeErr(err, "Comment not found")
	}
	course, err := guard(ctx, identity, comment.Course)
	if err != nil {
		return nil, nil, err
	}
	return comment, course, nil
}
