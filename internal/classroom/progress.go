package classroom

import (
	"context"
	"slices"
	"time"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
)

// CourseCard summarizes a course on the dashboard.
type CourseCard struct {
	ID                 string  `json:"_id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Instructor         string  `json:"instructor"`
	Topics             int     `json:"topics"`
	TotalCoreResources int     `json:"totalCoreResources"`
	Done               int     `json:"done"`
	Progress           float64 `json:"progress"`
}

// Dashboard groups the caller's courses. Completed courses are listed only
// under Completed.
type Dashboard struct {
	Enrolled  []CourseCard `json:"enrolled"`
	Created   []CourseCard `json:"created"`
	Completed []CourseCard `json:"completed"`
}

// RosterRow is one student's progress in a course.
type RosterRow struct {
	StudentID  string         `json:"studentId"`
	EnrolledAt time.Time      `json:"enrolledAt"`
	TopicDone  map[string]int `json:"topicDone"`
	Done       int            `json:"done"`
	Total      int            `json:"total"`
	Progress   float64        `json:"progress"`
}

// Roster is the instructor's view of every enrolled student.
type Roster struct {
	Course Course         `json:"course"`
	Topics []TopicSummary `json:"topics"`
	Rows   []RosterRow    `json:"rows"`
}

// courseResources indexes the live core resources of a course by topic.
type courseResources struct {
	topics  []Topic
	byTopic map[string][]string
	total   int
}

func (s *Service) loadResources(ctx context.Context, course *Course) (*courseResources, error) {
	topics, err := s.store.GetTopics(ctx, course.Topics)
	if err != nil {
		return nil, err
	}
	cr := &courseResources{topics: topics, byTopic: make(map[string][]string, len(topics))}
	for _, t := range topics {
		for _, r := range t.CoreResources {
			cr.byTopic[t.ID] = append(cr.byTopic[t.ID], r.ID)
		}
		cr.total += len(t.CoreResources)
	}
	return cr, nil
}

// done counts finished resources that still exist, per topic and overall.
func (cr *courseResources) done(p CourseProgress) (map[string]int, int) {
	perTopic := make(map[string]int)
	total := 0
	for topicID, ids := range p.TopicStatus {
		live := cr.byTopic[topicID]
		for _, id := range ids {
			if slices.Contains(live, id) {
				perTopic[topicID]++
				total++
			}
		}
	}
	return perTopic, total
}

func ratio(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func card(c *Course, cr *courseResources) CourseCard {
	return CourseCard{
		ID:                 c.ID,
		Name:               c.Name,
		Description:        c.Description,
		Instructor:         c.Instructor,
		Topics:             len(cr.topics),
		TotalCoreResources: cr.total,
	}
}

// Dashboard builds the caller's enrolled, created and completed course cards.
func (s *Service) Dashboard(ctx context.Context, identity string) (*Dashboard, error) {
	if identity == "" {
		return nil, apperr.Unauthorized("No token, authorization denied")
	}

	dash := &Dashboard{Enrolled: []CourseCard{}, Created: []CourseCard{}, Completed: []CourseCard{}}

	created, err := s.store.ListCoursesByInstructor(ctx, identity)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range created {
		cr, err := s.loadResources(ctx, &created[i])
		if err != nil {
			return nil, apperr.Internal(err)
		}
		dash.Created = append(dash.Created, card(&created[i], cr))
	}

	enrollments, err := s.store.ListProgressByUser(ctx, identity)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ids := make([]string, 0, len(enrollments))
	for _, p := range enrollments {
		ids = append(ids, p.Course)
	}
	courses, err := s.store.GetCourses(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byID := make(map[string]*Course, len(courses))
	for i := range courses {
		byID[courses[i].ID] = &courses[i]
	}

	for _, p := range enrollments {
		course, ok := byID[p.Course]
		if !ok {
			continue
		}
		cr, err := s.loadResources(ctx, course)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		c := card(course, cr)
		_, c.Done = cr.done(p)
		c.Progress = ratio(c.Done, c.TotalCoreResources)
		if c.TotalCoreResources > 0 && c.Progress >= 1 {
			dash.Completed = append(dash.Completed, c)
		} else {
			dash.Enrolled = append(dash.Enrolled, c)
		}
	}
	return dash, nil
}

// ProgressRoster lists every enrolled student's progress for the instructor.
func (s *Service) ProgressRoster(ctx context.Context, identity, courseID string) (*Roster, error) {
	course, err := s.InstructorAuth(ctx, identity, courseID)
	if err != nil {
		return nil, err
	}
	cr, err := s.loadResources(ctx, course)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	enrollments, err := s.store.ListProgressByCourse(ctx, courseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	roster := &Roster{Course: *course, Topics: make([]TopicSummary, 0, len(cr.topics)), Rows: make([]RosterRow, 0, len(enrollments))}
	for _, t := range cr.topics {
		roster.Topics = append(roster.Topics, TopicSummary{ID: t.ID, Name: t.Name, Description: t.Description, Resources: len(t.CoreResources)})
	}
	for _, p := range enrollments {
		perTopic, done := cr.done(p)
		roster.Rows = append(roster.Rows, RosterRow{
			StudentID:  p.User,
			EnrolledAt: p.CreatedAt,
			TopicDone:  perTopic,
			Done:       done,
			Total:      cr.total,
			Progress:   ratio(done, cr.total),
		})
	}
	return roster, nil
}
