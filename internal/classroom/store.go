package classroom

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// CourseStore persists courses.
type CourseStore interface {
	CreateCourse(ctx context.Context, c Course) (*Course, error)
	GetCourse(ctx context.Context, id string) (*Course, error)
	GetCourses(ctx context.Context, ids []string) ([]Course, error)
	ListCoursesByInstructor(ctx context.Context, userID string) ([]Course, error)
	UpdateCourse(ctx context.Context, id string, name, description *string) (*Course, error)
	PushCourseTopic(ctx context.Context, courseID, topicID string) error
	PullCourseTopic(ctx context.Context, courseID, topicID string) error
	PushDiscussion(ctx context.Context, courseID, commentID string) ([]string, error)
	PullDiscussion(ctx context.Context, courseID, commentID string) ([]string, error)
}

// TopicStore persists topics and their embedded lists.
type TopicStore interface {
	CreateTopic(ctx context.Context, t Topic) (*Topic, error)
	GetTopic(ctx context.Context, id string) (*Topic, error)
	GetTopics(ctx context.Context, ids []string) ([]Topic, error)
	UpdateTopic(ctx context.Context, id string, name, description *string) (*Topic, error)
	DeleteTopic(ctx context.Context, id string) error
	SetCoreResources(ctx context.Context, topicID string, items []ResourceItem) ([]ResourceItem, error)
	// InsertCoreResource inserts at position, appending when position is
	// negative or beyond the end of the list.
	InsertCoreResource(ctx context.Context, topicID string, item ResourceItem, position int) error
	RemoveCoreResource(ctx context.Context, topicID, resourceID string) ([]ResourceItem, error)
	PushTopicComment(ctx context.Context, topicID string, list CommentList, commentID string) ([]string, error)
	// PullTopicComment removes commentID from both comment lists.
	PullTopicComment(ctx context.Context, topicID, commentID string) (*Topic, error)
}

// TestStore persists tests.
type TestStore interface {
	CreateTest(ctx context.Context, t Test) (*Test, error)
	GetTest(ctx context.Context, id string) (*Test, error)
	DeleteTest(ctx context.Context, id string) error
	ListTestsBefore(ctx context.Context, before time.Time) ([]Test, error)
}

// CommentStore persists comments. Like and Unlike are single conditional
// updates.
type CommentStore interface {
	CreateComment(ctx context.Context, c Comment) (*Comment, error)
	GetComment(ctx context.Context, id string) (*Comment, error)
	GetComments(ctx context.Context, ids []string) ([]Comment, error)
	DeleteComment(ctx context.Context, id string) error
	LikeComment(ctx context.Context, id, userID string) ([]string, error)
	UnlikeComment(ctx context.Context, id, userID string) ([]string, error)
	AddReply(ctx context.Context, id string, r Reply) ([]Reply, error)
	ListCommentsBefore(ctx context.Context, before time.Time) ([]Comment, error)
}

// ProgressStore persists enrollment records.
type ProgressStore interface {
	CreateProgress(ctx context.Context, p CourseProgress) (*CourseProgress, error)
	GetProgress(ctx context.Context, userID, courseID string) (*CourseProgress, error)
	ListProgressByUser(ctx context.Context, userID string) ([]CourseProgress, error)
	ListProgressByCourse(ctx context.Context, courseID string) ([]CourseProgress, error)
	SetResourceStatus(ctx context.Context, userID, courseID, topicID, resourceID string, done bool) (*CourseProgress, error)
}

// Store is the document store behind the classroom service.
type Store interface {
	CourseStore
	TopicStore
	TestStore
	CommentStore
	ProgressStore
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu       sync.RWMutex
	courses  map[string]*Course
	topics   map[string]*Topic
	tests    map[string]*Test
	comments map[string]*Comment
	progress map[string]*CourseProgress
}

// NewMemoryStore creates a new in-memory classroom store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses:  make(map[string]*Course),
		topics:   make(map[string]*Topic),
		tests:    make(map[string]*Test),
		comments: make(map[string]*Comment),
		progress: make(map[string]*CourseProgress),
	}
}

func (s *MemoryStore) CreateCourse(_ context.Context, c Course) (*Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.Topics = nonNil(c.Topics)
	c.Discussion = nonNil(c.Discussion)
	s.courses[c.ID] = &c
	return copyCourse(&c), nil
}

func (s *MemoryStore) GetCourse(_ context.Context, id string) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", id, ErrNotFound)
	}
	return copyCourse(c), nil
}

func (s *MemoryStore) GetCourses(_ context.Context, ids []string) ([]Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Course{}
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			out = append(out, *copyCourse(c))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListCoursesByInstructor(_ context.Context, userID string) ([]Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Course{}
	for _, c := range s.courses {
		if c.Instructor == userID {
			out = append(out, *copyCourse(c))
		}
	}
	slices.SortFunc(out, func(a, b Course) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateCourse(_ context.Context, id string, name, description *string) (*Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", id, ErrNotFound)
	}
	if name != nil {
		c.Name = *name
	}
	if description != nil {
		c.Description = *description
	}
	return copyCourse(c), nil
}

func (s *MemoryStore) PushCourseTopic(_ context.Context, courseID, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[courseID]
	if !ok {
		return fmt.Errorf("course %s: %w", courseID, ErrNotFound)
	}
	c.Topics = append(c.Topics, topicID)
	return nil
}

func (s *MemoryStore) PullCourseTopic(_ context.Context, courseID, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[courseID]
	if !ok {
		return fmt.Errorf("course %s: %w", courseID, ErrNotFound)
	}
	c.Topics = without(c.Topics, topicID)
	return nil
}

func (s *MemoryStore) PushDiscussion(_ context.Context, courseID, commentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[courseID]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, ErrNotFound)
	}
	c.Discussion = append(c.Discussion, commentID)
	return slices.Clone(c.Discussion), nil
}

func (s *MemoryStore) PullDiscussion(_ context.Context, courseID, commentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[courseID]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, ErrNotFound)
	}
	c.Discussion = without(c.Discussion, commentID)
	return slices.Clone(c.Discussion), nil
}

func (s *MemoryStore) CreateTopic(_ context.Context, t Topic) (*Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.CoreResources == nil {
		t.CoreResources = []ResourceItem{}
	}
	t.Doubt = nonNil(t.Doubt)
	t.ResourceDump = nonNil(t.ResourceDump)
	s.topics[t.ID] = &t
	return copyTopic(&t), nil
}

func (s *MemoryStore) GetTopic(_ context.Context, id string) (*Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return nil, fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	return copyTopic(t), nil
}

func (s *MemoryStore) GetTopics(_ context.Context, ids []string) ([]Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Topic{}
	for _, id := range ids {
		if t, ok := s.topics[id]; ok {
			out = append(out, *copyTopic(t))
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateTopic(_ context.Context, id string, name, description *string) (*Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[id]
	if !ok {
		return nil, fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	if name != nil {
		t.Name = *name
	}
	if description != nil {
		t.Description = *description
	}
	return copyTopic(t), nil
}

func (s *MemoryStore) DeleteTopic(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[id]; !ok {
		return fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	delete(s.topics, id)
	return nil
}

func (s *MemoryStore) SetCoreResources(_ context.Context, topicID string, items []ResourceItem) ([]ResourceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	t.CoreResources = append([]ResourceItem{}, items...)
	return slices.Clone(t.CoreResources), nil
}

func (s *MemoryStore) InsertCoreResource(_ context.Context, topicID string, item ResourceItem, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topicID]
	if !ok {
		return fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	if position < 0 || position > len(t.CoreResources) {
		position = len(t.CoreResources)
	}
	t.CoreResources = slices.Insert(t.CoreResources, position, item)
	return nil
}

func (s *MemoryStore) RemoveCoreResource(_ context.Context, topicID, resourceID string) ([]ResourceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	t.CoreResources = slices.DeleteFunc(t.CoreResources, func(r ResourceItem) bool { return r.ID == resourceID })
	return slices.Clone(t.CoreResources), nil
}

func (s *MemoryStore) PushTopicComment(_ context.Context, topicID string, list CommentList, commentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	switch list {
	case ListDoubt:
		t.Doubt = append(t.Doubt, commentID)
		return slices.Clone(t.Doubt), nil
	case ListResourceDump:
		t.ResourceDump = append(t.ResourceDump, commentID)
		return slices.Clone(t.ResourceDump), nil
	}
	return nil, fmt.Errorf("unknown comment list %q", list)
}

func (s *MemoryStore) PullTopicComment(_ context.Context, topicID, commentID string) (*Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	t.Doubt = without(t.Doubt, commentID)
	t.ResourceDump = without(t.ResourceDump, commentID)
	return copyTopic(t), nil
}

func (s *MemoryStore) CreateTest(_ context.Context, t Test) (*Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Questions = slices.Clone(t.Questions)
	s.tests[t.ID] = &t
	out := t
	return &out, nil
}

func (s *MemoryStore) GetTest(_ context.Context, id string) (*Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tests[id]
	if !ok {
		return nil, fmt.Errorf("test %s: %w", id, ErrNotFound)
	}
	out := *t
	out.Questions = slices.Clone(t.Questions)
	return &out, nil
}

func (s *MemoryStore) DeleteTest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tests[id]; !ok {
		return fmt.Errorf("test %s: %w", id, ErrNotFound)
	}
	delete(s.tests, id)
	return nil
}

func (s *MemoryStore) ListTestsBefore(_ context.Context, before time.Time) ([]Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Test{}
	for _, t := range s.tests {
		if t.CreatedAt.Before(before) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateComment(_ context.Context, c Comment) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.Likes = nonNil(c.Likes)
	if c.Reply == nil {
		c.Reply = []Reply{}
	}
	s.comments[c.ID] = &c
	return copyComment(&c), nil
}

func (s *MemoryStore) GetComment(_ context.Context, id string) (*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	return copyComment(c), nil
}

func (s *MemoryStore) GetComments(_ context.Context, ids []string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Comment{}
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out = append(out, *copyComment(c))
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	delete(s.comments, id)
	return nil
}

func (s *MemoryStore) LikeComment(_ context.Context, id, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if slices.Contains(c.Likes, userID) {
		return nil, ErrAlreadyLiked
	}
	c.Likes = append(c.Likes, userID)
	return slices.Clone(c.Likes), nil
}

func (s *MemoryStore) UnlikeComment(_ context.Context, id, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if !slices.Contains(c.Likes, userID) {
		return nil, ErrNotLiked
	}
	c.Likes = without(c.Likes, userID)
	return slices.Clone(c.Likes), nil
}

func (s *MemoryStore) AddReply(_ context.Context, id string, r Reply) ([]Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	c.Reply = append(c.Reply, r)
	return slices.Clone(c.Reply), nil
}

func (s *MemoryStore) ListCommentsBefore(_ context.Context, before time.Time) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Comment{}
	for _, c := range s.comments {
		if c.CreatedAt.Before(before) {
			out = append(out, *copyComment(c))
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateProgress(_ context.Context, p CourseProgress) (*CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.progress {
		if existing.User == p.User && existing.Course == p.Course {
			return nil, ErrAlreadyEnrolled
		}
	}
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.TopicStatus == nil {
		p.TopicStatus = map[string][]string{}
	}
	s.progress[p.ID] = &p
	return copyProgress(&p), nil
}

func (s *MemoryStore) GetProgress(_ context.Context, userID, courseID string) (*CourseProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := s.findProgress(userID, courseID); p != nil {
		return copyProgress(p), nil
	}
	return nil, fmt.Errorf("progress %s/%s: %w", userID, courseID, ErrNotFound)
}

func (s *MemoryStore) ListProgressByUser(_ context.Context, userID string) ([]CourseProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []CourseProgress{}
	for _, p := range s.progress {
		if p.User == userID {
			out = append(out, *copyProgress(p))
		}
	}
	slices.SortFunc(out, func(a, b CourseProgress) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListProgressByCourse(_ context.Context, courseID string) ([]CourseProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []CourseProgress{}
	for _, p := range s.progress {
		if p.Course == courseID {
			out = append(out, *copyProgress(p))
		}
	}
	slices.SortFunc(out, func(a, b CourseProgress) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SetResourceStatus(_ context.Context, userID, courseID, topicID, resourceID string, done bool) (*CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findProgress(userID, courseID)
	if p == nil {
		return nil, fmt.Errorf("progress %s/%s: %w", userID, courseID, ErrNotFound)
	}
	ids := p.TopicStatus[topicID]
	switch {
	case done && !slices.Contains(ids, resourceID):
		p.TopicStatus[topicID] = append(ids, resourceID)
	case !done:
		if ids = without(ids, resourceID); len(ids) == 0 {
			delete(p.TopicStatus, topicID)
		} else {
			p.TopicStatus[topicID] = ids
		}
	}
	return copyProgress(p), nil
}

func (s *MemoryStore) findProgress(userID, courseID string) *CourseProgress {
	for _, p := range s.progress {
		if p.User == userID && p.Course == courseID {
			return p
		}
	}
	return nil
}

func copyCourse(c *Course) *Course {
	out := *c
	out.Topics = slices.Clone(c.Topics)
	out.Discussion = slices.Clone(c.Discussion)
	return &out
}

func copyTopic(t *Topic) *Topic {
	out := *t
	out.CoreResources = slices.Clone(t.CoreResources)
	out.Doubt = slices.Clone(t.Doubt)
	out.ResourceDump = slices.Clone(t.ResourceDump)
	return &out
}

func copyComment(c *Comment) *Comment {
	out := *c
	out.Likes = slices.Clone(c.Likes)
	out.Reply = slices.Clone(c.Reply)
	return &out
}

func copyProgress(p *CourseProgress) *CourseProgress {
	out := *p
	out.TopicStatus = make(map[string][]string, len(p.TopicStatus))
	for k, v := range p.TopicStatus {
		out.TopicStatus[k] = slices.Clone(v)
	}
	return &out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// without returns s minus every occurrence of v, preserving order.
func without(s []string, v string) []string {
	out := make([]string, 0, len(s))
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// orderByID arranges items in the order of ids, dropping ids with no match.
func orderByID[T any](ids []string, items []T, key func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, it := range items {
		byID[key(it)] = it
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}
