package classroom_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
)

const (
	instructor = "665f1c2e8a1b2c3d4e5f6a01"
	studentA   = "665f1c2e8a1b2c3d4e5f6a02"
	studentB   = "665f1c2e8a1b2c3d4e5f6a03"
	outsider   = "665f1c2e8a1b2c3d4e5f6a04"
)

type fixture struct {
	svc    *classroom.Service
	store  *classroom.MemoryStore
	events *classroom.MemorySink
	cache  *memCache
	course *classroom.Course
	topic  *classroom.Topic
}

// newFixture builds a course with one empty topic, one instructor and two
// enrolled students.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := classroom.NewMemoryStore()
	events := classroom.NewMemorySink()
	cache := newMemCache()
	svc := classroom.NewService(classroom.ServiceConfig{Store: store, Events: events, Cache: cache})

	course, err := svc.CreateCourse(ctx, instructor, "Algebra", "Form 1")
	require.NoError(t, err)
	topic, err := svc.AddTopic(ctx, instructor, course.ID, "T1", "Linear equations")
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, studentA, course.ID)
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, studentB, course.ID)
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, events: events, cache: cache, course: course, topic: topic}
}

func requireKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, apperr.KindOf(err), "error = %v", err)
}

func requireMsg(t *testing.T, err error, want string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, apperr.As(err).Msg)
}

func eventTypes(events []classroom.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

// memCache is an in-memory TopicCache that records hits.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gens map[string]int64
	hits int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, gens: map[string]int64{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(data, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) GetInt(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

func (c *memCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	return c.gens[key], nil
}

// hookStore lets a test run code inside, or fail, individual store calls.
type hookStore struct {
	*classroom.MemoryStore
	onGetComments func()
	hookOnce      sync.Once
	deleteTestErr error
}

func (s *hookStore) GetComments(ctx context.Context, ids []string) ([]classroom.Comment, error) {
	if s.onGetComments != nil {
		s.hookOnce.Do(s.onGetComments)
	}
	return s.MemoryStore.GetComments(ctx, ids)
}

func (s *hookStore) DeleteTest(ctx context.Context, id string) error {
	if s.deleteTestErr != nil {
		return s.deleteTestErr
	}
	return s.MemoryStore.DeleteTest(ctx, id)
}

// newHookedFixture is newFixture with the service running on a hookStore.
func newHookedFixture(t *testing.T) (*fixture, *hookStore) {
	t.Helper()
	base := newFixture(t)
	hooked := &hookStore{MemoryStore: base.store}
	base.svc = classroom.NewService(classroom.ServiceConfig{Store: hooked, Events: base.events, Cache: base.cache})
	return base, hooked
}
