package classroom

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
)

const defaultTopicTTL = 5 * time.Minute

// TopicCache memoizes topic reads. *cache.Cache satisfies it.
//
// Views are stored under a per-topic generation that every mutation bumps, so
// a read that raced a mutation fills a key no later read will look at.
type TopicCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetInt(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) GetJSON(context.Context, string, any) (bool, error) { return false, nil }

func (NopCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }

func (NopCache) Delete(context.Context, ...string) error { return nil }

func (NopCache) GetInt(context.Context, string) (int64, error) { return 0, nil }

func (NopCache) Incr(context.Context, string) (int64, error) { return 0, nil }

// ServiceConfig holds dependencies for the classroom service.
type ServiceConfig struct {
	Store    Store
	Events   EventSink
	Cache    TopicCache
	TopicTTL time.Duration // cache lifetime of topic reads (default 5m)
}

// Service implements course, topic, comment and progress operations. Every
// mutation takes the caller's identity explicitly and runs the matching guard
// before touching the store.
type Service struct {
	store    Store
	events   EventSink
	cache    TopicCache
	topicTTL time.Duration
}

// NewService creates a new classroom service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopSink{}
	}
	c := cfg.Cache
	if c == nil {
		c = NopCache{}
	}
	ttl := cfg.TopicTTL
	if ttl == 0 {
		ttl = defaultTopicTTL
	}
	return &Service{
		store:    store,
		events:   events,
		cache:    c,
		topicTTL: ttl,
	}
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

func (s *Service) publish(event Event) {
	if err := s.events.Publish(event); err != nil {
		slog.Warn("failed to publish event", "type", event.Type, "error", err)
	}
}

func topicKey(topicID string, gen int64) string {
	return "classroom:topic:" + topicID + ":" + strconv.FormatInt(gen, 10)
}

func topicGenKey(topicID string) string {
	return "classroom:topic:" + topicID + ":gen"
}

func (s *Service) invalidateTopic(ctx context.Context, topicID string) {
	gen, err := s.cache.Incr(ctx, topicGenKey(topicID))
	if err != nil {
		slog.Warn("failed to invalidate topic cache", "topic_id", topicID, "error", err)
		return
	}
	if err := s.cache.Delete(ctx, topicKey(topicID, gen-1)); err != nil {
		slog.Warn("failed to drop stale topic view", "topic_id", topicID, "error", err)
	}
}

// storeErr maps store failures: ErrNotFound becomes a NotFound error with msg,
// anything else is internal.
func storeErr(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Internal(err)
}
