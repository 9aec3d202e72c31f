package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
)

// Event types published by the service.
const (
	EventCommentCreated    = "comment.created"
	EventCommentLiked      = "comment.liked"
	EventCommentUnliked    = "comment.unliked"
	EventCommentReplied    = "comment.replied"
	EventCommentDeleted    = "comment.deleted"
	EventResourcesReplaced = "resources.replaced"
	EventResourceDeleted   = "resource.deleted"
	EventTestCreated       = "test.created"
	EventEnrolled          = "course.enrolled"
)

// Event is an activity record. TopicID is empty for course level activity.
type Event struct {
	Type      string         `json:"type" bson:"type"`
	CourseID  string         `json:"courseId,omitempty" bson:"courseId,omitempty"`
	TopicID   string         `json:"topicId,omitempty" bson:"topicId,omitempty"`
	UserID    string         `json:"userId,omitempty" bson:"userId,omitempty"`
	Data      map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
}

// EventSink receives activity events.
type EventSink interface {
	Publish(event Event) error
}

// NopSink ignores all events.
type NopSink struct{}

func (NopSink) Publish(Event) error {
	return nil
}

// MemorySink stores events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		events: []Event{},
	}
}

func (l *MemorySink) Publish(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemorySink) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresSink inserts events into the events table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (l *PostgresSink) Publish(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event sink pool is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO events (event_type, course_id, topic_id, user_id, data, created_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5::jsonb, $6)`,
		event.Type,
		event.CourseID,
		event.TopicID,
		event.UserID,
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.Type,
		"topic_id", event.TopicID,
		"user_id", event.UserID,
	)
	return nil
}

// MongoSink inserts events into the events collection.
type MongoSink struct {
	coll *mongo.Collection
}

func NewMongoSink(db *mongo.Database) *MongoSink {
	if db == nil {
		return &MongoSink{}
	}
	return &MongoSink{coll: db.Collection("events")}
}

func (l *MongoSink) Publish(event Event) error {
	if l == nil || l.coll == nil {
		return fmt.Errorf("event sink collection is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := l.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// MultiSink fans an event out to every sink.
type MultiSink []EventSink

func (m MultiSink) Publish(event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
