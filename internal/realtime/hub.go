// Package realtime pushes topic activity to websocket subscribers.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-classroom/internal/classroom"
)

const (
	defaultBuffer = 16
	writeTimeout  = 5 * time.Second
)

type subscriber struct {
	events    chan classroom.Event
	closeSlow func()
}

// Hub fans classroom events out to the subscribers of each topic. It
// implements classroom.EventSink.
type Hub struct {
	mu             sync.RWMutex
	topics         map[string]map[*subscriber]struct{}
	buffer         int
	originPatterns []string
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets how many events a subscriber may lag behind before it is dropped.
func WithBuffer(n int) Option {
	return func(h *Hub) { h.buffer = n }
}

// WithOriginPatterns sets the origins allowed to open cross-origin websockets.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.originPatterns = patterns }
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		topics: make(map[string]map[*subscriber]struct{}),
		buffer: defaultBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish delivers a topic event to every subscriber of that topic without
// blocking. Subscribers whose buffer is full are disconnected.
func (h *Hub) Publish(event classroom.Event) error {
	if event.TopicID == "" {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.topics[event.TopicID] {
		select {
		case s.events <- event:
		default:
			go s.closeSlow()
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers of a topic.
func (h *Hub) Subscribers(topicID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topicID])
}

// Serve upgrades the request and streams the topic's events as JSON until
// the client goes away. Authorization is the caller's job.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topicID string) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	s := &subscriber{
		events: make(chan classroom.Event, h.buffer),
		closeSlow: func() {
			conn.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with events")
		},
	}
	h.add(topicID, s)
	defer h.remove(topicID, s)

	slog.Debug("live subscriber joined", "topic_id", topicID)

	// Client messages are ignored; CloseRead handles control frames.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case event := <-s.events:
			if err := write(ctx, conn, event); err != nil {
				return ignoreClosed(err)
			}
		case <-ctx.Done():
			return ignoreClosed(ctx.Err())
		}
	}
}

func (h *Hub) add(topicID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topicID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[topicID] = subs
	}
	subs[s] = struct{}{}
}

func (h *Hub) remove(topicID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.topics[topicID], s)
	if len(h.topics[topicID]) == 0 {
		delete(h.topics, topicID)
	}
}

func write(ctx context.Context, conn *websocket.Conn, event classroom.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, event)
}

func ignoreClosed(err error) error {
	if errors.Is(err, context.Canceled) ||
		websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return nil
	}
	return err
}
