package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-classroom/internal/classroom"
	"github.com/p-n-ai/pai-classroom/internal/realtime"
)

func startHub(t *testing.T, hub *realtime.Hub) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("topic"))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitSubscribers(t *testing.T, hub *realtime.Hub, topicID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers(topicID) == want },
		2*time.Second, 10*time.Millisecond)
}

func TestHub_DeliversTopicEvents(t *testing.T) {
	hub := realtime.NewHub()
	url := startHub(t, hub)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url+"?topic=t1", nil)
	require.NoError(t, err)
	defer conn.CloseNow()
	waitSubscribers(t, hub, "t1", 1)

	require.NoError(t, hub.Publish(classroom.Event{Type: classroom.EventCommentCreated, TopicID: "t2"}))
	require.NoError(t, hub.Publish(classroom.Event{Type: classroom.EventCommentLiked, TopicID: "t1", UserID: "u1"}))

	var got classroom.Event
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, classroom.EventCommentLiked, got.Type)
	assert.Equal(t, "u1", got.UserID)
}

func TestHub_UnsubscribesOnClose(t *testing.T) {
	hub := realtime.NewHub()
	url := startHub(t, hub)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url+"?topic=t1", nil)
	require.NoError(t, err)
	waitSubscribers(t, hub, "t1", 1)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	waitSubscribers(t, hub, "t1", 0)
}

func TestHub_PublishWithoutTopic(t *testing.T) {
	hub := realtime.NewHub()
	if err := hub.Publish(classroom.Event{Type: classroom.EventEnrolled, CourseID: "c1"}); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestHub_RejectsPlainHTTP(t *testing.T) {
	hub := realtime.NewHub()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/live", nil)

	if err := hub.Serve(rec, req, "t1"); err == nil {
		t.Fatal("Serve() without upgrade headers should return error")
	}
	if hub.Subscribers("t1") != 0 {
		t.Error("failed upgrade should not register a subscriber")
	}
}
