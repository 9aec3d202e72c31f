// Package httpapi exposes the classroom and account services over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-classroom/internal/account"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
	"github.com/p-n-ai/pai-classroom/internal/realtime"
)

const readyTimeout = 2 * time.Second

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Config holds the dependencies of the HTTP surface.
type Config struct {
	Classroom   *classroom.Service
	Accounts    *account.Service
	Hub         *realtime.Hub // nil disables the live topic feed
	CORSOrigins []string
	Checks      []Check
}

// Server routes HTTP requests to the services.
type Server struct {
	classroom *classroom.Service
	accounts  *account.Service
	hub       *realtime.Hub
	checks    []Check
	handler   http.Handler
}

// New creates the HTTP surface.
func New(cfg Config) *Server {
	s := &Server{
		classroom: cfg.Classroom,
		accounts:  cfg.Accounts,
		hub:       cfg.Hub,
		checks:    cfg.Checks,
	}
	s.handler = withCORS(cfg.CORSOrigins, requestLog(s.routes()))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	// Accounts
	mux.HandleFunc("POST /api/users", s.handleSignup)
	mux.HandleFunc("POST /api/auth", s.handleLogin)
	mux.HandleFunc("GET /api/auth", s.authed(s.handleMe))
	mux.HandleFunc("POST /api/auth/verify", s.handleVerify)
	mux.HandleFunc("POST /api/auth/resend", s.handleResend)
	mux.HandleFunc("GET /api/auth/google", s.handleGoogleLogin)
	mux.HandleFunc("GET /api/auth/google/callback", s.handleGoogleCallback)

	// Courses
	mux.HandleFunc("GET /api/dashboard", s.authed(s.handleDashboard))
	mux.HandleFunc("POST /api/course", s.authed(s.handleCreateCourse))
	mux.HandleFunc("GET /api/course/{courseId}", s.handleGetCourse)
	mux.HandleFunc("PATCH /api/course/{courseId}", s.authed(s.handleUpdateCourse))
	mux.HandleFunc("POST /api/course/{courseId}/topic", s.authed(s.handleAddTopic))
	mux.HandleFunc("DELETE /api/course/{courseId}/topic/{topicId}", s.authed(s.handleDeleteTopic))
	mux.HandleFunc("PUT /api/course/{courseId}/enroll", s.authed(s.handleEnroll))
	mux.HandleFunc("GET /api/course/{courseId}/progress/export", s.authed(s.handleExportProgress))
	mux.HandleFunc("PUT /api/course/{courseId}/discussion", s.authed(s.handleAddDiscussion))
	mux.HandleFunc("DELETE /api/course/{courseId}/discussion/{commentId}", s.authed(s.handleDeleteDiscussion))

	// Topics
	mux.HandleFunc("GET /api/topic/{topicId}", s.handleGetTopic)
	mux.HandleFunc("PATCH /api/topic/{topicId}", s.authed(s.handleUpdateTopic))
	mux.HandleFunc("PUT /api/topic/{topicId}/coreResource", s.authed(s.handleReplaceCoreResources))
	mux.HandleFunc("DELETE /api/topic/{topicId}/coreResource/{resourceId}", s.authed(s.handleDeleteCoreResource))
	mux.HandleFunc("POST /api/topic/{topicId}/test", s.authed(s.handleAddTest))
	mux.HandleFunc("PUT /api/topic/{topicId}/comment/{type}", s.authed(s.handleAddComment))
	mux.HandleFunc("DELETE /api/topic/{topicId}/comment/{commentId}", s.authed(s.handleDeleteComment))
	mux.HandleFunc("GET /api/topic/{topicId}/live", s.authedQuery(s.handleLive))

	// Progress, tests and comments
	mux.HandleFunc("PUT /api/progress/topic/{topicId}/resource/{resourceId}", s.authed(s.handleResourceStatus(true)))
	mux.HandleFunc("DELETE /api/progress/topic/{topicId}/resource/{resourceId}", s.authed(s.handleResourceStatus(false)))
	mux.HandleFunc("GET /api/test/{testId}", s.authed(s.handleGetTest))
	mux.HandleFunc("PUT /api/comment/{commentId}/like", s.authed(s.handleLike))
	mux.HandleFunc("DELETE /api/comment/{commentId}/like", s.authed(s.handleUnlike))
	mux.HandleFunc("PUT /api/comment/{commentId}/reply", s.authed(s.handleReply))
	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	for _, c := range s.checks {
		if err := c.Fn(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "check": c.Name})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
