package httpapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/p-n-ai/pai-classroom/internal/report"
)

type textBody struct {
	Text string `json:"text"`
}

type nameBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type patchBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, identity string) {
	d, err := s.classroom.Dashboard(r.Context(), identity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request, identity string) {
	var body nameBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.classroom.CreateCourse(r.Context(), identity, body.Name, body.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	c, err := s.classroom.GetCourse(r.Context(), r.PathValue("courseId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request, identity string) {
	var body patchBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.classroom.UpdateCourse(r.Context(), identity, r.PathValue("courseId"), body.Name, body.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAddTopic(w http.ResponseWriter, r *http.Request, identity string) {
	var body nameBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.classroom.AddTopic(r.Context(), identity, r.PathValue("courseId"), body.Name, body.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request, identity string) {
	c, err := s.classroom.DeleteTopic(r.Context(), identity, r.PathValue("courseId"), r.PathValue("topicId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request, identity string) {
	p, err := s.classroom.Enroll(r.Context(), identity, r.PathValue("courseId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleExportProgress(w http.ResponseWriter, r *http.Request, identity string) {
	roster, err := s.classroom.ProgressRoster(r.Context(), identity, r.PathValue("courseId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	students, err := report.Students(r.Context(), s.accounts.Store(), roster)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteRoster(&buf, roster, students); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(roster.Course)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleAddDiscussion(w http.ResponseWriter, r *http.Request, identity string) {
	var body textBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.classroom.AddDiscussion(r.Context(), identity, r.PathValue("courseId"), body.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteDiscussion(w http.ResponseWriter, r *http.Request, identity string) {
	ids, err := s.classroom.DeleteDiscussion(r.Context(), identity, r.PathValue("courseId"), r.PathValue("commentId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"discussion": ids})
}
