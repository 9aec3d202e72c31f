package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
)

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	t, err := s.classroom.GetTopic(r.Context(), r.PathValue("topicId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request, identity string) {
	var body patchBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.classroom.UpdateTopic(r.Context(), identity, r.PathValue("topicId"), body.Name, body.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleReplaceCoreResources(w http.ResponseWriter, r *http.Request, identity string) {
	var items *[]classroom.ResourceInput
	if err := decode(r, &items); err != nil {
		writeError(w, r, err)
		return
	}
	// A missing or null body must not clear the list; only an explicit [] does.
	if items == nil {
		writeError(w, r, apperr.BadRequest("Invalid data"))
		return
	}
	list, err := s.classroom.ReplaceCoreResources(r.Context(), identity, r.PathValue("topicId"), *items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteCoreResource(w http.ResponseWriter, r *http.Request, identity string) {
	list, err := s.classroom.DeleteCoreResource(r.Context(), identity, r.PathValue("topicId"), r.PathValue("resourceId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]classroom.ResourceItem{"coreResources": list})
}

func (s *Server) handleAddTest(w http.ResponseWriter, r *http.Request, identity string) {
	var in classroom.TestInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.classroom.AddTest(r.Context(), identity, r.PathValue("topicId"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request, identity string) {
	var body textBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	list := classroom.CommentList(r.PathValue("type"))
	comments, err := s.classroom.AddComment(r.Context(), identity, r.PathValue("topicId"), list, body.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, identity string) {
	lists, err := s.classroom.DeleteComment(r.Context(), identity, r.PathValue("topicId"), r.PathValue("commentId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request, identity string) {
	if s.hub == nil {
		writeError(w, r, apperr.BadRequest("Live updates are disabled"))
		return
	}
	topicID := r.PathValue("topicId")
	topic, err := s.classroom.GetTopic(r.Context(), topicID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.classroom.ClassroomAuth(r.Context(), identity, topic.Course); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.hub.Serve(w, r, topicID); err != nil {
		slog.Warn("live feed closed", "topic_id", topicID, "request_id", RequestID(r.Context()), "error", err)
	}
}

func (s *Server) handleResourceStatus(done bool) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, identity string) {
		p, err := s.classroom.SetResourceStatus(r.Context(), identity, r.PathValue("topicId"), r.PathValue("resourceId"), done)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request, identity string) {
	t, err := s.classroom.GetTest(r.Context(), identity, r.PathValue("testId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request, identity string) {
	likes, err := s.classroom.LikeComment(r.Context(), identity, r.PathValue("commentId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request, identity string) {
	likes, err := s.classroom.UnlikeComment(r.Context(), identity, r.PathValue("commentId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request, identity string) {
	var body textBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	replies, err := s.classroom.ReplyToComment(r.Context(), identity, r.PathValue("commentId"), body.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}
