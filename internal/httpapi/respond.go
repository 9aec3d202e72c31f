package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Errors []apperr.FieldError `json:"errors"`
}

// Status maps an error kind to its HTTP status. Missing entities answer 400
// like any other bad request.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindBadRequest, apperr.KindNotFound:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)
	if ae.Kind == apperr.KindInternal {
		slog.Error("request failed",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	fields := ae.Fields
	if len(fields) == 0 {
		fields = []apperr.FieldError{{Msg: ae.Msg}}
	}
	writeJSON(w, Status(ae.Kind), errorBody{Errors: fields})
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.BadRequest("Invalid JSON")
}
