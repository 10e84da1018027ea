package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server/schedule"
	"github.com/cyp0633/libnebula/server/storage"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorBody{Status: status, Message: message})
}

// fail reports err with the status it maps to. Internal errors are logged
// and their text withheld.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		s.writeError(w, status, "internal server error")
		return
	}
	s.logger.Info("request rejected",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err)
	s.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var encErr *recurrence.EncodeError
	switch {
	case errors.As(err, &encErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, schedule.ErrInvalidWindow),
		errors.Is(err, recurrence.ErrUnsupportedRRule):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case storage.IsType(err, storage.ErrNotFound):
		return http.StatusNotFound
	case storage.IsType(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	case storage.IsType(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case storage.IsType(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
