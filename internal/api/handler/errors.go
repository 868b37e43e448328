package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/api/response"
	"github.com/kiranshivaraju/inocula/internal/moderation"
	"github.com/kiranshivaraju/inocula/internal/store"
	"github.com/kiranshivaraju/inocula/internal/tasks"
)

const (
	maxBodyBytes = 1 << 20
	maxListLimit = 500
)

// writeError maps domain errors onto the HTTP error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	switch {
	case errors.Is(err, tasks.ErrInvalidInput), errors.Is(err, moderation.ErrInvalidComment):
		response.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", resource+" not found", nil)
	case errors.Is(err, moderation.ErrInvalidStatus):
		response.Error(w, http.StatusBadRequest, "INVALID_STATUS", err.Error(), nil)
	case errors.Is(err, moderation.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, store.ErrStatusConflict):
		response.Error(w, http.StatusConflict, "STATUS_CONFLICT",
			"The record was modified concurrently, please retry", nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_INPUT",
			fmt.Sprintf("%s must be a valid UUID", field), nil)
		return uuid.Nil, false
	}
	return id, true
}

// parseLimit reads the optional limit query parameter. Zero means unbounded.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be a positive integer", nil)
		return 0, false
	}
	return min(n, maxListLimit), true
}

// parseWait reads the optional wait query parameter as a Go duration ("10s")
// or whole seconds ("10"), capped at limit.
func parseWait(w http.ResponseWriter, r *http.Request, limit time.Duration) (time.Duration, bool) {
	raw := r.URL.Query().Get("wait")
	if raw == "" {
		return 0, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "wait must be a duration such as 10s", nil)
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "wait must not be negative", nil)
		return 0, false
	}
	return min(d, limit), true
}
