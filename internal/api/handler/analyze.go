package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/api/response"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// Submitter starts asynchronous analyses.
type Submitter interface {
	Submit(ctx context.Context, text string) (*models.Task, error)
}

// TaskWaiter reads task snapshots, optionally blocking until a task is terminal.
type TaskWaiter interface {
	Wait(ctx context.Context, id uuid.UUID, maxWait time.Duration) (*models.Task, error)
}

type submitResponse struct {
	TaskID uuid.UUID `json:"task_id"`
	Status string    `json:"status"`
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
func NewAnalyzeHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		task, err := svc.Submit(r.Context(), req.Text)
		if err != nil {
			writeError(w, r, err, "Task")
			return
		}

		response.Accepted(w, submitResponse{TaskID: task.ID, Status: task.Status})
	}
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/status/{taskID}.
// The optional wait parameter turns the read into a long poll bounded by maxWait.
func NewStatusHandler(svc TaskWaiter, maxWait time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, chi.URLParam(r, "taskID"), "task_id")
		if !ok {
			return
		}
		wait, ok := parseWait(w, r, maxWait)
		if !ok {
			return
		}

		task, err := svc.Wait(r.Context(), id, wait)
		if err != nil {
			writeError(w, r, err, "Task")
			return
		}

		response.JSON(w, task)
	}
}
