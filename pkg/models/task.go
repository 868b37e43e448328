package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task tracks one asynchronous analysis. POST /api/v1/analyze returns its id;
// the client polls GET /api/v1/status/{task_id} until status is completed or failed.
// A task moves out of pending exactly once.
type Task struct {
	ID          uuid.UUID  `db:"id"           json:"task_id"`
	Status      string     `db:"status"       json:"status"`
	Result      *Result    `db:"-"            json:"result,omitempty"`
	Error       *string    `db:"error"        json:"error,omitempty"`
	AnalysisID  *uuid.UUID `db:"analysis_id"  json:"analysis_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// IsTerminal reports whether the task has left the pending state.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
