package models

import (
	"time"

	"github.com/google/uuid"
)

// ModerationStatus is the workflow state of an AnalysisRecord.
type ModerationStatus string

const (
	StatusSubmitted ModerationStatus = "submitted"
	StatusEscalated ModerationStatus = "escalated"
	StatusResolved  ModerationStatus = "resolved"
)

// ModerationStatuses lists every status in display order.
var ModerationStatuses = []ModerationStatus{StatusSubmitted, StatusEscalated, StatusResolved}

// Valid reports whether s is a known moderation status.
func (s ModerationStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusEscalated, StatusResolved:
		return true
	}
	return false
}

const (
	MinScore = 0
	MaxScore = 100
)

// Result is the output of the Analysis Pipeline. Reasons keep display order.
type Result struct {
	Score       int      `json:"score"`
	Explanation string   `json:"explanation"`
	Reasons     []string `json:"reasons"`
}

// Clamped returns a copy of r with Score forced into [0,100] and a non-nil Reasons slice.
func (r Result) Clamped() Result {
	if r.Score < MinScore {
		r.Score = MinScore
	}
	if r.Score > MaxScore {
		r.Score = MaxScore
	}
	reasons := make([]string, len(r.Reasons))
	copy(reasons, r.Reasons)
	r.Reasons = reasons
	return r
}

// AnalysisRecord is the durable, moderated outcome of a completed task.
// RequestText and Result are write-once; Status changes only through moderation.
type AnalysisRecord struct {
	ID          uuid.UUID        `db:"id"           json:"id"`
	TaskID      *uuid.UUID       `db:"task_id"      json:"task_id,omitempty"`
	RequestText string           `db:"request_text" json:"request_text"`
	Result      Result           `db:"-"            json:"result"`
	Status      ModerationStatus `db:"status"       json:"status"`
	CreatedAt   time.Time        `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at"   json:"updated_at"`
}
