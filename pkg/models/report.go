package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is a user-filed escalation request against an AnalysisRecord.
// Reports are append-only and never change the record's status.
type Report struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	AnalysisID uuid.UUID `db:"analysis_id" json:"analysis_id"`
	Comment    *string   `db:"comment"     json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

// Feedback is a helpfulness signal against an AnalysisRecord.
type Feedback struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	AnalysisID uuid.UUID `db:"analysis_id" json:"analysis_id"`
	IsHelpful  bool      `db:"is_helpful"  json:"is_helpful"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

// FeedbackTally counts feedback entries for one record.
type FeedbackTally struct {
	Helpful    int `json:"helpful"`
	NotHelpful int `json:"not_helpful"`
}
