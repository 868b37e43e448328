package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

var (
	ErrNotFound = errors.New("resource not found")
	// ErrTaskNotPending is returned when a terminal write targets a task that already left pending.
	ErrTaskNotPending = errors.New("task is not pending")
	// ErrStatusConflict is returned when a record's status changed between read and write.
	ErrStatusConflict = errors.New("analysis status changed concurrently")
)

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateTask(ctx context.Context, task *models.Task) error
	// GetTask returns the task snapshot, including its Result and AnalysisID once completed.
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// CompleteTask moves a pending task to completed and inserts its AnalysisRecord
	// in one transaction. Returns ErrTaskNotPending if the task is already terminal.
	CompleteTask(ctx context.Context, taskID uuid.UUID, record *models.AnalysisRecord) error
	// FailTask moves a pending task to failed with msg. No record is written.
	FailTask(ctx context.Context, taskID uuid.UUID, msg string) error
	// DeleteTerminalTasksBefore purges completed and failed tasks finished before cutoff.
	DeleteTerminalTasksBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetAnalysis(ctx context.Context, id uuid.UUID) (*models.AnalysisRecord, error)
	// ListAnalyses returns records newest first.
	ListAnalyses(ctx context.Context, filter RecordFilter) ([]*models.AnalysisRecord, error)
	// UpdateAnalysisStatus sets status to `to` only if it is still `from`.
	// Returns ErrStatusConflict when the stored status differs from `from`.
	UpdateAnalysisStatus(ctx context.Context, id uuid.UUID, from, to models.ModerationStatus) (*models.AnalysisRecord, error)

	// CreateReport and CreateFeedback return ErrNotFound when the analysis does not exist.
	CreateReport(ctx context.Context, report *models.Report) error
	ListReports(ctx context.Context, analysisID uuid.UUID) ([]*models.Report, error)
	CreateFeedback(ctx context.Context, feedback *models.Feedback) error
	FeedbackTally(ctx context.Context, analysisID uuid.UUID) (models.FeedbackTally, error)
}

// RecordFilter narrows ListAnalyses. A zero Limit returns every matching record.
type RecordFilter struct {
	Status models.ModerationStatus
	Limit  int
}
