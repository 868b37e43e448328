package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// --- Tasks ---

func (s *PostgresStore) CreateTask(ctx context.Context, task *models.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, status, created_at) VALUES ($1, $2, $3)`,
		task.ID, task.Status, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var (
		t           models.Task
		analysisID  *uuid.UUID
		score       *int
		explanation *string
		reasons     []string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT t.id, t.status, t.error, t.created_at, t.completed_at,
		        a.id, a.score, a.explanation, a.reasons
		 FROM tasks t LEFT JOIN analyses a ON a.task_id = t.id
		 WHERE t.id = $1`, id,
	).Scan(&t.ID, &t.Status, &t.Error, &t.CreatedAt, &t.CompletedAt,
		&analysisID, &score, &explanation, &reasons)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	if t.Status == models.TaskStatusCompleted && analysisID != nil {
		t.AnalysisID = analysisID
		t.Result = &models.Result{Score: *score, Explanation: *explanation, Reasons: nonNil(reasons)}
	}
	return &t, nil
}

func (s *PostgresStore) CompleteTask(ctx context.Context, taskID uuid.UUID, record *models.AnalysisRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin complete task: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE tasks SET status = $2, completed_at = $3 WHERE id = $1 AND status = $4`,
		taskID, models.TaskStatusCompleted, record.CreatedAt, models.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.notPendingError(ctx, tx, taskID)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO analyses (id, task_id, request_text, score, explanation, reasons, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, taskID, record.RequestText, record.Result.Score, record.Result.Explanation,
		nonNil(record.Result.Reasons), string(record.Status), record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit complete task: %w", err)
	}
	return nil
}

func (s *PostgresStore) FailTask(ctx context.Context, taskID uuid.UUID, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $2, error = $3, completed_at = $4 WHERE id = $1 AND status = $5`,
		taskID, models.TaskStatusFailed, msg, time.Now().UTC(), models.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.notPendingError(ctx, s.pool, taskID)
	}
	return nil
}

func (s *PostgresStore) DeleteTerminalTasksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tasks WHERE status <> $1 AND completed_at < $2`,
		models.TaskStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete terminal tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) notPendingError(ctx context.Context, q queryRower, taskID uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return fmt.Errorf("check task: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrTaskNotPending
}

// --- Analyses ---

const analysisColumns = `id, task_id, request_text, score, explanation, reasons, status, created_at, updated_at`

func scanPostgresAnalysis(row rowScanner) (*models.AnalysisRecord, error) {
	var (
		r      models.AnalysisRecord
		status string
	)
	if err := row.Scan(&r.ID, &r.TaskID, &r.RequestText, &r.Result.Score, &r.Result.Explanation,
		&r.Result.Reasons, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = models.ModerationStatus(status)
	r.Result.Reasons = nonNil(r.Result.Reasons)
	return &r, nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id uuid.UUID) (*models.AnalysisRecord, error) {
	r, err := scanPostgresAnalysis(s.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter RecordFilter) ([]*models.AnalysisRecord, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	records := []*models.AnalysisRecord{}
	for rows.Next() {
		r, err := scanPostgresAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) UpdateAnalysisStatus(ctx context.Context, id uuid.UUID, from, to models.ModerationStatus) (*models.AnalysisRecord, error) {
	r, err := scanPostgresAnalysis(s.pool.QueryRow(ctx,
		`UPDATE analyses SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2
		 RETURNING `+analysisColumns,
		id, string(from), string(to), time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM analyses WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check analysis: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update analysis status: %w", err)
	}
	return r, nil
}

// --- Reports & Feedback ---

func (s *PostgresStore) CreateReport(ctx context.Context, report *models.Report) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO reports (id, analysis_id, comment, created_at)
		 SELECT $1::uuid, $2::uuid, $3::text, $4::timestamptz
		 WHERE EXISTS (SELECT 1 FROM analyses WHERE id = $2::uuid)`,
		report.ID, report.AnalysisID, report.Comment, report.CreatedAt)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("create report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListReports(ctx context.Context, analysisID uuid.UUID) ([]*models.Report, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, analysis_id, comment, created_at FROM reports
		 WHERE analysis_id = $1 ORDER BY created_at DESC, id DESC`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		var r models.Report
		if err := rows.Scan(&r.ID, &r.AnalysisID, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (id, analysis_id, is_helpful, created_at)
		 SELECT $1::uuid, $2::uuid, $3::boolean, $4::timestamptz
		 WHERE EXISTS (SELECT 1 FROM analyses WHERE id = $2::uuid)`,
		feedback.ID, feedback.AnalysisID, feedback.IsHelpful, feedback.CreatedAt)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("create feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FeedbackTally(ctx context.Context, analysisID uuid.UUID) (models.FeedbackTally, error) {
	var tally models.FeedbackTally
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE is_helpful), COUNT(*) FILTER (WHERE NOT is_helpful)
		 FROM feedback WHERE analysis_id = $1`, analysisID,
	).Scan(&tally.Helpful, &tally.NotHelpful)
	if err != nil {
		return models.FeedbackTally{}, fmt.Errorf("feedback tally: %w", err)
	}
	return tally, nil
}

// isForeignKeyError checks if a pgx error is a foreign key violation (23503).
func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
