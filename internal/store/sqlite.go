package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/pkg/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface on an embedded SQLite database.
// It is meant for local development and tests; writes are serialized on one connection.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'failed')),
	error TEXT,
	created_at DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	task_id TEXT UNIQUE REFERENCES tasks(id) ON DELETE SET NULL,
	request_text TEXT NOT NULL,
	score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	explanation TEXT NOT NULL,
	reasons TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT 'submitted' CHECK (status IN ('submitted', 'escalated', 'resolved')),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	comment TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	id TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	is_helpful BOOLEAN NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_reports_analysis ON reports(analysis_id);
CREATE INDEX IF NOT EXISTS idx_feedback_analysis ON feedback(analysis_id);
`

// NewSQLiteStore opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer at a time; a single long-lived
	// connection also keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Tasks ---

func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, status, created_at) VALUES (?, ?, ?)`,
		task.ID, task.Status, task.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var (
		t           models.Task
		errMsg      sql.NullString
		completedAt sql.NullTime
		analysisID  *uuid.UUID
		score       sql.NullInt64
		explanation sql.NullString
		reasons     sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT t.id, t.status, t.error, t.created_at, t.completed_at,
		        a.id, a.score, a.explanation, a.reasons
		 FROM tasks t LEFT JOIN analyses a ON a.task_id = t.id
		 WHERE t.id = ?`, id,
	).Scan(&t.ID, &t.Status, &errMsg, &t.CreatedAt, &completedAt,
		&analysisID, &score, &explanation, &reasons)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	if errMsg.Valid {
		t.Error = &errMsg.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if t.Status == models.TaskStatusCompleted && analysisID != nil {
		list, err := decodeReasons(reasons.String)
		if err != nil {
			return nil, err
		}
		t.AnalysisID = analysisID
		t.Result = &models.Result{Score: int(score.Int64), Explanation: explanation.String, Reasons: list}
	}
	return &t, nil
}

func (s *SQLiteStore) CompleteTask(ctx context.Context, taskID uuid.UUID, record *models.AnalysisRecord) error {
	reasons, err := encodeReasons(record.Result.Reasons)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete task: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		models.TaskStatusCompleted, record.CreatedAt.UTC(), taskID, models.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sqliteNotPending(ctx, tx, taskID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (id, task_id, request_text, score, explanation, reasons, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, taskID, record.RequestText, record.Result.Score, record.Result.Explanation,
		reasons, string(record.Status), record.CreatedAt.UTC(), record.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FailTask(ctx context.Context, taskID uuid.UUID, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status = ?`,
		models.TaskStatusFailed, msg, time.Now().UTC(), taskID, models.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sqliteNotPending(ctx, s.db, taskID)
	}
	return nil
}

func (s *SQLiteStore) DeleteTerminalTasksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE status <> ? AND completed_at < ?`,
		models.TaskStatusPending, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete terminal tasks: %w", err)
	}
	return res.RowsAffected()
}

type sqlQueryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqliteNotPending(ctx context.Context, q sqlQueryRower, taskID uuid.UUID) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = ?)`, taskID).Scan(&exists); err != nil {
		return fmt.Errorf("check task: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrTaskNotPending
}

// --- Analyses ---

func scanSQLiteAnalysis(row rowScanner) (*models.AnalysisRecord, error) {
	var (
		r       models.AnalysisRecord
		status  string
		reasons string
	)
	if err := row.Scan(&r.ID, &r.TaskID, &r.RequestText, &r.Result.Score, &r.Result.Explanation,
		&reasons, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	list, err := decodeReasons(reasons)
	if err != nil {
		return nil, err
	}
	r.Result.Reasons = list
	r.Status = models.ModerationStatus(status)
	return &r, nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id uuid.UUID) (*models.AnalysisRecord, error) {
	r, err := scanSQLiteAnalysis(s.db.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter RecordFilter) ([]*models.AnalysisRecord, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + analysisColumns + ` FROM analyses`)
	if filter.Status != "" {
		query.WriteString(` WHERE status = ?`)
		args = append(args, string(filter.Status))
	}
	query.WriteString(` ORDER BY created_at DESC, id DESC`)
	if filter.Limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	records := []*models.AnalysisRecord{}
	for rows.Next() {
		r, err := scanSQLiteAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) UpdateAnalysisStatus(ctx context.Context, id uuid.UUID, from, to models.ModerationStatus) (*models.AnalysisRecord, error) {
	r, err := scanSQLiteAnalysis(s.db.QueryRowContext(ctx,
		`UPDATE analyses SET status = ?, updated_at = ? WHERE id = ? AND status = ?
		 RETURNING `+analysisColumns,
		string(to), time.Now().UTC(), id, string(from)))
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM analyses WHERE id = ?)`, id).Scan(&exists); err != nil {
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

func (s *SQLiteStore) CreateReport(ctx context.Context, report *models.Report) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, analysis_id, comment, created_at)
		 SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM analyses WHERE id = ?)`,
		report.ID, report.AnalysisID, report.Comment, report.CreatedAt.UTC(), report.AnalysisID)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, analysisID uuid.UUID) ([]*models.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, analysis_id, comment, created_at FROM reports
		 WHERE analysis_id = ? ORDER BY created_at DESC, id DESC`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		var (
			r       models.Report
			comment sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.AnalysisID, &comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if comment.Valid {
			r.Comment = &comment.String
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

func (s *SQLiteStore) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, analysis_id, is_helpful, created_at)
		 SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM analyses WHERE id = ?)`,
		feedback.ID, feedback.AnalysisID, feedback.IsHelpful, feedback.CreatedAt.UTC(), feedback.AnalysisID)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) FeedbackTally(ctx context.Context, analysisID uuid.UUID) (models.FeedbackTally, error) {
	var tally models.FeedbackTally
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN is_helpful THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN is_helpful THEN 0 ELSE 1 END), 0)
		 FROM feedback WHERE analysis_id = ?`, analysisID,
	).Scan(&tally.Helpful, &tally.NotHelpful)
	if err != nil {
		return models.FeedbackTally{}, fmt.Errorf("feedback tally: %w", err)
	}
	return tally, nil
}

func encodeReasons(reasons []string) (string, error) {
	b, err := json.Marshal(nonNil(reasons))
	if err != nil {
		return "", fmt.Errorf("encode reasons: %w", err)
	}
	return string(b), nil
}

func decodeReasons(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var reasons []string
	if err := json.Unmarshal([]byte(raw), &reasons); err != nil {
		return nil, fmt.Errorf("decode reasons: %w", err)
	}
	return nonNil(reasons), nil
}
