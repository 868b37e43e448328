package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/analytics"
	"github.com/kiranshivaraju/inocula/internal/store"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// ErrInvalidComment is returned when a report comment exceeds MaxCommentLength.
var ErrInvalidComment = errors.New("invalid report comment")

// MaxCommentLength is the maximum report comment length in runes.
const MaxCommentLength = 2000

// maxUpdateAttempts bounds compare-and-swap retries when a record's status
// changes between read and write.
const maxUpdateAttempts = 3

// Detail is the moderation view of a single record.
type Detail struct {
	Analysis *models.AnalysisRecord `json:"analysis"`
	Reports  []*models.Report       `json:"reports"`
	Feedback models.FeedbackTally   `json:"feedback"`
}

// Service serves record listings, status changes, reports and feedback.
type Service struct {
	store store.Store
}

// NewService creates a Service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// History returns the newest records first. limit <= 0 returns all.
func (s *Service) History(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	return s.List(ctx, store.RecordFilter{Limit: limit})
}

// List returns records matching filter, newest first.
func (s *Service) List(ctx context.Context, filter store.RecordFilter) ([]*models.AnalysisRecord, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	records, err := s.store.ListAnalyses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return records, nil
}

func (s *Service) Detail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	rec, err := s.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	reports, err := s.store.ListReports(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	tally, err := s.store.FeedbackTally(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("feedback tally: %w", err)
	}
	return &Detail{Analysis: rec, Reports: reports, Feedback: tally}, nil
}

// UpdateStatus moves a record to status. The transition check and the write
// are atomic: the store only applies the change if the status it was checked
// against is still current.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.AnalysisRecord, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		rec, err := s.store.GetAnalysis(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get analysis %s: %w", id, err)
		}
		if err := Transition(rec.Status, to); err != nil {
			return nil, err
		}

		updated, err := s.store.UpdateAnalysisStatus(ctx, id, rec.Status, to)
		if errors.Is(err, store.ErrStatusConflict) {
			slog.Debug("status changed concurrently, retrying", "analysis_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update analysis %s: %w", id, err)
		}

		slog.Info("moderation status changed", "analysis_id", id, "from", rec.Status, "to", to)
		return updated, nil
	}
	return nil, fmt.Errorf("update analysis %s: %w", id, store.ErrStatusConflict)
}

// FileReport appends a report against an existing record. A blank comment is stored as none.
func (s *Service) FileReport(ctx context.Context, analysisID uuid.UUID, comment string) (*models.Report, error) {
	if n := utf8.RuneCountInString(comment); n > MaxCommentLength {
		return nil, fmt.Errorf("%w: %d characters, maximum is %d", ErrInvalidComment, n, MaxCommentLength)
	}

	report := &models.Report{
		ID:         uuid.New(),
		AnalysisID: analysisID,
		CreatedAt:  time.Now().UTC(),
	}
	if c := strings.TrimSpace(comment); c != "" {
		report.Comment = &c
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

// SubmitFeedback appends a helpfulness signal against an existing record.
func (s *Service) SubmitFeedback(ctx context.Context, analysisID uuid.UUID, helpful bool) (*models.Feedback, error) {
	fb := &models.Feedback{
		ID:         uuid.New(),
		AnalysisID: analysisID,
		IsHelpful:  helpful,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return fb, nil
}

// Analytics aggregates the current record collection.
func (s *Service) Analytics(ctx context.Context) (models.Analytics, error) {
	records, err := s.store.ListAnalyses(ctx, store.RecordFilter{})
	if err != nil {
		return models.Analytics{}, fmt.Errorf("listing analyses: %w", err)
	}
	return analytics.Compute(records), nil
}
