package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/api/response"
	"github.com/kiranshivaraju/inocula/internal/moderation"
	"github.com/kiranshivaraju/inocula/internal/store"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// Moderator serves record listings and moderation actions.
type Moderator interface {
	History(ctx context.Context, limit int) ([]*models.AnalysisRecord, error)
	List(ctx context.Context, filter store.RecordFilter) ([]*models.AnalysisRecord, error)
	Detail(ctx context.Context, id uuid.UUID) (*moderation.Detail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.AnalysisRecord, error)
	FileReport(ctx context.Context, analysisID uuid.UUID, comment string) (*models.Report, error)
	SubmitFeedback(ctx context.Context, analysisID uuid.UUID, helpful bool) (*models.Feedback, error)
	Analytics(ctx context.Context) (models.Analytics, error)
}

// NewHistoryHandler returns an http.HandlerFunc for GET /api/v1/history.
func NewHistoryHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		records, err := svc.History(r.Context(), limit)
		if err != nil {
			writeError(w, r, err, "Analysis")
			return
		}

		response.Collection(w, records, response.ListMeta{Count: len(records), Limit: limit})
	}
}

// NewListReportsHandler returns an http.HandlerFunc for GET /api/v1/reports.
func NewListReportsHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		status := r.URL.Query().Get("status")

		filter := store.RecordFilter{Limit: limit}
		if status != "" {
			s, err := moderation.ParseStatus(status)
			if err != nil {
				writeError(w, r, err, "Analysis")
				return
			}
			filter.Status = s
		}

		records, err := svc.List(r.Context(), filter)
		if err != nil {
			writeError(w, r, err, "Analysis")
			return
		}

		response.Collection(w, records, response.ListMeta{
			Count:  len(records),
			Limit:  limit,
			Status: string(filter.Status),
		})
	}
}

// NewReportDetailHandler returns an http.HandlerFunc for GET /api/v1/reports/{id}.
func NewReportDetailHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}

		detail, err := svc.Detail(r.Context(), id)
		if err != nil {
			writeError(w, r, err, "Analysis")
			return
		}

		response.JSON(w, detail)
	}
}

// NewUpdateStatusHandler returns an http.HandlerFunc for PUT /api/v1/reports/{id}.
func NewUpdateStatusHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, chi.URLParam(r, "id"), "id")
		if !ok {
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		record, err := svc.UpdateStatus(r.Context(), id, req.Status)
		if err != nil {
			writeError(w, r, err, "Analysis")
			return
		}

		response.JSON(w, record)
	}
}

// NewAnalyticsHandler returns an http.HandlerFunc for GET /api/v1/analytics.
func NewAnalyticsHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Analytics(r.Context())
		if err != nil {
			writeError(w, r, err, "Analytics")
			return
		}
		response.JSON(w, stats)
	}
}
