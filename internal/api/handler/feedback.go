package handler

import (
	"net/http"

	"github.com/kiranshivaraju/inocula/internal/api/response"
)

// NewFileReportHandler returns an http.HandlerFunc for POST /api/v1/report.
func NewFileReportHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AnalysisID string `json:"analysis_id"`
			Comment    string `json:"comment"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		analysisID, ok := parseID(w, req.AnalysisID, "analysis_id")
		if !ok {
			return
		}

		report, err := svc.FileReport(r.Context(), analysisID, req.Comment)
		if err != nil {
			writeError(w, r, err, "Analysis")
			return
		}

		response.Created(w, report)
	}
}

// NewFeedbackHandler returns an http.HandlerFunc for POST /api/v1/feedback.
func NewFeedbackHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AnalysisID string `json:"analysis_id"`
			IsHelpful  *bool  `json:"is_helpful"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		analysisID, ok := parseID(w, req.AnalysisID, "analysis_id")
		if !ok {
			return
		}
		if req.IsHelpful == nil {
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "is_helpful is required", nil)
			return
		}

		fb, err := svc.SubmitFeedback(r.Context(), analysisID, *req.IsHelpful)
		if err != nil {
			writeError(w, r, err, "Analysis")
			return
		}

		response.Created(w, fb)
	}
}
