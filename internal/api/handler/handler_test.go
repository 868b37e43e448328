package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/api/handler"
	"github.com/kiranshivaraju/inocula/internal/moderation"
	"github.com/kiranshivaraju/inocula/internal/store"
	"github.com/kiranshivaraju/inocula/internal/tasks"
	"github.com/kiranshivaraju/inocula/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeTasks struct {
	submitErr error
	task      *models.Task
	waitErr   error
	gotText   string
	gotWait   time.Duration
}

func (f *fakeTasks) Submit(_ context.Context, text string) (*models.Task, error) {
	f.gotText = text
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.Task{ID: uuid.New(), Status: models.TaskStatusPending}, nil
}

func (f *fakeTasks) Wait(_ context.Context, id uuid.UUID, maxWait time.Duration) (*models.Task, error) {
	f.gotWait = maxWait
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	t := *f.task
	t.ID = id
	return &t, nil
}

type fakeModerator struct {
	records   []*models.AnalysisRecord
	err       error
	gotFilter store.RecordFilter
	gotLimit  int
	gotStatus string
	gotText   string
	gotHelp   bool
}

func (f *fakeModerator) History(_ context.Context, limit int) ([]*models.AnalysisRecord, error) {
	f.gotLimit = limit
	return f.records, f.err
}

func (f *fakeModerator) List(_ context.Context, filter store.RecordFilter) ([]*models.AnalysisRecord, error) {
	f.gotFilter = filter
	return f.records, f.err
}

func (f *fakeModerator) Detail(_ context.Context, id uuid.UUID) (*moderation.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &moderation.Detail{
		Analysis: &models.AnalysisRecord{ID: id, Status: models.StatusSubmitted},
		Reports:  []*models.Report{},
		Feedback: models.FeedbackTally{Helpful: 2},
	}, nil
}

func (f *fakeModerator) UpdateStatus(_ context.Context, id uuid.UUID, status string) (*models.AnalysisRecord, error) {
	f.gotStatus = status
	if f.err != nil {
		return nil, f.err
	}
	return &models.AnalysisRecord{ID: id, Status: models.ModerationStatus(status)}, nil
}

func (f *fakeModerator) FileReport(_ context.Context, analysisID uuid.UUID, comment string) (*models.Report, error) {
	f.gotText = comment
	if f.err != nil {
		return nil, f.err
	}
	return &models.Report{ID: uuid.New(), AnalysisID: analysisID, Comment: &comment}, nil
}

func (f *fakeModerator) SubmitFeedback(_ context.Context, analysisID uuid.UUID, helpful bool) (*models.Feedback, error) {
	f.gotHelp = helpful
	if f.err != nil {
		return nil, f.err
	}
	return &models.Feedback{ID: uuid.New(), AnalysisID: analysisID, IsHelpful: helpful}, nil
}

func (f *fakeModerator) Analytics(_ context.Context) (models.Analytics, error) {
	if f.err != nil {
		return models.Analytics{}, f.err
	}
	return models.Analytics{
		StatusCounts: map[models.ModerationStatus]int{models.StatusSubmitted: 1, models.StatusEscalated: 0, models.StatusResolved: 0},
		DailyReports: []models.DailyCount{{Date: "2026-03-04", Count: 1}},
	}, nil
}

// --- helpers ---

// serve routes a single request through a chi router so URL params resolve.
func serve(method, pattern, target string, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := decode(t, w)["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	return errObj["code"].(string)
}

// --- analyze ---

func TestAnalyze_Accepted(t *testing.T) {
	ft := &fakeTasks{}
	w := serve("POST", "/api/v1/analyze", "/api/v1/analyze", `{"text":"Vaccines cause X"}`, handler.NewAnalyzeHandler(ft))

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	_, err := uuid.Parse(data["task_id"].(string))
	assert.NoError(t, err)
	assert.Equal(t, "Vaccines cause X", ft.gotText)
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	w := serve("POST", "/api/v1/analyze", "/api/v1/analyze", `{"text":`, handler.NewAnalyzeHandler(&fakeTasks{}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, w))
}

func TestAnalyze_InvalidInput(t *testing.T) {
	ft := &fakeTasks{submitErr: fmt.Errorf("%w: text is required", tasks.ErrInvalidInput)}
	w := serve("POST", "/api/v1/analyze", "/api/v1/analyze", `{"text":""}`, handler.NewAnalyzeHandler(ft))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", errCode(t, w))
}

func TestAnalyze_StoreFailure(t *testing.T) {
	ft := &fakeTasks{submitErr: errors.New("connection refused")}
	w := serve("POST", "/api/v1/analyze", "/api/v1/analyze", `{"text":"x"}`, handler.NewAnalyzeHandler(ft))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errCode(t, w))
	assert.NotContains(t, w.Body.String(), "connection refused")
}

// --- status ---

func TestStatus_Completed(t *testing.T) {
	ft := &fakeTasks{task: &models.Task{
		Status: models.TaskStatusCompleted,
		Result: &models.Result{Score: 20, Explanation: "High Risk: x", Reasons: []string{"r"}},
	}}
	id := uuid.New()
	w := serve("GET", "/api/v1/status/{taskID}", "/api/v1/status/"+id.String(), "", handler.NewStatusHandler(ft, 25*time.Second))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, id.String(), data["task_id"])
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(20), data["result"].(map[string]any)["score"])
	_, hasError := data["error"]
	assert.False(t, hasError)
	assert.Zero(t, ft.gotWait)
}

func TestStatus_PendingOmitsResultAndError(t *testing.T) {
	ft := &fakeTasks{task: &models.Task{Status: models.TaskStatusPending}}
	w := serve("GET", "/api/v1/status/{taskID}", "/api/v1/status/"+uuid.NewString(), "", handler.NewStatusHandler(ft, time.Second))

	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.NotContains(t, data, "result")
	assert.NotContains(t, data, "error")
}

func TestStatus_WaitParameter(t *testing.T) {
	tests := []struct {
		query string
		want  time.Duration
	}{
		{"wait=10s", 10 * time.Second},
		{"wait=3", 3 * time.Second},
		{"wait=5m", 25 * time.Second},
		{"wait=0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ft := &fakeTasks{task: &models.Task{Status: models.TaskStatusPending}}
			w := serve("GET", "/api/v1/status/{taskID}", "/api/v1/status/"+uuid.NewString()+"?"+tt.query, "",
				handler.NewStatusHandler(ft, 25*time.Second))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, ft.gotWait)
		})
	}
}

func TestStatus_BadWait(t *testing.T) {
	for _, q := range []string{"wait=soon", "wait=-5s"} {
		w := serve("GET", "/api/v1/status/{taskID}", "/api/v1/status/"+uuid.NewString()+"?"+q, "",
			handler.NewStatusHandler(&fakeTasks{}, time.Second))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestStatus_BadID(t *testing.T) {
	w := serve("GET", "/api/v1/status/{taskID}", "/api/v1/status/not-a-uuid", "", handler.NewStatusHandler(&fakeTasks{}, time.Second))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", errCode(t, w))
}

func TestStatus_NotFound(t *testing.T) {
	ft := &fakeTasks{waitErr: fmt.Errorf("get task: %w", store.ErrNotFound)}
	w := serve("GET", "/api/v1/status/{taskID}", "/api/v1/status/"+uuid.NewString(), "", handler.NewStatusHandler(ft, time.Second))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errCode(t, w))
}

// --- listings ---

func TestHistory_ListsRecordsWithMeta(t *testing.T) {
	fm := &fakeModerator{records: []*models.AnalysisRecord{{ID: uuid.New()}, {ID: uuid.New()}}}
	w := serve("GET", "/api/v1/history", "/api/v1/history?limit=2", "", handler.NewHistoryHandler(fm))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, float64(2), body["meta"].(map[string]any)["count"])
	assert.Equal(t, 2, fm.gotLimit)
}

func TestHistory_LimitCapped(t *testing.T) {
	fm := &fakeModerator{records: []*models.AnalysisRecord{}}
	serve("GET", "/api/v1/history", "/api/v1/history?limit=100000", "", handler.NewHistoryHandler(fm))
	assert.Equal(t, 500, fm.gotLimit)
}

func TestHistory_BadLimit(t *testing.T) {
	for _, q := range []string{"limit=0", "limit=-1", "limit=ten"} {
		w := serve("GET", "/api/v1/history", "/api/v1/history?"+q, "", handler.NewHistoryHandler(&fakeModerator{}))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestListReports_StatusFilter(t *testing.T) {
	fm := &fakeModerator{records: []*models.AnalysisRecord{}}
	w := serve("GET", "/api/v1/reports", "/api/v1/reports?status=escalated", "", handler.NewListReportsHandler(fm))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusEscalated, fm.gotFilter.Status)
	assert.Equal(t, "escalated", decode(t, w)["meta"].(map[string]any)["status"])
}

func TestListReports_UnknownStatusFilter(t *testing.T) {
	w := serve("GET", "/api/v1/reports", "/api/v1/reports?status=archived", "", handler.NewListReportsHandler(&fakeModerator{}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS", errCode(t, w))
}

func TestReportDetail(t *testing.T) {
	id := uuid.New()
	w := serve("GET", "/api/v1/reports/{id}", "/api/v1/reports/"+id.String(), "", handler.NewReportDetailHandler(&fakeModerator{}))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, id.String(), data["analysis"].(map[string]any)["id"])
	assert.Equal(t, float64(2), data["feedback"].(map[string]any)["helpful"])
}

// --- status updates ---

func TestUpdateStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"invalid status", moderation.ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
		{"invalid transition", moderation.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"conflict", store.ErrStatusConflict, http.StatusConflict, "STATUS_CONFLICT"},
		{"not found", store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := &fakeModerator{err: tt.err}
			w := serve("PUT", "/api/v1/reports/{id}", "/api/v1/reports/"+uuid.NewString(), `{"status":"resolved"}`,
				handler.NewUpdateStatusHandler(fm))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "resolved", fm.gotStatus)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errCode(t, w))
			}
		})
	}
}

// --- reports & feedback ---

func TestFileReport_Created(t *testing.T) {
	fm := &fakeModerator{}
	id := uuid.New()
	w := serve("POST", "/api/v1/report", "/api/v1/report",
		fmt.Sprintf(`{"analysis_id":%q,"comment":"misleading"}`, id), handler.NewFileReportHandler(fm))

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, id.String(), data["analysis_id"])
	assert.Equal(t, "misleading", fm.gotText)
}

func TestFileReport_BadAnalysisID(t *testing.T) {
	w := serve("POST", "/api/v1/report", "/api/v1/report", `{"analysis_id":"42"}`, handler.NewFileReportHandler(&fakeModerator{}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", errCode(t, w))
}

func TestFileReport_UnknownAnalysis(t *testing.T) {
	fm := &fakeModerator{err: store.ErrNotFound}
	w := serve("POST", "/api/v1/report", "/api/v1/report",
		fmt.Sprintf(`{"analysis_id":%q}`, uuid.New()), handler.NewFileReportHandler(fm))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedback_Created(t *testing.T) {
	fm := &fakeModerator{}
	w := serve("POST", "/api/v1/feedback", "/api/v1/feedback",
		fmt.Sprintf(`{"analysis_id":%q,"is_helpful":false}`, uuid.New()), handler.NewFeedbackHandler(fm))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, fm.gotHelp)
	assert.Equal(t, false, decode(t, w)["data"].(map[string]any)["is_helpful"])
}

func TestFeedback_MissingHelpful(t *testing.T) {
	w := serve("POST", "/api/v1/feedback", "/api/v1/feedback",
		fmt.Sprintf(`{"analysis_id":%q}`, uuid.New()), handler.NewFeedbackHandler(&fakeModerator{}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", errCode(t, w))
}

// --- analytics ---

func TestAnalytics(t *testing.T) {
	w := serve("GET", "/api/v1/analytics", "/api/v1/analytics", "", handler.NewAnalyticsHandler(&fakeModerator{}))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	counts := data["status_counts"].(map[string]any)
	assert.Len(t, counts, 3)
	assert.Equal(t, float64(1), counts["submitted"])
	assert.Len(t, data["daily_reports"], 1)
}
