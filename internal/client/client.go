// Package client talks to the Inocula HTTP API on behalf of CLI and UI code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/moderation"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// Sentinel errors for client failures.
var (
	// ErrTransport means the request could not complete (connection refused, timeout, bad body).
	ErrTransport = errors.New("could not reach the analysis service")
	// ErrAnalysisFailed means the task reached the failed state.
	ErrAnalysisFailed = errors.New("analysis failed")
)

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// HTTPClient implements the API calls over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the API at baseURL. timeout must exceed
// any long-poll wait passed to Status.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Submit starts an analysis and returns its task id.
func (c *HTTPClient) Submit(ctx context.Context, text string) (uuid.UUID, error) {
	var out struct {
		TaskID uuid.UUID `json:"task_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/analyze", map[string]string{"text": text}, &out); err != nil {
		return uuid.Nil, err
	}
	return out.TaskID, nil
}

// Status returns the task snapshot. A positive wait asks the server to hold
// the request until the task is terminal or wait elapses.
func (c *HTTPClient) Status(ctx context.Context, id uuid.UUID, wait time.Duration) (*models.Task, error) {
	path := "/api/v1/status/" + id.String()
	if wait > 0 {
		path += "?wait=" + url.QueryEscape(wait.String())
	}
	var task models.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// History lists records newest first. A zero limit returns all of them.
func (c *HTTPClient) History(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	path := "/api/v1/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var records []*models.AnalysisRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListReports lists records for moderation, optionally filtered by status.
func (c *HTTPClient) ListReports(ctx context.Context, status string, limit int) ([]*models.AnalysisRecord, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/reports"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var records []*models.AnalysisRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Detail returns a record with its reports and feedback tally.
func (c *HTTPClient) Detail(ctx context.Context, id uuid.UUID) (*moderation.Detail, error) {
	var detail moderation.Detail
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports/"+id.String(), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// UpdateStatus moves a record through the moderation workflow.
func (c *HTTPClient) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	if err := c.do(ctx, http.MethodPut, "/api/v1/reports/"+id.String(), map[string]string{"status": status}, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// FileReport asks moderators to review a record.
func (c *HTTPClient) FileReport(ctx context.Context, analysisID uuid.UUID, comment string) (*models.Report, error) {
	body := map[string]string{"analysis_id": analysisID.String(), "comment": comment}
	var report models.Report
	if err := c.do(ctx, http.MethodPost, "/api/v1/report", body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SubmitFeedback records whether an analysis was helpful.
func (c *HTTPClient) SubmitFeedback(ctx context.Context, analysisID uuid.UUID, helpful bool) (*models.Feedback, error) {
	body := map[string]any{"analysis_id": analysisID.String(), "is_helpful": helpful}
	var fb models.Feedback
	if err := c.do(ctx, http.MethodPost, "/api/v1/feedback", body, &fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

// Analytics returns status counts and daily record counts.
func (c *HTTPClient) Analytics(ctx context.Context) (*models.Analytics, error) {
	var stats models.Analytics
	if err := c.do(ctx, http.MethodGet, "/api/v1/analytics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends a JSON request and decodes the data field of the response envelope into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrTransport, decodeErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decoding response data: %v", ErrTransport, err)
	}
	return nil
}

// classifyError maps transport-level errors to ErrTransport, keeping
// context cancellation visible to callers.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: request timed out: %v", ErrTransport, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
