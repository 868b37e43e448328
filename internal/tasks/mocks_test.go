package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/store"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// --- mocks ---

type mockStore struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]*models.Task
	records     map[uuid.UUID]*models.AnalysisRecord
	failCalls   int
	cutoffs     []time.Time
	createErr   error
	completeErr error
	deleteErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		tasks:   make(map[uuid.UUID]*models.Task),
		records: make(map[uuid.UUID]*models.AnalysisRecord),
	}
}

func (s *mockStore) Ping(_ context.Context) error { return nil }

func (s *mockStore) CreateTask(_ context.Context, task *models.Task) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *mockStore) GetTask(_ context.Context, id uuid.UUID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *mockStore) CompleteTask(_ context.Context, taskID uuid.UUID, record *models.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != models.TaskStatusPending {
		return store.ErrTaskNotPending
	}
	if s.completeErr != nil {
		return s.completeErr
	}
	result := record.Result
	t.Status = models.TaskStatusCompleted
	t.Result = &result
	t.AnalysisID = &record.ID
	t.CompletedAt = &record.CreatedAt
	s.records[record.ID] = record
	return nil
}

func (s *mockStore) FailTask(_ context.Context, taskID uuid.UUID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCalls++
	t, ok := s.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != models.TaskStatusPending {
		return store.ErrTaskNotPending
	}
	now := time.Now().UTC()
	t.Status = models.TaskStatusFailed
	t.Error = &msg
	t.CompletedAt = &now
	return nil
}

func (s *mockStore) DeleteTerminalTasksBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	var n int64
	for id, t := range s.tasks {
		if t.IsTerminal() && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

func (s *mockStore) GetAnalysis(_ context.Context, id uuid.UUID) (*models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (s *mockStore) ListAnalyses(_ context.Context, _ store.RecordFilter) ([]*models.AnalysisRecord, error) {
	return nil, nil
}

func (s *mockStore) UpdateAnalysisStatus(_ context.Context, _ uuid.UUID, _, _ models.ModerationStatus) (*models.AnalysisRecord, error) {
	return nil, nil
}

func (s *mockStore) CreateReport(_ context.Context, _ *models.Report) error { return nil }

func (s *mockStore) ListReports(_ context.Context, _ uuid.UUID) ([]*models.Report, error) {
	return nil, nil
}

func (s *mockStore) CreateFeedback(_ context.Context, _ *models.Feedback) error { return nil }

func (s *mockStore) FeedbackTally(_ context.Context, _ uuid.UUID) (models.FeedbackTally, error) {
	return models.FeedbackTally{}, nil
}

func (s *mockStore) setStatus(id uuid.UUID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.tasks[id].Status = status
	s.tasks[id].CompletedAt = &now
}

func (s *mockStore) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

func (s *mockStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *mockStore) onlyRecord(t *testing.T) *models.AnalysisRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(s.records))
	}
	for _, r := range s.records {
		return r
	}
	return nil
}

type mockCache struct {
	mu     sync.Mutex
	tasks  map[uuid.UUID]models.Task
	ttls   map[uuid.UUID]time.Duration
	getErr error
}

func newMockCache() *mockCache {
	return &mockCache{
		tasks: make(map[uuid.UUID]models.Task),
		ttls:  make(map[uuid.UUID]time.Duration),
	}
}

func (c *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error)           { return nil, false, nil }
func (c *mockCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *mockCache) Ping(_ context.Context) error                                     { return nil }
func (c *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, nil
}

func (c *mockCache) SetTask(_ context.Context, task *models.Task, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[task.ID] = *task
	c.ttls[task.ID] = ttl
	return nil
}

func (c *mockCache) GetTask(_ context.Context, id uuid.UUID) (*models.Task, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	t, ok := c.tasks[id]
	if !ok {
		return nil, false, nil
	}
	return &t, true, nil
}

func (c *mockCache) snapshot(id uuid.UUID) (models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[id]
	return t, ok
}

// --- helpers ---

func testOptions() Options {
	return Options{
		Timeout:       5 * time.Second,
		MaxTextLength: 100,
		Retention:     time.Hour,
	}
}

// waitForTerminal polls the store until the task leaves pending.
func waitForTerminal(t *testing.T, s *mockStore, id uuid.UUID) *models.Task {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		task, err := s.GetTask(context.Background(), id)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if task.IsTerminal() {
			return task
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for task %s to finish", id)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
