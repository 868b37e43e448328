// Package tasks owns the lifecycle of asynchronous analysis tasks: submission,
// status reads, long-poll waits and the background scoring run.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/internal/cache"
	"github.com/kiranshivaraju/inocula/internal/scoring"
	"github.com/kiranshivaraju/inocula/internal/store"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// ErrInvalidInput is returned by Submit for empty or oversized text.
var ErrInvalidInput = errors.New("invalid input")

// waitRecheck bounds how long Wait sleeps between store reads when no
// in-process completion signal exists for the task.
const waitRecheck = 500 * time.Millisecond

// Options configures a Registry.
type Options struct {
	// Timeout bounds one scoring run.
	Timeout time.Duration
	// MaxTextLength is the maximum submission length in runes.
	MaxTextLength int
	// Retention is how long terminal snapshots stay cached.
	Retention time.Duration
}

// Registry tracks analysis tasks. Submit returns as soon as the task is
// persisted; scoring happens in a background goroutine that writes the
// terminal state exactly once.
type Registry struct {
	store  store.Store
	cache  cache.Cache
	scorer models.Scorer
	opts   Options

	mu   sync.Mutex
	done map[uuid.UUID]chan struct{}
	wg   sync.WaitGroup
}

// NewRegistry creates a Registry. cache may be nil.
func NewRegistry(st store.Store, ca cache.Cache, scorer models.Scorer, opts Options) *Registry {
	return &Registry{
		store:  st,
		cache:  ca,
		scorer: scorer,
		opts:   opts,
		done:   make(map[uuid.UUID]chan struct{}),
	}
}

// Submit validates text, creates a pending task and starts scoring it.
func (r *Registry) Submit(ctx context.Context, text string) (*models.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(text); n > r.opts.MaxTextLength {
		return nil, fmt.Errorf("%w: text is %d characters, maximum is %d", ErrInvalidInput, n, r.opts.MaxTextLength)
	}

	task := &models.Task{
		ID:        uuid.New(),
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	r.mu.Lock()
	r.done[task.ID] = make(chan struct{})
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(*task, text)

	return task, nil
}

// GetStatus returns the current snapshot of a task. Terminal snapshots are
// served from the cache when possible.
func (r *Registry) GetStatus(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if r.cache != nil {
		task, found, err := r.cache.GetTask(ctx, id)
		if err != nil {
			slog.Warn("task cache read failed", "task_id", id, "error", err)
		} else if found {
			return task, nil
		}
	}

	task, err := r.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	if task.IsTerminal() && task.CompletedAt != nil {
		if ttl := r.opts.Retention - time.Since(*task.CompletedAt); ttl > 0 {
			r.cacheSnapshot(ctx, task, ttl)
		}
	}
	return task, nil
}

// Wait blocks until the task is terminal, maxWait elapses or ctx is done, and
// returns the latest snapshot. A non-positive maxWait behaves like GetStatus.
func (r *Registry) Wait(ctx context.Context, id uuid.UUID, maxWait time.Duration) (*models.Task, error) {
	done := r.doneChan(id)

	task, err := r.GetStatus(ctx, id)
	if err != nil || task.IsTerminal() || maxWait <= 0 {
		return task, err
	}

	timer := time.NewTimer(maxWait)
	defer timer.Stop()
	ticker := time.NewTicker(waitRecheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return task, nil
		case <-timer.C:
			return r.GetStatus(ctx, id)
		case <-done:
			return r.GetStatus(ctx, id)
		case <-ticker.C:
			task, err = r.GetStatus(ctx, id)
			if err != nil || task.IsTerminal() {
				return task, err
			}
		}
	}
}

// Shutdown waits for in-flight scoring runs to finish or ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight tasks: %w", ctx.Err())
	}
}

// doneChan returns the completion channel of a task running in this process,
// or nil when there is none.
func (r *Registry) doneChan(id uuid.UUID) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.done[id]
	if !ok {
		return nil
	}
	return ch
}

func (r *Registry) release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.done[id]; ok {
		close(ch)
		delete(r.done, id)
	}
}

// run scores text and records the outcome. It never returns an error: every
// failure, including a panic in the scorer, ends in the failed state.
func (r *Registry) run(task models.Task, text string) {
	defer r.wg.Done()
	defer r.release(task.ID)

	ctx := context.Background()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in scoring run", "error", rec, "task_id", task.ID)
			r.fail(ctx, task, fmt.Sprintf("panic: %v", rec))
		}
	}()

	scoreCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	result, err := r.scorer.Score(scoreCtx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", scoring.ErrScoringTimeout, r.opts.Timeout)
		}
		slog.Warn("scoring failed", "task_id", task.ID, "scorer", r.scorer.Name(),
			"duration_ms", time.Since(start).Milliseconds(), "error", err)
		r.fail(ctx, task, err.Error())
		return
	}
	result = result.Clamped()

	now := time.Now().UTC()
	record := &models.AnalysisRecord{
		ID:          uuid.New(),
		TaskID:      &task.ID,
		RequestText: text,
		Result:      result,
		Status:      models.StatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.CompleteTask(ctx, task.ID, record); err != nil {
		if errors.Is(err, store.ErrTaskNotPending) || errors.Is(err, store.ErrNotFound) {
			slog.Warn("task left pending before completion", "task_id", task.ID, "error", err)
			return
		}
		r.fail(ctx, task, fmt.Sprintf("storing result: %v", err))
		return
	}

	slog.Info("task completed", "task_id", task.ID, "analysis_id", record.ID,
		"score", result.Score, "duration_ms", time.Since(start).Milliseconds())

	task.Status = models.TaskStatusCompleted
	task.Result = &result
	task.AnalysisID = &record.ID
	task.CompletedAt = &now
	r.cacheSnapshot(ctx, &task, r.opts.Retention)
}

func (r *Registry) fail(ctx context.Context, task models.Task, msg string) {
	if err := r.store.FailTask(ctx, task.ID, msg); err != nil {
		slog.Error("marking task failed", "task_id", task.ID, "error", err)
		return
	}

	now := time.Now().UTC()
	task.Status = models.TaskStatusFailed
	task.Error = &msg
	task.CompletedAt = &now
	r.cacheSnapshot(ctx, &task, r.opts.Retention)
}

func (r *Registry) cacheSnapshot(ctx context.Context, task *models.Task, ttl time.Duration) {
	if r.cache == nil || ttl <= 0 {
		return
	}
	if err := r.cache.SetTask(ctx, task, ttl); err != nil {
		slog.Warn("task cache write failed", "task_id", task.ID, "error", err)
	}
}
