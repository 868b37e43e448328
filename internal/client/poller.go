package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// PollInterval is the delay between status checks.
const PollInterval = 2 * time.Second

// StatusFetcher reads a task snapshot.
type StatusFetcher interface {
	Status(ctx context.Context, id uuid.UUID, wait time.Duration) (*models.Task, error)
}

// Poller watches one task at a time until it leaves pending. It has no
// timeout: a task stuck in pending keeps the loop running until ctx is done.
type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration

	// OnComplete, if set, runs once after a task completes successfully.
	// Record views hook it to refresh their listing.
	OnComplete func(task *models.Task)
}

// NewPoller creates a Poller that checks every PollInterval.
func NewPoller(fetcher StatusFetcher) *Poller {
	return &Poller{fetcher: fetcher, interval: PollInterval}
}

// WithInterval overrides the polling interval.
func (p *Poller) WithInterval(d time.Duration) *Poller {
	p.interval = d
	return p
}

// Poll blocks until the task is terminal, ctx is done, or a request fails.
// A completed task is returned with a nil error. A failed task is returned
// together with an error wrapping ErrAnalysisFailed. Transport failures stop
// the loop without retrying.
func (p *Poller) Poll(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		task, err := p.fetcher.Status(ctx, id, 0)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) || errors.Is(err, ErrTransport) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		switch task.Status {
		case models.TaskStatusCompleted:
			if p.OnComplete != nil {
				p.OnComplete(task)
			}
			return task, nil
		case models.TaskStatusFailed:
			msg := "unknown error"
			if task.Error != nil {
				msg = *task.Error
			}
			return task, fmt.Errorf("%w: %s", ErrAnalysisFailed, msg)
		}
	}
}
