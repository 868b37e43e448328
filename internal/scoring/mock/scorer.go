package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/inocula/pkg/models"
)

// MockScorer satisfies models.Scorer for testing.
type MockScorer struct {
	Name_     string
	ScoreFunc func(ctx context.Context, text string) (models.Result, error)

	calls atomic.Int64
}

func (m *MockScorer) Name() string { return m.Name_ }

func (m *MockScorer) Score(ctx context.Context, text string) (models.Result, error) {
	m.calls.Add(1)
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, text)
	}
	return models.Result{Reasons: []string{}}, nil
}

// Calls returns how many times Score was invoked.
func (m *MockScorer) Calls() int {
	return int(m.calls.Load())
}

// NewMockScorer returns a MockScorer that always produces the given score.
func NewMockScorer(score int) *MockScorer {
	return &MockScorer{
		Name_: "mock",
		ScoreFunc: func(_ context.Context, _ string) (models.Result, error) {
			return models.Result{
				Score:       score,
				Explanation: "Mock explanation for testing",
				Reasons:     []string{"Mock reason"},
			}, nil
		},
	}
}

// NewFailingScorer returns a MockScorer that always returns the given error.
func NewFailingScorer(err error) *MockScorer {
	return &MockScorer{
		Name_: "mock-failing",
		ScoreFunc: func(_ context.Context, _ string) (models.Result, error) {
			return models.Result{}, err
		},
	}
}

// NewBlockingScorer returns a MockScorer that blocks until ctx is done.
func NewBlockingScorer() *MockScorer {
	return &MockScorer{
		Name_: "mock-blocking",
		ScoreFunc: func(ctx context.Context, _ string) (models.Result, error) {
			<-ctx.Done()
			return models.Result{}, ctx.Err()
		},
	}
}

// NewGatedScorer returns a MockScorer that waits for gate to close before
// producing score. It gives up early if ctx is done.
func NewGatedScorer(gate <-chan struct{}, score int) *MockScorer {
	inner := NewMockScorer(score)
	return &MockScorer{
		Name_: "mock-gated",
		ScoreFunc: func(ctx context.Context, text string) (models.Result, error) {
			select {
			case <-gate:
				return inner.ScoreFunc(ctx, text)
			case <-ctx.Done():
				return models.Result{}, ctx.Err()
			}
		},
	}
}

// NewPanickingScorer returns a MockScorer that panics on every call.
func NewPanickingScorer() *MockScorer {
	return &MockScorer{
		Name_: "mock-panicking",
		ScoreFunc: func(_ context.Context, _ string) (models.Result, error) {
			panic("scorer exploded")
		},
	}
}

// Compile-time check that MockScorer implements Scorer.
var _ models.Scorer = (*MockScorer)(nil)
