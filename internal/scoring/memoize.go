package scoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/inocula/internal/cache"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// Memoizer caches Results by the fingerprint of the exact submitted text.
// Cache failures are logged and never fail a score.
type Memoizer struct {
	next  models.Scorer
	cache cache.Cache
	ttl   time.Duration
}

// Memoize wraps next with a result cache. A non-positive ttl or nil cache returns next unchanged.
func Memoize(next models.Scorer, c cache.Cache, ttl time.Duration) models.Scorer {
	if c == nil || ttl <= 0 {
		return next
	}
	return &Memoizer{next: next, cache: c, ttl: ttl}
}

func (m *Memoizer) Name() string { return m.next.Name() }

func (m *Memoizer) Score(ctx context.Context, text string) (models.Result, error) {
	key := cache.ScoreKey(m.next.Name(), Fingerprint(text))

	if data, found, err := m.cache.Get(ctx, key); err != nil {
		slog.Warn("score cache read failed", "error", err)
	} else if found {
		var res models.Result
		if err := json.Unmarshal(data, &res); err == nil {
			return res, nil
		}
		slog.Warn("discarding malformed cached score", "key", key)
		if err := m.cache.Delete(ctx, key); err != nil {
			slog.Warn("score cache delete failed", "error", err)
		}
	}

	res, err := m.next.Score(ctx, text)
	if err != nil {
		return models.Result{}, err
	}

	if data, err := json.Marshal(res); err == nil {
		if err := m.cache.Set(ctx, key, data, m.ttl); err != nil {
			slog.Warn("score cache write failed", "error", err)
		}
	}
	return res, nil
}
