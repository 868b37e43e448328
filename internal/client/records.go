package client

import (
	"context"
	"sync"
	"time"

	"github.com/kiranshivaraju/inocula/pkg/models"
)

// RecordLister fetches the record listing.
type RecordLister interface {
	History(ctx context.Context, limit int) ([]*models.AnalysisRecord, error)
}

// RecordCache is a read-through view of the record listing. Entries older
// than the staleness window are re-fetched on the next read; Invalidate
// forces the next read to go to the server.
type RecordCache struct {
	lister RecordLister
	stale  time.Duration
	limit  int
	now    func() time.Time

	mu        sync.Mutex
	records   []*models.AnalysisRecord
	fetchedAt time.Time
	valid     bool
}

// NewRecordCache creates a RecordCache holding up to limit records (0 for all).
func NewRecordCache(lister RecordLister, stale time.Duration, limit int) *RecordCache {
	return &RecordCache{lister: lister, stale: stale, limit: limit, now: time.Now}
}

// Records returns the cached listing, re-fetching it when stale. On a fetch
// error the previous listing is kept and the error returned.
func (c *RecordCache) Records(ctx context.Context) ([]*models.AnalysisRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.now().Sub(c.fetchedAt) < c.stale {
		return c.records, nil
	}

	records, err := c.lister.History(ctx, c.limit)
	if err != nil {
		return nil, err
	}
	c.records = records
	c.fetchedAt = c.now()
	c.valid = true
	return records, nil
}

// Invalidate marks the listing stale.
func (c *RecordCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// InvalidateOnComplete is a Poller.OnComplete hook.
func (c *RecordCache) InvalidateOnComplete(*models.Task) {
	c.Invalidate()
}
