// Package analytics derives aggregate moderation figures from analysis records.
package analytics

import (
	"sort"

	"github.com/kiranshivaraju/inocula/pkg/models"
)

const dayLayout = "2006-01-02"

// Compute aggregates records at call time. StatusCounts always carries every
// moderation status. DailyReports counts records by the UTC calendar day of
// their creation, oldest day first.
func Compute(records []*models.AnalysisRecord) models.Analytics {
	counts := make(map[models.ModerationStatus]int, len(models.ModerationStatuses))
	for _, s := range models.ModerationStatuses {
		counts[s] = 0
	}

	perDay := make(map[string]int)
	for _, r := range records {
		counts[r.Status]++
		perDay[r.CreatedAt.UTC().Format(dayLayout)]++
	}

	daily := make([]models.DailyCount, 0, len(perDay))
	for day, n := range perDay {
		daily = append(daily, models.DailyCount{Date: day, Count: n})
	}
	// The layout sorts lexically in date order.
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return models.Analytics{StatusCounts: counts, DailyReports: daily}
}
