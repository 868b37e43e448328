package models

// Analytics is derived on demand from the AnalysisRecord collection.
type Analytics struct {
	StatusCounts map[ModerationStatus]int `json:"status_counts"`
	DailyReports []DailyCount             `json:"daily_reports"`
}

// DailyCount is the number of records created on one calendar day (YYYY-MM-DD).
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
