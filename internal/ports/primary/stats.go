package primary

import "context"

// StaffStat is one staff member's aggregate line of the summary.
type StaffStat struct {
	StaffID     string
	Name        string
	Claimed     int
	Closed      int
	RatingCount int
	Average     float64 // 2-decimal rounded, 0 when unrated
}

// StatsService is the primary port for the stats reporter. Read-only.
type StatsService interface {
	// StaffStats returns all staff aggregates ordered by claimed count
	// descending, with display names resolved best-effort.
	StaffStats(ctx context.Context) ([]*StaffStat, error)
}
