package app

import (
	"context"
	"fmt"
	"math"

	"github.com/example/modmail/internal/ports/primary"
	"github.com/example/modmail/internal/ports/secondary"
)

// StatsServiceImpl implements the StatsService interface. Read-only.
type StatsServiceImpl struct {
	stats secondary.StaffStatsRepository
	names secondary.NameResolver
}

// NewStatsService creates a new StatsService with injected dependencies.
func NewStatsService(stats secondary.StaffStatsRepository, names secondary.NameResolver) *StatsServiceImpl {
	return &StatsServiceImpl{stats: stats, names: names}
}

// StaffStats returns all staff aggregates ordered by claimed count
// descending. Name resolution failures fall back to the raw identifier.
func (s *StatsServiceImpl) StaffStats(ctx context.Context) ([]*primary.StaffStat, error) {
	records, err := s.stats.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff stats: %w", err)
	}

	stats := make([]*primary.StaffStat, len(records))
	for i, r := range records {
		name, err := s.names.UserName(ctx, r.StaffID)
		if err != nil || name == "" {
			name = "ID:" + r.StaffID
		}

		var average float64
		if r.RatingCount > 0 {
			average = math.Round(float64(r.RatingSum)/float64(r.RatingCount)*100) / 100
		}

		stats[i] = &primary.StaffStat{
			StaffID:     r.StaffID,
			Name:        name,
			Claimed:     r.Claimed,
			Closed:      r.Closed,
			RatingCount: r.RatingCount,
			Average:     average,
		}
	}
	return stats, nil
}

// Ensure StatsServiceImpl implements the interface.
var _ primary.StatsService = (*StatsServiceImpl)(nil)
