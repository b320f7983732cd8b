package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/repository"
)

// Summary is the response of the usage-summary query.
type Summary struct {
	DailyStats  []domain.DailyStat  `json:"dailyStats"`
	TotalEvents int64               `json:"totalEvents"`
	Errors      []domain.ErrorCount `json:"errors"`
	Period      string              `json:"period"`
}

// StatsService assembles usage summaries from the store.
type StatsService struct {
	statsRepo repository.StatsRepository
	eventRepo repository.EventRepository
	errorRepo repository.ErrorLogRepository
}

// NewStatsService creates a StatsService.
func NewStatsService(statsRepo repository.StatsRepository, eventRepo repository.EventRepository, errorRepo repository.ErrorLogRepository) *StatsService {
	if statsRepo == nil || eventRepo == nil || errorRepo == nil {
		panic("repositories cannot be nil for StatsService")
	}
	return &StatsService{
		statsRepo: statsRepo,
		eventRepo: eventRepo,
		errorRepo: errorRepo,
	}
}

// Summary returns aggregates for the trailing days-day window including
// today. Derived fields (unique users, average duration) are computed here
// rather than stored.
func (s *StatsService) Summary(ctx context.Context, days int) (*Summary, error) {
	if days <= 0 {
		days = 7
	}
	logCtx := logrus.WithFields(logrus.Fields{"component": "stats", "days": days})

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -(days - 1))
	fromDay := domain.DayKey(from)
	toDay := domain.DayKey(now)
	windowStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)

	stats, err := s.statsRepo.FindRange(ctx, fromDay, toDay)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load daily stats")
		return nil, ErrInternalServer
	}
	for i := range stats {
		stats[i].Finalize()
	}

	totalEvents, err := s.eventRepo.CountSince(ctx, windowStart)
	if err != nil {
		logCtx.WithError(err).Error("Failed to count events")
		return nil, ErrInternalServer
	}

	errorCounts, err := s.errorRepo.CountByKind(ctx, windowStart)
	if err != nil {
		logCtx.WithError(err).Error("Failed to count errors")
		return nil, ErrInternalServer
	}
	if errorCounts == nil {
		errorCounts = []domain.ErrorCount{}
	}
	if stats == nil {
		stats = []domain.DailyStat{}
	}

	return &Summary{
		DailyStats:  stats,
		TotalEvents: totalEvents,
		Errors:      errorCounts,
		Period:      fmt.Sprintf("%dd", days),
	}, nil
}
