package service

import (
	"context"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"
)

const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	history ports.HistoryRepository
	now     func() time.Time
}

// NewReportingService creates a new reporting service over one identity's
// history.
func NewReportingService(history ports.HistoryRepository) ports.ReportingService {
	return &reportingService{history: history, now: time.Now}
}

// GetSummary returns aggregated history totals for the period.
func (s *reportingService) GetSummary(ctx context.Context, period string) (*ports.HistoryStats, error) {
	var since *time.Time

	switch period {
	case "day":
		t := s.now().AddDate(0, 0, -1)
		since = &t
	case "week":
		t := s.now().AddDate(0, 0, -7)
		since = &t
	case "month":
		t := s.now().AddDate(0, -1, 0)
		since = &t
	case "all", "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	stats, err := s.history.GetStats(ctx, since)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return stats, nil
}

// ListHistory returns a page of history entries, newest first.
func (s *reportingService) ListHistory(ctx context.Context, params ports.HistoryListParams) ([]domain.HistoryEntry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = defaultHistoryPageSize
	}
	if params.PageSize > maxHistoryPageSize {
		params.PageSize = maxHistoryPageSize
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return nil, 0, apperror.Validation("to must not be before from")
	}

	entries, total, err := s.history.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return entries, total, nil
}
