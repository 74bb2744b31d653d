package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/internal/core/ports/mocks"
	"ecash-billing-engine/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReportingService_GetSummary_All(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewReportingService(repo)

	expected := &ports.HistoryStats{
		Entries:       12,
		TotalMinted:   5000,
		TotalSpent:    320,
		TotalRefunded: 40,
		TotalFees:     3,
	}
	repo.EXPECT().GetStats(gomock.Any(), (*time.Time)(nil)).Return(expected, nil)

	result, err := svc.GetSummary(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestReportingService_GetSummary_WithPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewReportingService(repo)

	repo.EXPECT().GetStats(gomock.Any(), gomock.Not(gomock.Nil())).
		DoAndReturn(func(_ context.Context, since *time.Time) (*ports.HistoryStats, error) {
			assert.WithinDuration(t, time.Now().AddDate(0, 0, -7), *since, time.Minute)
			return &ports.HistoryStats{Entries: 2}, nil
		})

	result, err := svc.GetSummary(context.Background(), "week")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Entries)
}

func TestReportingService_GetSummary_InvalidPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewReportingService(mocks.NewMockHistoryRepository(ctrl))

	_, err := svc.GetSummary(context.Background(), "year")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))
}

func TestReportingService_GetSummary_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewReportingService(repo)
	repo.EXPECT().GetStats(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := svc.GetSummary(context.Background(), "day")
	assert.True(t, apperror.HasCode(err, "SYS_001"))
}

func TestReportingService_ListHistory_ClampsPaging(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewReportingService(repo)

	entries := []domain.HistoryEntry{{Type: domain.HistoryTypeSpent, Amount: 30}}
	repo.EXPECT().List(gomock.Any(), ports.HistoryListParams{Page: 1, PageSize: 100}).Return(entries, int64(1), nil)

	got, total, err := svc.ListHistory(context.Background(), ports.HistoryListParams{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entries, got)
}

func TestReportingService_ListHistory_RejectsInvertedRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewReportingService(mocks.NewMockHistoryRepository(ctrl))
	from := time.Now()
	to := from.Add(-time.Hour)

	_, _, err := svc.ListHistory(context.Background(), ports.HistoryListParams{From: &from, To: &to})
	assert.Error(t, err)
}
