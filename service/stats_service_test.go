package service

import (
	"context"
	"testing"

	"diceduel/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_GetSystemReport(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockGameRepo := new(MockGameRepository)
	mockTxRepo := new(MockTransactionRepository)
	mockUoW.SetRepositories(mockUserRepo, mockGameRepo, nil, mockTxRepo, nil)

	svc := NewStatsService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetSystemTotals", ctx).Return(decimal.NewFromInt(1500), 42, nil)
	mockTxRepo.On("SumPaid", ctx).Return(decimal.NewFromInt(2000), nil)
	mockGameRepo.On("TotalLockedStakes", ctx).Return(decimal.NewFromInt(60), nil)
	mockGameRepo.On("AverageBet", ctx).Return(decimal.NewFromInt(12), nil)

	report, err := svc.GetSystemReport(ctx)

	require.NoError(t, err)
	assert.True(t, report.TotalBalance.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, 42, report.UserCount)
	assert.True(t, report.TotalDeposits.Equal(decimal.NewFromInt(2000)))
	assert.True(t, report.LockedStakes.Equal(decimal.NewFromInt(60)))
	assert.True(t, report.AverageBet.Equal(decimal.NewFromInt(12)))
}

func TestStatsService_GetUserReport(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockTxRepo := new(MockTransactionRepository)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, mockTxRepo, nil)

	svc := NewStatsService(mockFactory)

	user := &models.User{ID: 1, Username: "alice", Balance: decimal.NewFromInt(30), Wins: 3}
	pending := []*models.Transaction{{ID: 5, UserID: 1, InvoiceID: 55}}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockUserRepo.On("GetByID", ctx, int64(1)).Return(user, nil)
	mockTxRepo.On("GetPendingByUser", ctx, int64(1)).Return(pending, nil)
	mockUserRepo.On("CountReferred", ctx, int64(1)).Return(2, nil)

	report, err := svc.GetUserReport(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, user, report.User)
	assert.Len(t, report.PendingDeposits, 1)
	assert.Equal(t, 2, report.ReferredCount)
}

func TestStatsService_GetUserReport_UnknownUser(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockUoW.SetRepositories(mockUserRepo, nil, nil, nil, nil)

	svc := NewStatsService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUserRepo.On("GetByID", ctx, int64(404)).Return(nil, nil)

	report, err := svc.GetUserReport(ctx, 404)

	assert.Error(t, err)
	assert.Nil(t, report)
}
