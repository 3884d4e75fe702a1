package service

import (
	"context"
	"fmt"

	"diceduel/models"
)

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{
		uowFactory: uowFactory,
	}
}

// GetSystemReport aggregates system-wide money state
func (s *statsService) GetSystemReport(ctx context.Context) (*models.SystemReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	totalBalance, userCount, err := uow.UserRepository().GetSystemTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get system totals: %w", err)
	}

	totalDeposits, err := uow.TransactionRepository().SumPaid(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum deposits: %w", err)
	}

	lockedStakes, err := uow.GameRepository().TotalLockedStakes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum locked stakes: %w", err)
	}

	averageBet, err := uow.GameRepository().AverageBet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get average bet: %w", err)
	}

	return &models.SystemReport{
		TotalBalance:  totalBalance,
		UserCount:     userCount,
		TotalDeposits: totalDeposits,
		LockedStakes:  lockedStakes,
		AverageBet:    averageBet,
	}, nil
}

// GetUserReport returns one player's balance, counters and pending deposits
func (s *statsService) GetUserReport(ctx context.Context, userID int64) (*models.UserReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", userID)
	}

	pending, err := uow.TransactionRepository().GetPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	referred, err := uow.UserRepository().CountReferred(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.UserReport{
		User:            user,
		PendingDeposits: pending,
		ReferredCount:   referred,
	}, nil
}

// GetReferralMetrics aggregates referral performance per referrer
func (s *statsService) GetReferralMetrics(ctx context.Context) ([]*models.ReferralMetric, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.UserRepository().GetReferralMetrics(ctx)
}

// GetRecentLedger returns the newest ledger entries
func (s *statsService) GetRecentLedger(ctx context.Context, limit int) ([]*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.LedgerRepository().GetRecent(ctx, limit)
}

// GetRecentWithdrawals returns the newest withdrawals
func (s *statsService) GetRecentWithdrawals(ctx context.Context, limit int) ([]*models.Withdrawal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.WithdrawalRepository().ListRecent(ctx, limit)
}
