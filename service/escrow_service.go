package service

import (
	"context"
	"fmt"

	"diceduel/config"
	"diceduel/events"
	"diceduel/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var two = decimal.NewFromInt(2)

type escrowService struct {
	uowFactory UnitOfWorkFactory
	gateway    PaymentGateway
	cfg        *config.Config
}

// NewEscrowService creates a new escrow and settlement service
func NewEscrowService(uowFactory UnitOfWorkFactory, gateway PaymentGateway, cfg *config.Config) EscrowService {
	return &escrowService{
		uowFactory: uowFactory,
		gateway:    gateway,
		cfg:        cfg,
	}
}

// LockStake debits both players by the duel's stake inside the caller's unit
// of work. Each debit is conditioned on sufficiency; if either side fails the
// caller must roll back so no partial lock ever commits.
func (s *escrowService) LockStake(ctx context.Context, uow UnitOfWork, game *models.Game) error {
	if !game.IsStaked() {
		return nil
	}

	users := uow.UserRepository()

	var shortfalls []Shortfall
	for _, playerID := range []int64{game.Player1ID, game.Player2ID} {
		applied, err := users.TryDeductBalance(ctx, playerID, game.Bet)
		if err != nil {
			return fmt.Errorf("failed to lock stake for user %d: %w", playerID, err)
		}
		if !applied {
			player, err := users.GetByID(ctx, playerID)
			if err != nil {
				return fmt.Errorf("failed to get user %d: %w", playerID, err)
			}
			needed := game.Bet
			if player != nil {
				needed = game.Bet.Sub(player.Balance)
			}
			shortfalls = append(shortfalls, Shortfall{UserID: playerID, Needed: needed})
		}
	}
	if len(shortfalls) > 0 {
		return &InsufficientFundsError{Shortfalls: shortfalls}
	}

	ledger := uow.LedgerRepository()
	for _, playerID := range []int64{game.Player1ID, game.Player2ID} {
		entry := &models.LedgerEntry{
			UserID: playerID,
			Amount: game.Bet.Neg(),
			Reason: models.LedgerReasonBetLock,
			GameID: &game.ID,
		}
		if err := ledger.Record(ctx, entry); err != nil {
			return fmt.Errorf("failed to record bet lock for user %d: %w", playerID, err)
		}
	}

	applied, err := uow.GameRepository().LockFunds(ctx, game.ID)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("funds already locked for game %d", game.ID)
	}
	game.FundsLocked = true

	return nil
}

// RefundStake credits both players back their stake. The funds_locked flip is
// the idempotency guard: a duel whose funds are not locked is a no-op.
func (s *escrowService) RefundStake(ctx context.Context, uow UnitOfWork, game *models.Game) (bool, error) {
	if !game.IsStaked() || !game.FundsLocked {
		return false, nil
	}

	applied, err := uow.GameRepository().UnlockFunds(ctx, game.ID)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	users := uow.UserRepository()
	ledger := uow.LedgerRepository()
	for _, playerID := range []int64{game.Player1ID, game.Player2ID} {
		if err := users.AddBalance(ctx, playerID, game.Bet); err != nil {
			return false, fmt.Errorf("failed to refund stake for user %d: %w", playerID, err)
		}
		entry := &models.LedgerEntry{
			UserID: playerID,
			Amount: game.Bet,
			Reason: models.LedgerReasonRefund,
			GameID: &game.ID,
		}
		if err := ledger.Record(ctx, entry); err != nil {
			return false, fmt.Errorf("failed to record refund for user %d: %w", playerID, err)
		}
	}
	game.FundsLocked = false

	return true, nil
}

// Settle pays the winner the prize minus commission and attributes the
// commission evenly to both participants. The even split is intentional:
// commission entries feed referral rewards, not prize shares.
func (s *escrowService) Settle(ctx context.Context, uow UnitOfWork, game *models.Game, winnerID int64) (decimal.Decimal, error) {
	if !game.IsStaked() {
		return decimal.Zero, nil
	}

	applied, err := uow.GameRepository().UnlockFunds(ctx, game.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if !applied {
		// Another settlement path already released the stakes
		return decimal.Zero, nil
	}
	game.FundsLocked = false

	prize := game.Bet.Mul(two)
	commission := prize.Mul(s.cfg.CommissionRate())
	payout := prize.Sub(commission)
	commissionPerPlayer := commission.Div(two)

	if err := uow.UserRepository().AddBalance(ctx, winnerID, payout); err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit payout to user %d: %w", winnerID, err)
	}

	ledger := uow.LedgerRepository()
	entry := &models.LedgerEntry{
		UserID: winnerID,
		Amount: payout,
		Reason: models.LedgerReasonPayout,
		GameID: &game.ID,
	}
	if err := ledger.Record(ctx, entry); err != nil {
		return decimal.Zero, fmt.Errorf("failed to record payout: %w", err)
	}

	for _, playerID := range []int64{game.Player1ID, game.Player2ID} {
		commissionEntry := &models.CommissionEntry{
			UserID: playerID,
			GameID: game.ID,
			Amount: commissionPerPlayer,
		}
		if err := ledger.RecordCommission(ctx, commissionEntry); err != nil {
			return decimal.Zero, fmt.Errorf("failed to record commission for user %d: %w", playerID, err)
		}
	}

	log.WithFields(log.Fields{
		"gameID":     game.ID,
		"winnerID":   winnerID,
		"payout":     payout,
		"commission": commission,
	}).Info("Duel settled")

	return payout, nil
}

// CreateDeposit requests a gateway invoice and records a pending transaction
func (s *escrowService) CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal) (*InvoiceResult, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Reason: "deposit amount must be positive"}
	}

	invoice, err := s.gateway.CreateInvoice(ctx, amount, s.cfg.Asset)
	if err != nil {
		return nil, &GatewayError{Op: "createInvoice", Err: err}
	}
	if invoice.PayURL == "" {
		return nil, &GatewayError{Op: "createInvoice", Err: fmt.Errorf("invoice %d has no payable URL", invoice.ID)}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tx := &models.Transaction{
		UserID:    userID,
		Amount:    amount,
		Currency:  s.cfg.Asset,
		InvoiceID: invoice.ID,
	}
	if err := uow.TransactionRepository().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to store deposit transaction: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &InvoiceResult{InvoiceID: invoice.ID, PayURL: invoice.PayURL}, nil
}

// ReconcileDeposit polls the invoice and credits the user exactly once. The
// pending->paid conditional flip is the concurrency guard: the second caller
// for an already-paid transaction observes zero rows and backs off.
func (s *escrowService) ReconcileDeposit(ctx context.Context, invoiceID int64) (bool, error) {
	invoice, err := s.gateway.GetInvoice(ctx, invoiceID)
	if err != nil {
		return false, &GatewayError{Op: "getInvoice", Err: err}
	}
	if invoice == nil {
		return false, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tx, err := uow.TransactionRepository().GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	if tx == nil {
		return false, nil
	}

	switch invoice.Status {
	case InvoiceStatusPaid:
		applied, err := uow.TransactionRepository().MarkPaid(ctx, tx.ID)
		if err != nil {
			return false, err
		}
		if !applied {
			return false, nil
		}
		if err := uow.UserRepository().AddBalance(ctx, tx.UserID, tx.Amount); err != nil {
			return false, fmt.Errorf("failed to credit deposit: %w", err)
		}
		entry := &models.LedgerEntry{
			UserID: tx.UserID,
			Amount: tx.Amount,
			Reason: models.LedgerReasonDeposit,
		}
		if err := uow.LedgerRepository().Record(ctx, entry); err != nil {
			return false, fmt.Errorf("failed to record deposit: %w", err)
		}

		uow.EventBus().Publish(events.DepositCreditedEvent{
			UserID:    tx.UserID,
			InvoiceID: invoiceID,
			Amount:    tx.Amount,
		})

		if err := uow.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return true, nil

	case InvoiceStatusExpired, InvoiceStatusCancelled:
		if _, err := uow.TransactionRepository().MarkExpired(ctx, tx.ID); err != nil {
			return false, err
		}
		if err := uow.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return false, nil
	}

	return false, nil
}

// Withdraw reserves the amount, executes the gateway transfer, and unwinds
// the reservation on any transfer failure. No transaction spans the external
// call: the reservation commits first and is compensated, not rolled back.
func (s *escrowService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if amount.LessThan(s.cfg.MinWithdraw) {
		return &ValidationError{Reason: fmt.Sprintf("minimum withdrawal is %s %s", s.cfg.MinWithdraw, s.cfg.Asset)}
	}

	appBalance, err := s.GetAppBalance(ctx)
	if err != nil {
		return err
	}
	if amount.GreaterThan(appBalance) {
		return &InsufficientFundsError{Custodial: true}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	applied, err := uow.UserRepository().TryDeductBalance(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to reserve withdrawal: %w", err)
	}
	if !applied {
		user, err := uow.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		needed := amount
		if user != nil {
			needed = amount.Sub(user.Balance)
		}
		return &InsufficientFundsError{Shortfalls: []Shortfall{{UserID: userID, Needed: needed}}}
	}

	withdrawal := &models.Withdrawal{
		UserID: userID,
		Amount: amount,
		Asset:  s.cfg.Asset,
	}
	if err := uow.WithdrawalRepository().Create(ctx, withdrawal); err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	spendID := models.SpendID(withdrawal.ID)

	transfer, transferErr := s.gateway.Transfer(ctx, userID, amount, s.cfg.Asset, spendID)
	if transferErr != nil {
		log.WithFields(log.Fields{
			"userID":       userID,
			"withdrawalID": withdrawal.ID,
			"amount":       amount,
			"spendID":      spendID,
			"error":        transferErr,
		}).Error("Withdrawal transfer failed, refunding reservation")

		if err := s.refundFailedWithdrawal(ctx, withdrawal, spendID, transferErr); err != nil {
			return err
		}
		return &TransferError{WithdrawalID: withdrawal.ID, Err: transferErr}
	}

	uow = s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry := &models.LedgerEntry{
		UserID: userID,
		Amount: amount.Neg(),
		Reason: models.LedgerReasonWithdraw,
	}
	if err := uow.LedgerRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record withdrawal: %w", err)
	}
	if _, err := uow.WithdrawalRepository().MarkApproved(ctx, withdrawal.ID, transfer.ID, spendID); err != nil {
		return err
	}

	uow.EventBus().Publish(events.WithdrawalSettledEvent{
		UserID:       userID,
		WithdrawalID: withdrawal.ID,
		Amount:       amount,
		Status:       models.WithdrawalStatusApproved,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// refundFailedWithdrawal restores the reserved balance after a failed
// transfer; funds are back before the error surfaces to the caller
func (s *escrowService) refundFailedWithdrawal(ctx context.Context, withdrawal *models.Withdrawal, spendID string, transferErr error) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.UserRepository().AddBalance(ctx, withdrawal.UserID, withdrawal.Amount); err != nil {
		return fmt.Errorf("failed to restore reserved balance: %w", err)
	}
	entry := &models.LedgerEntry{
		UserID: withdrawal.UserID,
		Amount: withdrawal.Amount,
		Reason: models.LedgerReasonWithdrawRefund,
	}
	if err := uow.LedgerRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record withdrawal refund: %w", err)
	}
	if _, err := uow.WithdrawalRepository().MarkFailed(ctx, withdrawal.ID, spendID, transferErr.Error()); err != nil {
		return err
	}

	uow.EventBus().Publish(events.WithdrawalSettledEvent{
		UserID:       withdrawal.UserID,
		WithdrawalID: withdrawal.ID,
		Amount:       withdrawal.Amount,
		Status:       models.WithdrawalStatusFailed,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RefundApprovedWithdrawal reverses an approved withdrawal. Operator only.
func (s *escrowService) RefundApprovedWithdrawal(ctx context.Context, actorID, withdrawalID int64) error {
	if actorID != s.cfg.AdminID {
		return ErrNotAuthorized
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawal, err := uow.WithdrawalRepository().GetByID(ctx, withdrawalID)
	if err != nil {
		return err
	}
	if withdrawal == nil {
		return &ValidationError{Reason: fmt.Sprintf("withdrawal %d not found", withdrawalID)}
	}

	applied, err := uow.WithdrawalRepository().MarkRefunded(ctx, withdrawalID)
	if err != nil {
		return err
	}
	if !applied {
		return &ValidationError{Reason: fmt.Sprintf("withdrawal %d is not approved", withdrawalID)}
	}

	if err := uow.UserRepository().AddBalance(ctx, withdrawal.UserID, withdrawal.Amount); err != nil {
		return fmt.Errorf("failed to restore withdrawn balance: %w", err)
	}
	entry := &models.LedgerEntry{
		UserID: withdrawal.UserID,
		Amount: withdrawal.Amount,
		Reason: models.LedgerReasonWithdrawRefund,
	}
	if err := uow.LedgerRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record withdrawal reversal: %w", err)
	}

	uow.EventBus().Publish(events.WithdrawalSettledEvent{
		UserID:       withdrawal.UserID,
		WithdrawalID: withdrawal.ID,
		Amount:       withdrawal.Amount,
		Status:       models.WithdrawalStatusRefunded,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBalance returns a user's current balance
func (s *escrowService) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if user == nil {
		return decimal.Zero, nil
	}
	return user.Balance, nil
}

// GetAppBalance totals the custodial balance for the settlement asset,
// available plus on-hold
func (s *escrowService) GetAppBalance(ctx context.Context) (decimal.Decimal, error) {
	balances, err := s.gateway.GetBalance(ctx)
	if err != nil {
		return decimal.Zero, &GatewayError{Op: "getBalance", Err: err}
	}

	total := decimal.Zero
	for _, b := range balances {
		if b.Currency == s.cfg.Asset {
			total = total.Add(b.Available).Add(b.OnHold)
		}
	}
	return total, nil
}
