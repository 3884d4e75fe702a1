package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerReason tags the cause of a balance change
type LedgerReason string

const (
	LedgerReasonBetLock        LedgerReason = "bet_lock"
	LedgerReasonRefund         LedgerReason = "refund"
	LedgerReasonPayout         LedgerReason = "payout"
	LedgerReasonDeposit        LedgerReason = "deposit"
	LedgerReasonWithdraw       LedgerReason = "withdraw"
	LedgerReasonWithdrawRefund LedgerReason = "withdraw_refund"
)

// LedgerEntry is an append-only record of a signed balance change.
// The sum of a user's entries must always equal their current balance.
type LedgerEntry struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	Amount    decimal.Decimal `db:"amount"`
	Reason    LedgerReason    `db:"reason"`
	GameID    *int64          `db:"game_id"`
	CreatedAt time.Time       `db:"created_at"`
}

// CommissionEntry attributes a duel's commission share to a participant,
// feeding referral-reward reporting
type CommissionEntry struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	GameID    int64           `db:"game_id"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
}
