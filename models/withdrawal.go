package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents the state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
	WithdrawalStatusFailed   WithdrawalStatus = "failed"
	WithdrawalStatusRefunded WithdrawalStatus = "refunded"
)

// Withdrawal represents an outbound transfer of a user's balance
type Withdrawal struct {
	ID          int64            `db:"id"`
	UserID      int64            `db:"user_id"`
	Amount      decimal.Decimal  `db:"amount"`
	Asset       string           `db:"asset"`
	SpendID     *string          `db:"spend_id"`
	TransferID  *int64           `db:"transfer_id"`
	Error       *string          `db:"error"`
	Status      WithdrawalStatus `db:"status"`
	CreatedAt   time.Time        `db:"created_at"`
	ProcessedAt *time.Time       `db:"processed_at"`
}

// SpendID derives the idempotency token for a withdrawal from its own
// identifier, so a retried transfer can never execute twice
func SpendID(withdrawalID int64) string {
	return fmt.Sprintf("wd:%d", withdrawalID)
}
