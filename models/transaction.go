package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus represents the state of a deposit transaction
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusPaid      TxStatus = "paid"
	TxStatusExpired   TxStatus = "expired"
	TxStatusCancelled TxStatus = "cancelled"
)

// Transaction represents a deposit intent backed by an external invoice
type Transaction struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	Amount    decimal.Decimal `db:"amount"`
	Currency  string          `db:"currency"`
	InvoiceID int64           `db:"invoice_id"`
	Status    TxStatus        `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
}
