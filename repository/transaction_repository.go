package repository

import (
	"context"
	"fmt"

	"diceduel/database"
	"diceduel/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements the service.TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository bound to a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create persists a new pending deposit transaction
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, amount, currency, invoice_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Amount,
		tx.Currency,
		tx.InvoiceID,
		models.TxStatusPending,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction for user %d: %w", tx.UserID, err)
	}
	tx.Status = models.TxStatusPending

	return nil
}

// GetByInvoiceID retrieves a transaction by external invoice id
func (r *TransactionRepository) GetByInvoiceID(ctx context.Context, invoiceID int64) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.q.QueryRow(ctx,
		`SELECT id, user_id, amount, currency, invoice_id, status, created_at
		 FROM transactions WHERE invoice_id = $1`, invoiceID).Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &tx.Currency, &tx.InvoiceID, &tx.Status, &tx.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by invoice %d: %w", invoiceID, err)
	}
	return &tx, nil
}

// GetPendingByUser returns the user's unreconciled deposits
func (r *TransactionRepository) GetPendingByUser(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, user_id, amount, currency, invoice_id, status, created_at
		 FROM transactions WHERE user_id = $1 AND status = 'pending' ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Currency, &tx.InvoiceID, &tx.Status, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// MarkPaid transitions pending -> paid. Zero rows affected means another
// reconciliation already credited this deposit.
func (r *TransactionRepository) MarkPaid(ctx context.Context, txID int64) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE transactions SET status = 'paid' WHERE id = $1 AND status = 'pending'`, txID)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction %d paid: %w", txID, err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkExpired transitions pending -> expired
func (r *TransactionRepository) MarkExpired(ctx context.Context, txID int64) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE transactions SET status = 'expired' WHERE id = $1 AND status = 'pending'`, txID)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction %d expired: %w", txID, err)
	}
	return result.RowsAffected() == 1, nil
}

// SumPaid totals all credited deposits
func (r *TransactionRepository) SumPaid(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE status = 'paid'`).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum paid transactions: %w", err)
	}
	return sum, nil
}
