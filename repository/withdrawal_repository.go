package repository

import (
	"context"
	"fmt"

	"diceduel/database"
	"diceduel/models"

	"github.com/jackc/pgx/v5"
)

// WithdrawalRepository implements the service.WithdrawalRepository interface
type WithdrawalRepository struct {
	q queryable
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db.Pool}
}

// newWithdrawalRepositoryWithTx creates a new withdrawal repository bound to a transaction
func newWithdrawalRepositoryWithTx(tx queryable) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `
	id, user_id, amount, asset, spend_id, transfer_id, error, status, created_at, processed_at
`

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Amount,
		&w.Asset,
		&w.SpendID,
		&w.TransferID,
		&w.Error,
		&w.Status,
		&w.CreatedAt,
		&w.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create persists a new pending withdrawal
func (r *WithdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (user_id, amount, asset, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		w.UserID,
		w.Amount,
		w.Asset,
		models.WithdrawalStatusPending,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal for user %d: %w", w.UserID, err)
	}
	w.Status = models.WithdrawalStatusPending

	return nil
}

// GetByID retrieves a withdrawal by ID
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.Withdrawal, error) {
	w, err := scanWithdrawal(r.q.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal %d: %w", id, err)
	}
	return w, nil
}

// MarkApproved transitions pending -> approved with the transfer reference
func (r *WithdrawalRepository) MarkApproved(ctx context.Context, id int64, transferID int64, spendID string) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE withdrawals
		 SET status = 'approved', transfer_id = $2, spend_id = $3, processed_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		id, transferID, spendID)
	if err != nil {
		return false, fmt.Errorf("failed to approve withdrawal %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkFailed transitions pending -> failed with the error detail
func (r *WithdrawalRepository) MarkFailed(ctx context.Context, id int64, spendID, errDetail string) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE withdrawals
		 SET status = 'failed', spend_id = $2, error = $3, processed_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		id, spendID, errDetail)
	if err != nil {
		return false, fmt.Errorf("failed to mark withdrawal %d failed: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkRefunded transitions approved -> refunded
func (r *WithdrawalRepository) MarkRefunded(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE withdrawals SET status = 'refunded', processed_at = NOW()
		 WHERE id = $1 AND status = 'approved'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to refund withdrawal %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// ListRecent returns the newest withdrawals for operator review
func (r *WithdrawalRepository) ListRecent(ctx context.Context, limit int) ([]*models.Withdrawal, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawals: %w", err)
	}

	return withdrawals, nil
}
