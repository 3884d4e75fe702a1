package repository

import (
	"context"
	"fmt"

	"diceduel/database"
	"diceduel/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements the service.LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository bound to a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record appends a ledger entry. Entries are never updated or deleted.
func (r *LedgerRepository) Record(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (user_id, amount, reason, game_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.UserID,
		entry.Amount,
		entry.Reason,
		entry.GameID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry for user %d: %w", entry.UserID, err)
	}

	return nil
}

// RecordCommission appends a commission entry
func (r *LedgerRepository) RecordCommission(ctx context.Context, entry *models.CommissionEntry) error {
	query := `
		INSERT INTO commission_entries (user_id, game_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.UserID,
		entry.GameID,
		entry.Amount,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record commission entry for user %d: %w", entry.UserID, err)
	}

	return nil
}

// GetByGame returns all ledger entries referencing a duel
func (r *LedgerRepository) GetByGame(ctx context.Context, gameID int64) ([]*models.LedgerEntry, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, user_id, amount, reason, game_id, created_at
		 FROM ledger_entries WHERE game_id = $1 ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for game %d: %w", gameID, err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

// SumByUser reconciles the audit trail against the balance
func (r *LedgerRepository) SumByUser(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1`, userID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries for user %d: %w", userID, err)
	}
	return sum, nil
}

// GetRecent returns the newest entries for operator review
func (r *LedgerRepository) GetRecent(ctx context.Context, limit int) ([]*models.LedgerEntry, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, user_id, amount, reason, game_id, created_at
		 FROM ledger_entries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent ledger entries: %w", err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

func scanLedgerEntries(rows pgx.Rows) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.GameID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}
