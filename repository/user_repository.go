package repository

import (
	"context"
	"fmt"

	"diceduel/database"
	"diceduel/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository bound to a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT id, username, referred_by, balance, total_games, wins, losses, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.ReferredBy,
		&user.Balance,
		&user.TotalGames,
		&user.Wins,
		&user.Losses,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}

// GetOrCreate retrieves a user, creating one on first interaction. The
// username is refreshed when it changed; the referrer link is set once.
func (r *UserRepository) GetOrCreate(ctx context.Context, userID int64, username string, referredBy *int64) (*models.User, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// Self-referrals are ignored
		if referredBy != nil && *referredBy == userID {
			referredBy = nil
		}
		query := `
			INSERT INTO users (id, username, referred_by)
			VALUES ($1, $2, $3)
			RETURNING id, username, referred_by, balance, total_games, wins, losses, created_at, updated_at
		`
		user = &models.User{}
		err := r.q.QueryRow(ctx, query, userID, username, referredBy).Scan(
			&user.ID,
			&user.Username,
			&user.ReferredBy,
			&user.Balance,
			&user.TotalGames,
			&user.Wins,
			&user.Losses,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", userID, err)
		}
		return user, nil
	}

	if username != "" && user.Username != username {
		if _, err := r.q.Exec(ctx,
			`UPDATE users SET username = $1, updated_at = NOW() WHERE id = $2`,
			username, userID); err != nil {
			return nil, fmt.Errorf("failed to update username for user %d: %w", userID, err)
		}
		user.Username = username
	}

	// The referrer link is immutable once set
	if referredBy != nil && *referredBy != userID && user.ReferredBy == nil {
		if _, err := r.q.Exec(ctx,
			`UPDATE users SET referred_by = $1, updated_at = NOW() WHERE id = $2 AND referred_by IS NULL`,
			*referredBy, userID); err != nil {
			return nil, fmt.Errorf("failed to set referrer for user %d: %w", userID, err)
		}
		user.ReferredBy = referredBy
	}

	return user, nil
}

// AddBalance credits a user's balance atomically
func (r *UserRepository) AddBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}

	result, err := r.q.Exec(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
		amount, userID)
	if err != nil {
		return fmt.Errorf("failed to add balance for user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", userID)
	}

	return nil
}

// TryDeductBalance debits a user's balance conditioned on sufficiency.
// The WHERE guard is the only concurrency control: zero rows affected means
// the balance was too low at the moment of application.
func (r *UserRepository) TryDeductBalance(ctx context.Context, userID int64, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() {
		return false, fmt.Errorf("amount must be positive")
	}

	result, err := r.q.Exec(ctx,
		`UPDATE users SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1`,
		amount, userID)
	if err != nil {
		return false, fmt.Errorf("failed to deduct balance for user %d: %w", userID, err)
	}

	return result.RowsAffected() == 1, nil
}

// RecordDuelOutcome bumps the cumulative counters for both players
func (r *UserRepository) RecordDuelOutcome(ctx context.Context, winnerID, loserID int64) error {
	if _, err := r.q.Exec(ctx,
		`UPDATE users SET total_games = total_games + 1, updated_at = NOW() WHERE id = ANY($1)`,
		[]int64{winnerID, loserID}); err != nil {
		return fmt.Errorf("failed to increment total games: %w", err)
	}
	if _, err := r.q.Exec(ctx,
		`UPDATE users SET wins = wins + 1 WHERE id = $1`, winnerID); err != nil {
		return fmt.Errorf("failed to increment wins for user %d: %w", winnerID, err)
	}
	if _, err := r.q.Exec(ctx,
		`UPDATE users SET losses = losses + 1 WHERE id = $1`, loserID); err != nil {
		return fmt.Errorf("failed to increment losses for user %d: %w", loserID, err)
	}
	return nil
}

// CountReferred returns how many users were referred by the given user
func (r *UserRepository) CountReferred(ctx context.Context, referrerID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE referred_by = $1`, referrerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count referred users for %d: %w", referrerID, err)
	}
	return count, nil
}

// GetReferralMetrics aggregates referred counts and commission sums per referrer
func (r *UserRepository) GetReferralMetrics(ctx context.Context) ([]*models.ReferralMetric, error) {
	query := `
		SELECT
			referrer.id,
			referrer.username,
			COUNT(DISTINCT referred.id) AS referred_count,
			COALESCE(SUM(c.amount), 0) AS commission_sum
		FROM users referrer
		LEFT JOIN users referred ON referred.referred_by = referrer.id
		LEFT JOIN commission_entries c ON c.user_id = referred.id
		GROUP BY referrer.id, referrer.username
		HAVING COUNT(DISTINCT referred.id) > 0
		ORDER BY COALESCE(SUM(c.amount), 0) DESC, COUNT(DISTINCT referred.id) DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*models.ReferralMetric
	for rows.Next() {
		var m models.ReferralMetric
		if err := rows.Scan(&m.ReferrerID, &m.Username, &m.ReferredCount, &m.CommissionSum); err != nil {
			return nil, fmt.Errorf("failed to scan referral metric: %w", err)
		}
		metrics = append(metrics, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referral metrics: %w", err)
	}

	return metrics, nil
}

// GetSystemTotals returns the sum of all balances and the user count
func (r *UserRepository) GetSystemTotals(ctx context.Context) (decimal.Decimal, int, error) {
	var total decimal.Decimal
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0), COUNT(*) FROM users`).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to get system totals: %w", err)
	}
	return total, count, nil
}
