package repository

import (
	"context"
	"fmt"
	"time"

	"diceduel/database"
	"diceduel/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const gameColumns = `
	id, chat_id, player1_id, player2_id, type, bet, rounds_to_win,
	player1_score, player2_score, current_turn_user_id,
	last_roll_user_id, last_roll_value, status, funds_locked,
	created_at, turn_deadline
`

// GameRepository implements the service.GameRepository interface
type GameRepository struct {
	q queryable
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{q: db.Pool}
}

// newGameRepositoryWithTx creates a new game repository bound to a transaction
func newGameRepositoryWithTx(tx queryable) *GameRepository {
	return &GameRepository{q: tx}
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var game models.Game
	err := row.Scan(
		&game.ID,
		&game.ChatID,
		&game.Player1ID,
		&game.Player2ID,
		&game.Type,
		&game.Bet,
		&game.RoundsToWin,
		&game.Player1Score,
		&game.Player2Score,
		&game.CurrentTurnUserID,
		&game.LastRollUserID,
		&game.LastRollValue,
		&game.Status,
		&game.FundsLocked,
		&game.CreatedAt,
		&game.TurnDeadline,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *GameRepository) queryGames(ctx context.Context, query string, args ...any) ([]*models.Game, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	return games, nil
}

// Create persists a new pending duel
func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (chat_id, player1_id, player2_id, type, bet, rounds_to_win, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		game.ChatID,
		game.Player1ID,
		game.Player2ID,
		game.Type,
		game.Bet,
		game.RoundsToWin,
		models.GameStatusPending,
	).Scan(&game.ID, &game.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	game.Status = models.GameStatusPending

	return nil
}

// GetByID retrieves a duel by ID
func (r *GameRepository) GetByID(ctx context.Context, gameID int64) (*models.Game, error) {
	game, err := scanGame(r.q.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, gameID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", gameID, err)
	}
	return game, nil
}

// GetActiveByUser returns pending and active duels involving the user
func (r *GameRepository) GetActiveByUser(ctx context.Context, userID int64) ([]*models.Game, error) {
	games, err := r.queryGames(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE status IN ('pending', 'active') AND (player1_id = $1 OR player2_id = $1)
		 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active games for user %d: %w", userID, err)
	}
	return games, nil
}

// GetActiveByChatAndUser returns the user's active duel in a chat, nil if none
func (r *GameRepository) GetActiveByChatAndUser(ctx context.Context, chatID, userID int64) (*models.Game, error) {
	game, err := scanGame(r.q.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE chat_id = $1 AND status = 'active' AND (player1_id = $2 OR player2_id = $2)
		 ORDER BY id LIMIT 1`, chatID, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active game for user %d in chat %d: %w", userID, chatID, err)
	}
	return game, nil
}

// GetExpired returns active duels whose turn deadline has elapsed
func (r *GameRepository) GetExpired(ctx context.Context, now time.Time) ([]*models.Game, error) {
	games, err := r.queryGames(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE status = 'active' AND turn_deadline IS NOT NULL AND turn_deadline <= $1
		 ORDER BY turn_deadline`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired games: %w", err)
	}
	return games, nil
}

// Activate transitions pending -> active. The status guard makes a
// double-accept apply at most once.
func (r *GameRepository) Activate(ctx context.Context, gameID, firstTurnUserID int64, deadline time.Time) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE games
		 SET status = 'active', current_turn_user_id = $2, turn_deadline = $3
		 WHERE id = $1 AND status = 'pending'`,
		gameID, firstTurnUserID, deadline)
	if err != nil {
		return false, fmt.Errorf("failed to activate game %d: %w", gameID, err)
	}
	return result.RowsAffected() == 1, nil
}

// UpdateRollState persists scores, turn holder, provisional roll and deadline
func (r *GameRepository) UpdateRollState(ctx context.Context, game *models.Game) error {
	result, err := r.q.Exec(ctx,
		`UPDATE games
		 SET player1_score = $2, player2_score = $3, current_turn_user_id = $4,
		     last_roll_user_id = $5, last_roll_value = $6, turn_deadline = $7
		 WHERE id = $1 AND status = 'active'`,
		game.ID,
		game.Player1Score,
		game.Player2Score,
		game.CurrentTurnUserID,
		game.LastRollUserID,
		game.LastRollValue,
		game.TurnDeadline)
	if err != nil {
		return fmt.Errorf("failed to update roll state for game %d: %w", game.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("game %d is not active", game.ID)
	}
	return nil
}

// Finish transitions active -> finished. The guard prevents a live roll and
// the timeout supervisor from finishing the same duel twice.
func (r *GameRepository) Finish(ctx context.Context, gameID int64) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE games SET status = 'finished', turn_deadline = NULL
		 WHERE id = $1 AND status = 'active'`, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to finish game %d: %w", gameID, err)
	}
	return result.RowsAffected() == 1, nil
}

// Cancel transitions pending/active -> cancelled
func (r *GameRepository) Cancel(ctx context.Context, gameID int64) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE games SET status = 'cancelled', turn_deadline = NULL
		 WHERE id = $1 AND status IN ('pending', 'active')`, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel game %d: %w", gameID, err)
	}
	return result.RowsAffected() == 1, nil
}

// LockFunds flips funds_locked to true
func (r *GameRepository) LockFunds(ctx context.Context, gameID int64) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE games SET funds_locked = TRUE WHERE id = $1 AND funds_locked = FALSE`, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to lock funds for game %d: %w", gameID, err)
	}
	return result.RowsAffected() == 1, nil
}

// UnlockFunds flips funds_locked to false. The guard makes refund and
// settlement idempotent: only the caller that wins the flip applies ledger
// effects.
func (r *GameRepository) UnlockFunds(ctx context.Context, gameID int64) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE games SET funds_locked = FALSE WHERE id = $1 AND funds_locked = TRUE`, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to unlock funds for game %d: %w", gameID, err)
	}
	return result.RowsAffected() == 1, nil
}

// TotalLockedStakes sums both players' stakes over active duels with locked funds
func (r *GameRepository) TotalLockedStakes(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(bet * 2), 0) FROM games
		 WHERE type = 'paid' AND status = 'active' AND funds_locked = TRUE`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get total locked stakes: %w", err)
	}
	return total, nil
}

// AverageBet returns the mean stake of finished paid duels
func (r *GameRepository) AverageBet(ctx context.Context) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(AVG(bet), 0) FROM games
		 WHERE type = 'paid' AND status = 'finished'`).Scan(&avg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get average bet: %w", err)
	}
	return avg, nil
}
