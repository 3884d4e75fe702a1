package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameStatus represents the lifecycle state of a duel
type GameStatus string

const (
	GameStatusPending   GameStatus = "pending"
	GameStatusActive    GameStatus = "active"
	GameStatusFinished  GameStatus = "finished"
	GameStatusCancelled GameStatus = "cancelled"
)

// GameType distinguishes free duels from staked ones
type GameType string

const (
	GameTypeFree GameType = "free"
	GameTypePaid GameType = "paid"
)

// FinishReason records why a duel finished
type FinishReason string

const (
	FinishReasonWin       FinishReason = "win"
	FinishReasonTimeout   FinishReason = "timeout"
	FinishReasonIntegrity FinishReason = "integrity_violation"
)

// Game represents one dice duel between two players
type Game struct {
	ID                int64           `db:"id"`
	ChatID            int64           `db:"chat_id"`
	Player1ID         int64           `db:"player1_id"`
	Player2ID         int64           `db:"player2_id"`
	Type              GameType        `db:"type"`
	Bet               decimal.Decimal `db:"bet"`
	RoundsToWin       int             `db:"rounds_to_win"`
	Player1Score      int             `db:"player1_score"`
	Player2Score      int             `db:"player2_score"`
	CurrentTurnUserID *int64          `db:"current_turn_user_id"`
	LastRollUserID    *int64          `db:"last_roll_user_id"`
	LastRollValue     *int            `db:"last_roll_value"`
	Status            GameStatus      `db:"status"`
	FundsLocked       bool            `db:"funds_locked"`
	CreatedAt         time.Time       `db:"created_at"`
	TurnDeadline      *time.Time      `db:"turn_deadline"`
}

// IsParticipant checks whether a user is one of the two players
func (g *Game) IsParticipant(userID int64) bool {
	return g.Player1ID == userID || g.Player2ID == userID
}

// Opponent returns the other player's ID, or 0 for a non-participant
func (g *Game) Opponent(userID int64) int64 {
	if g.Player1ID == userID {
		return g.Player2ID
	}
	if g.Player2ID == userID {
		return g.Player1ID
	}
	return 0
}

// IsStaked reports whether the duel carries a monetary stake
func (g *Game) IsStaked() bool {
	return g.Type == GameTypePaid && g.Bet.IsPositive()
}

// Decided reports whether either player has reached the round threshold
func (g *Game) Decided() bool {
	return g.Player1Score >= g.RoundsToWin || g.Player2Score >= g.RoundsToWin
}

// Leader returns the player with the higher score, player1 on equal scores
func (g *Game) Leader() int64 {
	if g.Player2Score > g.Player1Score {
		return g.Player2ID
	}
	return g.Player1ID
}
