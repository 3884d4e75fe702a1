package testutil

import (
	"diceduel/models"

	"github.com/shopspring/decimal"
)

// CreateTestUser returns a user with a zero balance
func CreateTestUser(userID int64, username string) *models.User {
	return &models.User{
		ID:       userID,
		Username: username,
		Balance:  decimal.Zero,
	}
}

// CreateTestGame returns a pending free duel between two players
func CreateTestGame(chatID, player1ID, player2ID int64) *models.Game {
	return &models.Game{
		ChatID:      chatID,
		Player1ID:   player1ID,
		Player2ID:   player2ID,
		Type:        models.GameTypeFree,
		Bet:         decimal.Zero,
		RoundsToWin: 2,
		Status:      models.GameStatusPending,
	}
}

// CreateTestStakedGame returns a pending staked duel
func CreateTestStakedGame(chatID, player1ID, player2ID int64, bet int64) *models.Game {
	game := CreateTestGame(chatID, player1ID, player2ID)
	game.Type = models.GameTypePaid
	game.Bet = decimal.NewFromInt(bet)
	return game
}

// CreateTestLedgerEntry returns a ledger entry for a user
func CreateTestLedgerEntry(userID int64, amount int64, reason models.LedgerReason) *models.LedgerEntry {
	return &models.LedgerEntry{
		UserID: userID,
		Amount: decimal.NewFromInt(amount),
		Reason: reason,
	}
}
