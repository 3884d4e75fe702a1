package repository

import (
	"context"
	"testing"

	"diceduel/models"
	"diceduel/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_AuditTrail(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	games := NewGameRepository(testDB.DB)
	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	createPlayers(t, users, 1, 2)

	game := testutil.CreateTestStakedGame(100, 1, 2, 10)
	require.NoError(t, games.Create(ctx, game))

	// A cancelled staked duel: lock then refund, per player
	for _, userID := range []int64{1, 2} {
		lock := testutil.CreateTestLedgerEntry(userID, -10, models.LedgerReasonBetLock)
		lock.GameID = &game.ID
		require.NoError(t, repo.Record(ctx, lock))
		assert.NotZero(t, lock.ID)

		refund := testutil.CreateTestLedgerEntry(userID, 10, models.LedgerReasonRefund)
		refund.GameID = &game.ID
		require.NoError(t, repo.Record(ctx, refund))
	}

	t.Run("duel entries net to zero after refund", func(t *testing.T) {
		entries, err := repo.GetByGame(ctx, game.ID)
		require.NoError(t, err)
		require.Len(t, entries, 4)

		total := decimal.Zero
		for _, e := range entries {
			total = total.Add(e.Amount)
		}
		assert.True(t, total.IsZero())
	})

	t.Run("per user sum reconciles", func(t *testing.T) {
		sum, err := repo.SumByUser(ctx, 1)
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})

	t.Run("commission entries per participant", func(t *testing.T) {
		for _, userID := range []int64{1, 2} {
			entry := &models.CommissionEntry{
				UserID: userID,
				GameID: game.ID,
				Amount: decimal.NewFromInt(1),
			}
			require.NoError(t, repo.RecordCommission(ctx, entry))
			assert.NotZero(t, entry.ID)
		}
	})

	t.Run("recent entries newest first", func(t *testing.T) {
		entries, err := repo.GetRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].ID > entries[1].ID)
	})
}
