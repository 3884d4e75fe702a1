package repository

import (
	"context"
	"testing"
	"time"

	"diceduel/models"
	"diceduel/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPlayers(t *testing.T, users *UserRepository, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		_, err := users.GetOrCreate(ctx, id, "player", nil)
		require.NoError(t, err)
	}
}

func TestGameRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	repo := NewGameRepository(testDB.DB)
	ctx := context.Background()

	createPlayers(t, users, 1, 2)

	game := testutil.CreateTestStakedGame(100, 1, 2, 10)
	require.NoError(t, repo.Create(ctx, game))
	require.NotZero(t, game.ID)

	t.Run("activate applies once", func(t *testing.T) {
		deadline := time.Now().Add(30 * time.Second)

		applied, err := repo.Activate(ctx, game.ID, 1, deadline)
		require.NoError(t, err)
		assert.True(t, applied)

		// The racing second accept matches zero rows
		applied, err = repo.Activate(ctx, game.ID, 1, deadline)
		require.NoError(t, err)
		assert.False(t, applied)

		loaded, err := repo.GetByID(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, models.GameStatusActive, loaded.Status)
		require.NotNil(t, loaded.CurrentTurnUserID)
		assert.Equal(t, int64(1), *loaded.CurrentTurnUserID)
		assert.NotNil(t, loaded.TurnDeadline)
	})

	t.Run("roll state round trip", func(t *testing.T) {
		loaded, err := repo.GetByID(ctx, game.ID)
		require.NoError(t, err)

		roller := int64(1)
		value := 4
		turn := int64(2)
		deadline := time.Now().Add(30 * time.Second)
		loaded.LastRollUserID = &roller
		loaded.LastRollValue = &value
		loaded.CurrentTurnUserID = &turn
		loaded.TurnDeadline = &deadline
		loaded.Player1Score = 1

		require.NoError(t, repo.UpdateRollState(ctx, loaded))

		reloaded, err := repo.GetByID(ctx, game.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.LastRollUserID)
		assert.Equal(t, int64(1), *reloaded.LastRollUserID)
		assert.Equal(t, 4, *reloaded.LastRollValue)
		assert.Equal(t, int64(2), *reloaded.CurrentTurnUserID)
		assert.Equal(t, 1, reloaded.Player1Score)
	})

	t.Run("funds lock flips once", func(t *testing.T) {
		applied, err := repo.LockFunds(ctx, game.ID)
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = repo.LockFunds(ctx, game.ID)
		require.NoError(t, err)
		assert.False(t, applied)

		applied, err = repo.UnlockFunds(ctx, game.ID)
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = repo.UnlockFunds(ctx, game.ID)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("finish applies once", func(t *testing.T) {
		applied, err := repo.Finish(ctx, game.ID)
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = repo.Finish(ctx, game.ID)
		require.NoError(t, err)
		assert.False(t, applied)

		loaded, err := repo.GetByID(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, models.GameStatusFinished, loaded.Status)
		assert.Nil(t, loaded.TurnDeadline)
	})

	t.Run("no transition leaves finished", func(t *testing.T) {
		applied, err := repo.Cancel(ctx, game.ID)
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func TestGameRepository_Cancel(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	repo := NewGameRepository(testDB.DB)
	ctx := context.Background()

	createPlayers(t, users, 1, 2)

	game := testutil.CreateTestGame(100, 1, 2)
	require.NoError(t, repo.Create(ctx, game))

	applied, err := repo.Cancel(ctx, game.ID)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Cancel(ctx, game.ID)
	require.NoError(t, err)
	assert.False(t, applied)

	loaded, err := repo.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCancelled, loaded.Status)
}

func TestGameRepository_ActiveLookups(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	repo := NewGameRepository(testDB.DB)
	ctx := context.Background()

	createPlayers(t, users, 1, 2, 3)

	pending := testutil.CreateTestGame(100, 1, 2)
	require.NoError(t, repo.Create(ctx, pending))

	active := testutil.CreateTestGame(200, 1, 3)
	require.NoError(t, repo.Create(ctx, active))
	_, err := repo.Activate(ctx, active.ID, 1, time.Now().Add(30*time.Second))
	require.NoError(t, err)

	t.Run("active by user counts pending and active", func(t *testing.T) {
		games, err := repo.GetActiveByUser(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, games, 2)

		games, err = repo.GetActiveByUser(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, games, 1)
	})

	t.Run("active by chat and user", func(t *testing.T) {
		game, err := repo.GetActiveByChatAndUser(ctx, 200, 1)
		require.NoError(t, err)
		require.NotNil(t, game)
		assert.Equal(t, active.ID, game.ID)

		// Pending duels do not take rolls
		game, err = repo.GetActiveByChatAndUser(ctx, 100, 1)
		require.NoError(t, err)
		assert.Nil(t, game)
	})
}

func TestGameRepository_GetExpired(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	repo := NewGameRepository(testDB.DB)
	ctx := context.Background()

	createPlayers(t, users, 1, 2, 3, 4)

	expired := testutil.CreateTestGame(100, 1, 2)
	require.NoError(t, repo.Create(ctx, expired))
	_, err := repo.Activate(ctx, expired.ID, 1, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	fresh := testutil.CreateTestGame(200, 3, 4)
	require.NoError(t, repo.Create(ctx, fresh))
	_, err = repo.Activate(ctx, fresh.ID, 3, time.Now().Add(time.Hour))
	require.NoError(t, err)

	games, err := repo.GetExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, expired.ID, games[0].ID)
}
