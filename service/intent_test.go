package service

import (
	"context"
	"testing"

	"diceduel/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestDispatcher_RoutesIntents(t *testing.T) {
	ctx := context.Background()
	mockGames := new(MockGameService)
	dispatcher := NewDispatcher(mockGames)

	draft := &Draft{UserID: 1, OpponentID: 2}

	mockGames.On("StartDraft", int64(1), "opponent", int64(2)).Return(draft)
	assert.NoError(t, dispatcher.Dispatch(ctx, StartChallengeIntent{
		UserID: 1, OpponentID: 2, OpponentUsername: "opponent",
	}))

	paid := models.GameTypePaid
	mockGames.On("UpdateDraft", int64(1), mock.MatchedBy(func(u DraftUpdate) bool {
		return u.Type != nil && *u.Type == paid
	})).Return(draft, nil)
	assert.NoError(t, dispatcher.Dispatch(ctx, SelectTypeIntent{UserID: 1, Type: paid}))

	bet := decimal.NewFromInt(10)
	mockGames.On("UpdateDraft", int64(1), mock.MatchedBy(func(u DraftUpdate) bool {
		return u.Bet != nil && u.Bet.Equal(bet)
	})).Return(draft, nil)
	assert.NoError(t, dispatcher.Dispatch(ctx, SelectBetIntent{UserID: 1, Bet: bet}))

	mockGames.On("GetDraft", int64(1)).Return(draft)
	mockGames.On("CreateChallenge", ctx, int64(100), int64(1), int64(2)).
		Return(&models.Game{ID: 7}, nil)
	assert.NoError(t, dispatcher.Dispatch(ctx, SendChallengeIntent{ChatID: 100, UserID: 1}))

	mockGames.On("Accept", ctx, int64(7), int64(2)).Return(&models.Game{ID: 7}, nil)
	assert.NoError(t, dispatcher.Dispatch(ctx, AcceptIntent{GameID: 7, UserID: 2}))

	mockGames.On("Roll", ctx, int64(100), int64(1), 4).Return(&RollOutcome{}, nil)
	assert.NoError(t, dispatcher.Dispatch(ctx, RollIntent{ChatID: 100, UserID: 1, Value: 4}))

	mockGames.On("HandleEditedRoll", ctx, int64(100), int64(1)).Return(nil)
	assert.NoError(t, dispatcher.Dispatch(ctx, RollEditedIntent{ChatID: 100, UserID: 1}))

	mockGames.On("Cancel", ctx, int64(7), int64(1)).Return(nil)
	assert.NoError(t, dispatcher.Dispatch(ctx, CancelIntent{GameID: 7, UserID: 1}))

	mockGames.On("RematchVote", ctx, int64(7), int64(1)).Return(nil, nil)
	assert.NoError(t, dispatcher.Dispatch(ctx, RematchVoteIntent{GameID: 7, UserID: 1}))

	mockGames.AssertExpectations(t)
}

func TestDispatcher_SendWithoutDraft(t *testing.T) {
	ctx := context.Background()
	mockGames := new(MockGameService)
	dispatcher := NewDispatcher(mockGames)

	mockGames.On("GetDraft", int64(1)).Return(nil)

	err := dispatcher.Dispatch(ctx, SendChallengeIntent{ChatID: 100, UserID: 1})

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	mockGames.AssertNotCalled(t, "CreateChallenge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
