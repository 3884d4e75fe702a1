package service

import (
	"testing"

	"diceduel/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGameService_Draft_WizardFlow(t *testing.T) {
	_, _, _, _, _, svc := newGameServiceFixture()

	draft := svc.StartDraft(1, "opponent", 2)
	assert.Equal(t, models.GameTypeFree, draft.Type)
	assert.Equal(t, defaultRoundsToWin, draft.RoundsToWin)

	paid := models.GameTypePaid
	bet := decimal.NewFromInt(25)
	rounds := 3

	draft, err := svc.UpdateDraft(1, DraftUpdate{Type: &paid})
	assert.NoError(t, err)
	assert.Equal(t, models.GameTypePaid, draft.Type)

	draft, err = svc.UpdateDraft(1, DraftUpdate{Bet: &bet, RoundsToWin: &rounds})
	assert.NoError(t, err)
	assert.True(t, draft.Bet.Equal(bet))
	assert.Equal(t, 3, draft.RoundsToWin)

	svc.ClearDraft(1)
	assert.Nil(t, svc.GetDraft(1))
}

func TestGameService_Draft_ReplacedOnNewStart(t *testing.T) {
	_, _, _, _, _, svc := newGameServiceFixture()

	paid := models.GameTypePaid
	svc.StartDraft(1, "first", 2)
	_, err := svc.UpdateDraft(1, DraftUpdate{Type: &paid})
	assert.NoError(t, err)

	draft := svc.StartDraft(1, "second", 3)
	assert.Equal(t, int64(3), draft.OpponentID)
	assert.Equal(t, models.GameTypeFree, draft.Type)
}

func TestGameService_Draft_BetOutOfBounds(t *testing.T) {
	_, _, _, _, _, svc := newGameServiceFixture()

	svc.StartDraft(1, "opponent", 2)

	tooHigh := decimal.NewFromInt(5000)
	_, err := svc.UpdateDraft(1, DraftUpdate{Bet: &tooHigh})

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)

	tooLow := decimal.NewFromFloat(0.5)
	_, err = svc.UpdateDraft(1, DraftUpdate{Bet: &tooLow})
	assert.ErrorAs(t, err, &validationErr)
}

func TestGameService_Draft_UpdateWithoutStart(t *testing.T) {
	_, _, _, _, _, svc := newGameServiceFixture()

	rounds := 3
	_, err := svc.UpdateDraft(1, DraftUpdate{RoundsToWin: &rounds})

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestGameService_Draft_PerUserIsolation(t *testing.T) {
	_, _, _, _, _, svc := newGameServiceFixture()

	svc.StartDraft(1, "alpha", 10)
	svc.StartDraft(2, "beta", 20)

	assert.Equal(t, int64(10), svc.GetDraft(1).OpponentID)
	assert.Equal(t, int64(20), svc.GetDraft(2).OpponentID)

	svc.ClearDraft(1)
	assert.Nil(t, svc.GetDraft(1))
	assert.NotNil(t, svc.GetDraft(2))
}
