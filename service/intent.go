package service

import (
	"context"
	"fmt"

	"diceduel/models"

	"github.com/shopspring/decimal"
)

// Intent is one user action decoded at the transport boundary. The transport
// translates raw chat events into exactly one Intent value; the engine
// matches the union exhaustively.
type Intent interface {
	isIntent()
}

// StartChallengeIntent opens a challenge wizard against an opponent
type StartChallengeIntent struct {
	UserID           int64
	OpponentID       int64
	OpponentUsername string
}

// SelectTypeIntent picks free or staked play in the wizard
type SelectTypeIntent struct {
	UserID int64
	Type   models.GameType
}

// SelectBetIntent picks the stake amount in the wizard
type SelectBetIntent struct {
	UserID int64
	Bet    decimal.Decimal
}

// SelectRoundsIntent picks the rounds-to-win threshold in the wizard
type SelectRoundsIntent struct {
	UserID      int64
	RoundsToWin int
}

// SendChallengeIntent finalizes the wizard into a pending duel
type SendChallengeIntent struct {
	ChatID int64
	UserID int64
}

// CancelDraftIntent discards the wizard state
type CancelDraftIntent struct {
	UserID int64
}

// AcceptIntent accepts a pending duel
type AcceptIntent struct {
	GameID int64
	UserID int64
}

// DeclineIntent declines a pending duel
type DeclineIntent struct {
	GameID int64
	UserID int64
}

// CancelIntent cancels a pending or active duel
type CancelIntent struct {
	GameID int64
	UserID int64
}

// RollIntent delivers one dice value for the user's active duel
type RollIntent struct {
	ChatID int64
	UserID int64
	Value  int
}

// RollEditedIntent reports a revised roll event
type RollEditedIntent struct {
	ChatID int64
	UserID int64
}

// RematchVoteIntent casts one rematch vote on a finished duel
type RematchVoteIntent struct {
	GameID int64
	UserID int64
}

func (StartChallengeIntent) isIntent() {}
func (SelectTypeIntent) isIntent()     {}
func (SelectBetIntent) isIntent()      {}
func (SelectRoundsIntent) isIntent()   {}
func (SendChallengeIntent) isIntent()  {}
func (CancelDraftIntent) isIntent()    {}
func (AcceptIntent) isIntent()         {}
func (DeclineIntent) isIntent()        {}
func (CancelIntent) isIntent()         {}
func (RollIntent) isIntent()           {}
func (RollEditedIntent) isIntent()     {}
func (RematchVoteIntent) isIntent()    {}

// Dispatcher routes decoded intents to the duel engine
type Dispatcher struct {
	games GameService
}

// NewDispatcher creates a new intent dispatcher
func NewDispatcher(games GameService) *Dispatcher {
	return &Dispatcher{games: games}
}

// Dispatch matches the intent union exhaustively. An unknown intent type is
// a programming error, not a user error.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) error {
	switch in := intent.(type) {
	case StartChallengeIntent:
		d.games.StartDraft(in.UserID, in.OpponentUsername, in.OpponentID)
		return nil

	case SelectTypeIntent:
		_, err := d.games.UpdateDraft(in.UserID, DraftUpdate{Type: &in.Type})
		return err

	case SelectBetIntent:
		_, err := d.games.UpdateDraft(in.UserID, DraftUpdate{Bet: &in.Bet})
		return err

	case SelectRoundsIntent:
		_, err := d.games.UpdateDraft(in.UserID, DraftUpdate{RoundsToWin: &in.RoundsToWin})
		return err

	case SendChallengeIntent:
		draft := d.games.GetDraft(in.UserID)
		if draft == nil {
			return &ValidationError{Reason: "no challenge in progress"}
		}
		_, err := d.games.CreateChallenge(ctx, in.ChatID, in.UserID, draft.OpponentID)
		return err

	case CancelDraftIntent:
		d.games.ClearDraft(in.UserID)
		return nil

	case AcceptIntent:
		_, err := d.games.Accept(ctx, in.GameID, in.UserID)
		return err

	case DeclineIntent:
		return d.games.Decline(ctx, in.GameID, in.UserID)

	case CancelIntent:
		return d.games.Cancel(ctx, in.GameID, in.UserID)

	case RollIntent:
		_, err := d.games.Roll(ctx, in.ChatID, in.UserID, in.Value)
		return err

	case RollEditedIntent:
		return d.games.HandleEditedRoll(ctx, in.ChatID, in.UserID)

	case RematchVoteIntent:
		_, err := d.games.RematchVote(ctx, in.GameID, in.UserID)
		return err

	default:
		return fmt.Errorf("unhandled intent type %T", intent)
	}
}
