package service

import (
	"context"
	"fmt"
	"time"

	"diceduel/config"
	"diceduel/events"
	"diceduel/models"

	log "github.com/sirupsen/logrus"
)

const defaultRoundsToWin = 2

type gameService struct {
	uowFactory UnitOfWorkFactory
	escrow     EscrowService
	cfg        *config.Config
	drafts     *draftStore
	votes      *rematchVotes
}

// NewGameService creates a new duel engine
func NewGameService(uowFactory UnitOfWorkFactory, escrow EscrowService, cfg *config.Config) GameService {
	return &gameService{
		uowFactory: uowFactory,
		escrow:     escrow,
		cfg:        cfg,
		drafts:     newDraftStore(),
		votes:      newRematchVotes(),
	}
}

// EnsureUser creates or refreshes a user on first interaction
func (s *gameService) EnsureUser(ctx context.Context, userID int64, username string, referredBy *int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetOrCreate(ctx, userID, username, referredBy)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// StartDraft begins a challenge wizard for the user, replacing any draft
func (s *gameService) StartDraft(userID int64, opponentUsername string, opponentID int64) *Draft {
	draft := &Draft{
		UserID:           userID,
		OpponentID:       opponentID,
		OpponentUsername: opponentUsername,
		Type:             models.GameTypeFree,
		RoundsToWin:      defaultRoundsToWin,
	}
	s.drafts.put(draft)
	return draft
}

// GetDraft returns the user's in-progress draft, nil if none
func (s *gameService) GetDraft(userID int64) *Draft {
	return s.drafts.get(userID)
}

// UpdateDraft applies one wizard selection
func (s *gameService) UpdateDraft(userID int64, update DraftUpdate) (*Draft, error) {
	draft := s.drafts.get(userID)
	if draft == nil {
		return nil, &ValidationError{Reason: "no challenge in progress"}
	}

	if update.Type != nil {
		draft.Type = *update.Type
	}
	if update.RoundsToWin != nil {
		if *update.RoundsToWin < 1 {
			return nil, &ValidationError{Reason: "rounds to win must be at least 1"}
		}
		draft.RoundsToWin = *update.RoundsToWin
	}
	if update.Bet != nil {
		if update.Bet.LessThan(s.cfg.MinBet) || update.Bet.GreaterThan(s.cfg.MaxBet) {
			return nil, &ValidationError{Reason: fmt.Sprintf(
				"bet must be between %s and %s %s", s.cfg.MinBet, s.cfg.MaxBet, s.cfg.Asset)}
		}
		draft.Bet = *update.Bet
	}

	s.drafts.put(draft)
	return draft, nil
}

// ClearDraft discards the user's draft
func (s *gameService) ClearDraft(userID int64) {
	s.drafts.delete(userID)
}

// CreateChallenge turns the challenger's draft into a pending duel. Both
// participants must be under the concurrent duel limit.
func (s *gameService) CreateChallenge(ctx context.Context, chatID, challengerID, opponentID int64) (*models.Game, error) {
	draft := s.drafts.get(challengerID)
	if draft == nil {
		return nil, &ValidationError{Reason: "no challenge in progress"}
	}
	if challengerID == opponentID {
		return nil, &ValidationError{Reason: "cannot challenge yourself"}
	}
	if draft.Type == models.GameTypePaid &&
		(draft.Bet.LessThan(s.cfg.MinBet) || draft.Bet.GreaterThan(s.cfg.MaxBet)) {
		return nil, &ValidationError{Reason: fmt.Sprintf(
			"bet must be between %s and %s %s", s.cfg.MinBet, s.cfg.MaxBet, s.cfg.Asset)}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	games := uow.GameRepository()
	for _, playerID := range []int64{challengerID, opponentID} {
		active, err := games.GetActiveByUser(ctx, playerID)
		if err != nil {
			return nil, err
		}
		if len(active) >= s.cfg.MaxActiveGamesPerUser {
			return nil, &ActiveGameError{UserID: playerID, GameID: active[0].ID}
		}
	}

	game := &models.Game{
		ChatID:      chatID,
		Player1ID:   challengerID,
		Player2ID:   opponentID,
		Type:        draft.Type,
		Bet:         draft.Bet,
		RoundsToWin: draft.RoundsToWin,
		Status:      models.GameStatusPending,
	}
	if err := games.Create(ctx, game); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.ChallengeIssuedEvent{
		GameID:       game.ID,
		ChatID:       chatID,
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		GameType:     game.Type,
		Bet:          game.Bet,
		RoundsToWin:  game.RoundsToWin,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.drafts.delete(challengerID)

	return game, nil
}

// Accept transitions pending -> active and locks stakes for paid duels. The
// activation and stake lock commit as one unit: a failed lock rolls the
// activation back so the duel stays pending with no turn or deadline set.
func (s *gameService) Accept(ctx context.Context, gameID, userID int64) (*models.Game, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	games := uow.GameRepository()
	game, err := games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if !game.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if userID != game.Player2ID {
		return nil, ErrNotAuthorized
	}

	deadline := time.Now().Add(s.cfg.GameTimeout)
	applied, err := games.Activate(ctx, gameID, game.Player1ID, deadline)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrAlreadyProcessed
	}
	game.Status = models.GameStatusActive
	game.CurrentTurnUserID = &game.Player1ID
	game.TurnDeadline = &deadline

	if err := s.escrow.LockStake(ctx, uow, game); err != nil {
		// Rollback via defer reverts the activation too
		return nil, err
	}

	uow.EventBus().Publish(events.DuelStartedEvent{
		GameID:      game.ID,
		ChatID:      game.ChatID,
		FirstTurnID: game.Player1ID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID": game.ID,
		"bet":    game.Bet,
		"type":   game.Type,
	}).Info("Duel accepted")

	return game, nil
}

// Decline transitions pending -> cancelled; only the challenged player may decline
func (s *gameService) Decline(ctx context.Context, gameID, userID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	games := uow.GameRepository()
	game, err := games.GetByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if !game.IsParticipant(userID) {
		return ErrNotParticipant
	}
	if userID != game.Player2ID {
		return ErrNotAuthorized
	}
	if game.Status != models.GameStatusPending {
		return ErrAlreadyProcessed
	}

	applied, err := games.Cancel(ctx, gameID)
	if err != nil {
		return err
	}
	if !applied {
		return ErrAlreadyProcessed
	}

	uow.EventBus().Publish(events.DuelCancelledEvent{
		GameID: game.ID,
		ChatID: game.ChatID,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Roll processes one dice value for the user's active duel in the chat.
// A round is best-of-two: the first roll is provisional, the second resolves
// it. Equal values replay the round with the turn back at the first roller.
func (s *gameService) Roll(ctx context.Context, chatID, userID int64, value int) (*RollOutcome, error) {
	if value < 1 || value > 6 {
		return nil, &ValidationError{Reason: fmt.Sprintf("dice value %d out of range", value)}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	games := uow.GameRepository()
	game, err := games.GetActiveByChatAndUser(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	// Opportunistic timeout detection: a stale duel resolves before the roll
	// is considered
	if game.TurnDeadline != nil && !game.TurnDeadline.After(time.Now()) {
		winnerID := s.timeoutWinner(game)
		if err := s.finishGame(ctx, uow, game, winnerID, models.FinishReasonTimeout); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &RollOutcome{Finished: true, WinnerID: winnerID}, nil
	}

	if game.CurrentTurnUserID == nil || *game.CurrentTurnUserID != userID {
		return nil, ErrNotYourTurn
	}

	deadline := time.Now().Add(s.cfg.GameTimeout)
	game.TurnDeadline = &deadline

	outcome := &RollOutcome{}

	if game.LastRollUserID == nil {
		// First roll of the round: provisional until the opponent answers
		opponent := game.Opponent(userID)
		game.LastRollUserID = &userID
		game.LastRollValue = &value
		game.CurrentTurnUserID = &opponent

		outcome.Phase = events.RoundPhaseFirst
		outcome.FirstValue = value
	} else {
		firstRoller := *game.LastRollUserID
		firstValue := *game.LastRollValue
		game.LastRollUserID = nil
		game.LastRollValue = nil

		if value == firstValue {
			// Tie: full re-roll, no score change, turn returns to the
			// original first roller
			game.CurrentTurnUserID = &firstRoller

			outcome.Phase = events.RoundPhaseTie
			outcome.FirstValue = firstValue
			outcome.SecondValue = value
		} else {
			roundWinner := firstRoller
			if value > firstValue {
				roundWinner = userID
			}
			if roundWinner == game.Player1ID {
				game.Player1Score++
			} else {
				game.Player2Score++
			}
			game.CurrentTurnUserID = &roundWinner

			outcome.Phase = events.RoundPhaseRound
			outcome.FirstValue = firstValue
			outcome.SecondValue = value
			outcome.RoundWinner = roundWinner
		}
	}

	if game.Decided() {
		winnerID := game.Leader()
		if err := games.UpdateRollState(ctx, game); err != nil {
			return nil, err
		}
		if err := s.finishGame(ctx, uow, game, winnerID, models.FinishReasonWin); err != nil {
			return nil, err
		}
		outcome.Finished = true
		outcome.WinnerID = winnerID
	} else {
		if err := games.UpdateRollState(ctx, game); err != nil {
			return nil, err
		}
		uow.EventBus().Publish(events.RoundResolvedEvent{
			GameID:       game.ID,
			ChatID:       game.ChatID,
			Phase:        outcome.Phase,
			FirstValue:   outcome.FirstValue,
			SecondValue:  outcome.SecondValue,
			RoundWinner:  outcome.RoundWinner,
			Player1Score: game.Player1Score,
			Player2Score: game.Player2Score,
			NextTurnID:   *game.CurrentTurnUserID,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return outcome, nil
}

// HandleEditedRoll finishes the duel against the player who revised a roll.
// A revised roll event is a trust violation regardless of scores.
func (s *gameService) HandleEditedRoll(ctx context.Context, chatID, userID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetActiveByChatAndUser(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}

	winnerID := game.Opponent(userID)
	if err := s.finishGame(ctx, uow, game, winnerID, models.FinishReasonIntegrity); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID":   game.ID,
		"userID":   userID,
		"winnerID": winnerID,
	}).Warn("Duel finished on integrity violation")

	return nil
}

// Cancel cancels a duel, refunding locked stakes. Participants or the operator.
func (s *gameService) Cancel(ctx context.Context, gameID, actorID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	games := uow.GameRepository()
	game, err := games.GetByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if !game.IsParticipant(actorID) && actorID != s.cfg.AdminID {
		return ErrNotAuthorized
	}

	applied, err := games.Cancel(ctx, gameID)
	if err != nil {
		return err
	}
	if !applied {
		return ErrAlreadyProcessed
	}

	refunded, err := s.escrow.RefundStake(ctx, uow, game)
	if err != nil {
		return err
	}

	uow.EventBus().Publish(events.DuelCancelledEvent{
		GameID:   game.ID,
		ChatID:   game.ChatID,
		Refunded: refunded,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID":   game.ID,
		"actorID":  actorID,
		"refunded": refunded,
	}).Info("Duel cancelled")

	return nil
}

// HandleTimeout awards the win to the player not holding the turn. The
// status-guarded finish keeps redundant triggers from resolving twice.
func (s *gameService) HandleTimeout(ctx context.Context, gameID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if game.Status != models.GameStatusActive {
		return ErrAlreadyProcessed
	}

	winnerID := s.timeoutWinner(game)
	if err := s.finishGame(ctx, uow, game, winnerID, models.FinishReasonTimeout); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID":   game.ID,
		"winnerID": winnerID,
	}).Info("Duel finished on timeout")

	return nil
}

// RematchVote records a vote; the second distinct participant's vote creates
// and returns the new duel, otherwise nil
func (s *gameService) RematchVote(ctx context.Context, gameID, userID int64) (*models.Game, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	games := uow.GameRepository()
	old, err := games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, ErrGameNotFound
	}
	if !old.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if old.Status != models.GameStatusFinished {
		return nil, &ValidationError{Reason: "rematch is only available for finished duels"}
	}

	if !s.votes.add(gameID, userID) {
		return nil, nil
	}
	s.votes.clear(gameID)

	rematch := &models.Game{
		ChatID:      old.ChatID,
		Player1ID:   old.Player1ID,
		Player2ID:   old.Player2ID,
		Type:        old.Type,
		Bet:         old.Bet,
		RoundsToWin: old.RoundsToWin,
		Status:      models.GameStatusPending,
	}
	if err := games.Create(ctx, rematch); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.RematchOfferedEvent{
		OldGameID: gameID,
		NewGameID: rematch.ID,
		ChatID:    rematch.ChatID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rematch, nil
}

// timeoutWinner is the participant who does not hold the current turn
func (s *gameService) timeoutWinner(game *models.Game) int64 {
	if game.CurrentTurnUserID == nil {
		return game.Player1ID
	}
	return game.Opponent(*game.CurrentTurnUserID)
}

// finishGame applies the guarded finish transition, records both players'
// counters, settles stakes and publishes the finished event. Runs inside the
// caller's unit of work; the caller commits.
func (s *gameService) finishGame(ctx context.Context, uow UnitOfWork, game *models.Game, winnerID int64, reason models.FinishReason) error {
	applied, err := uow.GameRepository().Finish(ctx, game.ID)
	if err != nil {
		return err
	}
	if !applied {
		return ErrAlreadyProcessed
	}
	game.Status = models.GameStatusFinished

	loserID := game.Opponent(winnerID)
	if err := uow.UserRepository().RecordDuelOutcome(ctx, winnerID, loserID); err != nil {
		return err
	}

	payout, err := s.escrow.Settle(ctx, uow, game, winnerID)
	if err != nil {
		return err
	}

	uow.EventBus().Publish(events.DuelFinishedEvent{
		GameID:       game.ID,
		ChatID:       game.ChatID,
		WinnerID:     winnerID,
		LoserID:      loserID,
		Reason:       reason,
		Player1Score: game.Player1Score,
		Player2Score: game.Player2Score,
		Payout:       payout,
	})

	return nil
}
