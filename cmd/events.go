package cmd

import (
	"context"

	"diceduel/events"

	log "github.com/sirupsen/logrus"
)

// subscribeEventLogging logs every lifecycle and money event. A chat
// transport subscribes its own renderers alongside these handlers.
func subscribeEventLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypeChallengeIssued, func(ctx context.Context, e events.Event) {
		ev := e.(events.ChallengeIssuedEvent)
		log.WithFields(log.Fields{
			"gameID":       ev.GameID,
			"challengerID": ev.ChallengerID,
			"opponentID":   ev.OpponentID,
			"bet":          ev.Bet,
		}).Info("Challenge issued")
	})

	bus.Subscribe(events.EventTypeDuelStarted, func(ctx context.Context, e events.Event) {
		ev := e.(events.DuelStartedEvent)
		log.WithFields(log.Fields{
			"gameID":      ev.GameID,
			"firstTurnID": ev.FirstTurnID,
		}).Info("Duel started")
	})

	bus.Subscribe(events.EventTypeRoundResolved, func(ctx context.Context, e events.Event) {
		ev := e.(events.RoundResolvedEvent)
		log.WithFields(log.Fields{
			"gameID":     ev.GameID,
			"phase":      ev.Phase,
			"score":      []int{ev.Player1Score, ev.Player2Score},
			"nextTurnID": ev.NextTurnID,
		}).Debug("Round resolved")
	})

	bus.Subscribe(events.EventTypeDuelFinished, func(ctx context.Context, e events.Event) {
		ev := e.(events.DuelFinishedEvent)
		log.WithFields(log.Fields{
			"gameID":   ev.GameID,
			"winnerID": ev.WinnerID,
			"reason":   ev.Reason,
			"payout":   ev.Payout,
		}).Info("Duel finished")
	})

	bus.Subscribe(events.EventTypeDuelCancelled, func(ctx context.Context, e events.Event) {
		ev := e.(events.DuelCancelledEvent)
		log.WithFields(log.Fields{
			"gameID":   ev.GameID,
			"refunded": ev.Refunded,
		}).Info("Duel cancelled")
	})

	bus.Subscribe(events.EventTypeRematchOffered, func(ctx context.Context, e events.Event) {
		ev := e.(events.RematchOfferedEvent)
		log.WithFields(log.Fields{
			"oldGameID": ev.OldGameID,
			"newGameID": ev.NewGameID,
		}).Info("Rematch offered")
	})

	bus.Subscribe(events.EventTypeDepositCredited, func(ctx context.Context, e events.Event) {
		ev := e.(events.DepositCreditedEvent)
		log.WithFields(log.Fields{
			"userID":    ev.UserID,
			"invoiceID": ev.InvoiceID,
			"amount":    ev.Amount,
		}).Info("Deposit credited")
	})

	bus.Subscribe(events.EventTypeWithdrawalSettled, func(ctx context.Context, e events.Event) {
		ev := e.(events.WithdrawalSettledEvent)
		log.WithFields(log.Fields{
			"userID":       ev.UserID,
			"withdrawalID": ev.WithdrawalID,
			"amount":       ev.Amount,
			"status":       ev.Status,
		}).Info("Withdrawal settled")
	})
}
