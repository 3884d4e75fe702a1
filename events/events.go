package events

import (
	"context"
	"sync"

	"diceduel/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeChallengeIssued   EventType = "challenge_issued"
	EventTypeDuelStarted       EventType = "duel_started"
	EventTypeRoundResolved     EventType = "round_resolved"
	EventTypeDuelFinished      EventType = "duel_finished"
	EventTypeDuelCancelled     EventType = "duel_cancelled"
	EventTypeRematchOffered    EventType = "rematch_offered"
	EventTypeDepositCredited   EventType = "deposit_credited"
	EventTypeWithdrawalSettled EventType = "withdrawal_settled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ChallengeIssuedEvent announces a new pending duel
type ChallengeIssuedEvent struct {
	GameID       int64
	ChatID       int64
	ChallengerID int64
	OpponentID   int64
	GameType     models.GameType
	Bet          decimal.Decimal
	RoundsToWin  int
}

func (e ChallengeIssuedEvent) Type() EventType { return EventTypeChallengeIssued }

// DuelStartedEvent announces an accepted duel with stakes locked
type DuelStartedEvent struct {
	GameID      int64
	ChatID      int64
	FirstTurnID int64
}

func (e DuelStartedEvent) Type() EventType { return EventTypeDuelStarted }

// RoundPhase describes the outcome of a single roll
type RoundPhase string

const (
	RoundPhaseFirst RoundPhase = "first"
	RoundPhaseTie   RoundPhase = "tie"
	RoundPhaseRound RoundPhase = "round"
)

// RoundResolvedEvent reports the outcome of processing one roll
type RoundResolvedEvent struct {
	GameID       int64
	ChatID       int64
	Phase        RoundPhase
	FirstValue   int
	SecondValue  int
	RoundWinner  int64
	Player1Score int
	Player2Score int
	NextTurnID   int64
}

func (e RoundResolvedEvent) Type() EventType { return EventTypeRoundResolved }

// DuelFinishedEvent announces a decisive end of a duel
type DuelFinishedEvent struct {
	GameID       int64
	ChatID       int64
	WinnerID     int64
	LoserID      int64
	Reason       models.FinishReason
	Player1Score int
	Player2Score int
	Payout       decimal.Decimal
}

func (e DuelFinishedEvent) Type() EventType { return EventTypeDuelFinished }

// DuelCancelledEvent announces a cancelled duel, refunded if stakes were locked
type DuelCancelledEvent struct {
	GameID   int64
	ChatID   int64
	Refunded bool
}

func (e DuelCancelledEvent) Type() EventType { return EventTypeDuelCancelled }

// RematchOfferedEvent announces a fresh challenge created by a rematch vote pair
type RematchOfferedEvent struct {
	OldGameID int64
	NewGameID int64
	ChatID    int64
}

func (e RematchOfferedEvent) Type() EventType { return EventTypeRematchOffered }

// DepositCreditedEvent reports a reconciled deposit
type DepositCreditedEvent struct {
	UserID    int64
	InvoiceID int64
	Amount    decimal.Decimal
}

func (e DepositCreditedEvent) Type() EventType { return EventTypeDepositCredited }

// WithdrawalSettledEvent reports a withdrawal reaching a terminal status
type WithdrawalSettledEvent struct {
	UserID       int64
	WithdrawalID int64
	Amount       decimal.Decimal
	Status       models.WithdrawalStatus
}

func (e WithdrawalSettledEvent) Type() EventType { return EventTypeWithdrawalSettled }

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Handlers run asynchronously so a slow transport never blocks the engine
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events until the owning unit of work commits,
// then flushes them to the underlying bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events outlive the transaction context
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events. Called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
