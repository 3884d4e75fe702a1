package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyProcessed signals that a conditional update matched zero
	// rows because the state has legitimately moved on. Never retried.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrNotParticipant signals that the actor is not a party to the duel
	ErrNotParticipant = errors.New("not a participant in this duel")

	// ErrNotAuthorized signals that the actor may not perform the operation
	ErrNotAuthorized = errors.New("not authorized")

	// ErrGameNotFound signals that no duel matches the given id
	ErrGameNotFound = errors.New("game not found")

	// ErrNotYourTurn signals a roll from the player who does not hold the turn
	ErrNotYourTurn = errors.New("it's the other player's turn")
)

// Shortfall describes how much one player is missing for a stake lock
type Shortfall struct {
	UserID int64
	Needed decimal.Decimal
}

// InsufficientFundsError reports which side(s) could not cover an amount.
// Custodial marks the gateway's own balance as the limiting side.
type InsufficientFundsError struct {
	Shortfalls []Shortfall
	Custodial  bool
}

func (e *InsufficientFundsError) Error() string {
	if e.Custodial {
		return "custodial gateway balance is insufficient"
	}
	return fmt.Sprintf("insufficient funds for %d player(s)", len(e.Shortfalls))
}

// GatewayError wraps a failed external gateway call. Deposits surface it as
// a retry-later condition.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// TransferError reports a failed outbound transfer after the reservation was
// already unwound; the user's funds are intact when this surfaces.
type TransferError struct {
	WithdrawalID int64
	Err          error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer for withdrawal %d failed: %v", e.WithdrawalID, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ValidationError rejects malformed input before any state change
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ActiveGameError rejects a challenge while a blocking duel exists
type ActiveGameError struct {
	UserID int64
	GameID int64
}

func (e *ActiveGameError) Error() string {
	return fmt.Sprintf("user %d already has active game %d", e.UserID, e.GameID)
}
