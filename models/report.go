package models

import "github.com/shopspring/decimal"

// SystemReport is an operator-facing snapshot of the engine's money state
type SystemReport struct {
	TotalBalance  decimal.Decimal
	UserCount     int
	TotalDeposits decimal.Decimal
	LockedStakes  decimal.Decimal
	AverageBet    decimal.Decimal
}

// UserReport is a per-player snapshot for the transport's profile view
type UserReport struct {
	User            *User
	PendingDeposits []*Transaction
	ReferredCount   int
}
