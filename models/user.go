package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a player with a single-asset balance
type User struct {
	ID         int64           `db:"id"`
	Username   string          `db:"username"`
	ReferredBy *int64          `db:"referred_by"`
	Balance    decimal.Decimal `db:"balance"`
	TotalGames int             `db:"total_games"`
	Wins       int             `db:"wins"`
	Losses     int             `db:"losses"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// ReferralMetric aggregates referral performance for one referrer
type ReferralMetric struct {
	ReferrerID    int64
	Username      string
	ReferredCount int
	CommissionSum decimal.Decimal
}
