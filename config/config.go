package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string `env:"DATABASE_URL"`

	// Crypto Pay gateway configuration
	CryptoPayToken   string `env:"CRYPTO_PAY_TOKEN"`
	CryptoPayBaseURL string `env:"CRYPTO_PAY_BASE_URL" envDefault:"https://pay.crypt.bot/api"`
	Asset            string `env:"ASSET" envDefault:"USDT"`

	// Operator allowed to cancel any duel and reverse withdrawals
	AdminID int64 `env:"ADMIN_ID"`

	// Game configuration
	CommissionPercent     float64       `env:"COMMISSION_PERCENT" envDefault:"10"`
	GameTimeout           time.Duration `env:"GAME_TIMEOUT" envDefault:"30s"`
	TimeoutCheckInterval  time.Duration `env:"TIMEOUT_CHECK_INTERVAL" envDefault:"5s"`
	MaxActiveGamesPerUser int           `env:"MAX_ACTIVE_GAMES_PER_USER" envDefault:"1"`

	// Money bounds
	MinBet      decimal.Decimal `env:"MIN_BET" envDefault:"1"`
	MaxBet      decimal.Decimal `env:"MAX_BET" envDefault:"1000"`
	MinWithdraw decimal.Decimal `env:"MIN_WITHDRAW" envDefault:"1"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(decimal.Decimal{}): parseDecimal,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Environment != "test" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if cfg.CryptoPayToken == "" {
			return nil, fmt.Errorf("CRYPTO_PAY_TOKEN is required")
		}
		if cfg.AdminID <= 0 {
			return nil, fmt.Errorf("ADMIN_ID must be a positive integer")
		}
	}
	if cfg.CommissionPercent < 0 || cfg.CommissionPercent >= 100 {
		return nil, fmt.Errorf("COMMISSION_PERCENT must be in [0, 100)")
	}
	if cfg.MinBet.GreaterThan(cfg.MaxBet) {
		return nil, fmt.Errorf("MIN_BET must not exceed MAX_BET")
	}

	return cfg, nil
}

// CommissionRate returns the commission as a decimal fraction of the prize
func (c *Config) CommissionRate() decimal.Decimal {
	return decimal.NewFromFloat(c.CommissionPercent).Div(decimal.NewFromInt(100))
}

func parseDecimal(v string) (any, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", v, err)
	}
	return d, nil
}
