package service

import (
	"context"
	"time"

	"diceduel/events"
	"diceduel/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID, nil if not found
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// GetOrCreate retrieves a user, creating one on first interaction.
	// Username is refreshed when changed; the referrer link is set once and
	// never overwritten.
	GetOrCreate(ctx context.Context, userID int64, username string, referredBy *int64) (*models.User, error)

	// AddBalance credits a user's balance atomically
	AddBalance(ctx context.Context, userID int64, amount decimal.Decimal) error

	// TryDeductBalance debits a user's balance conditioned on sufficiency.
	// Returns false when the guard did not match (insufficient balance).
	TryDeductBalance(ctx context.Context, userID int64, amount decimal.Decimal) (bool, error)

	// RecordDuelOutcome bumps total_games for both players, wins for the
	// winner and losses for the loser
	RecordDuelOutcome(ctx context.Context, winnerID, loserID int64) error

	// CountReferred returns how many users name the given user as referrer
	CountReferred(ctx context.Context, referrerID int64) (int, error)

	// GetReferralMetrics aggregates referred counts and commission sums per referrer
	GetReferralMetrics(ctx context.Context) ([]*models.ReferralMetric, error)

	// GetSystemTotals returns the sum of all balances and the user count
	GetSystemTotals(ctx context.Context) (decimal.Decimal, int, error)
}

// GameRepository defines the interface for duel data access
type GameRepository interface {
	// Create persists a new pending duel and fills its ID
	Create(ctx context.Context, game *models.Game) error

	// GetByID retrieves a duel by ID, nil if not found
	GetByID(ctx context.Context, gameID int64) (*models.Game, error)

	// GetActiveByUser returns pending and active duels involving the user
	GetActiveByUser(ctx context.Context, userID int64) ([]*models.Game, error)

	// GetActiveByChatAndUser returns the user's active duel in a chat, nil if none
	GetActiveByChatAndUser(ctx context.Context, chatID, userID int64) (*models.Game, error)

	// GetExpired returns active duels whose turn deadline is at or before now
	GetExpired(ctx context.Context, now time.Time) ([]*models.Game, error)

	// Activate transitions pending -> active, setting the first turn holder
	// and deadline. Returns false when the duel was not pending.
	Activate(ctx context.Context, gameID, firstTurnUserID int64, deadline time.Time) (bool, error)

	// UpdateRollState persists scores, turn holder, provisional roll and deadline
	UpdateRollState(ctx context.Context, game *models.Game) error

	// Finish transitions active -> finished and clears the deadline.
	// Returns false when the duel was not active.
	Finish(ctx context.Context, gameID int64) (bool, error)

	// Cancel transitions pending/active -> cancelled.
	// Returns false when the duel was already terminal.
	Cancel(ctx context.Context, gameID int64) (bool, error)

	// LockFunds flips funds_locked to true. Returns false if already locked.
	LockFunds(ctx context.Context, gameID int64) (bool, error)

	// UnlockFunds flips funds_locked to false. Returns false if not locked.
	UnlockFunds(ctx context.Context, gameID int64) (bool, error)

	// TotalLockedStakes sums 2*bet over active staked duels with locked funds
	TotalLockedStakes(ctx context.Context) (decimal.Decimal, error)

	// AverageBet returns the mean stake of finished paid duels
	AverageBet(ctx context.Context) (decimal.Decimal, error)
}

// LedgerRepository defines the interface for the append-only audit trail
type LedgerRepository interface {
	// Record appends a ledger entry
	Record(ctx context.Context, entry *models.LedgerEntry) error

	// RecordCommission appends a commission entry
	RecordCommission(ctx context.Context, entry *models.CommissionEntry) error

	// GetByGame returns all ledger entries referencing a duel
	GetByGame(ctx context.Context, gameID int64) ([]*models.LedgerEntry, error)

	// SumByUser reconciles the audit trail: the result must equal the balance
	SumByUser(ctx context.Context, userID int64) (decimal.Decimal, error)

	// GetRecent returns the newest entries for operator review
	GetRecent(ctx context.Context, limit int) ([]*models.LedgerEntry, error)
}

// TransactionRepository defines the interface for deposit intents
type TransactionRepository interface {
	// Create persists a new pending deposit transaction and fills its ID
	Create(ctx context.Context, tx *models.Transaction) error

	// GetByInvoiceID retrieves a transaction by external invoice id, nil if none
	GetByInvoiceID(ctx context.Context, invoiceID int64) (*models.Transaction, error)

	// GetPendingByUser returns the user's unreconciled deposits
	GetPendingByUser(ctx context.Context, userID int64) ([]*models.Transaction, error)

	// MarkPaid transitions pending -> paid. The returned flag is the
	// exactly-once guard for crediting the deposit.
	MarkPaid(ctx context.Context, txID int64) (bool, error)

	// MarkExpired transitions pending -> expired
	MarkExpired(ctx context.Context, txID int64) (bool, error)

	// SumPaid totals all credited deposits
	SumPaid(ctx context.Context) (decimal.Decimal, error)
}

// WithdrawalRepository defines the interface for withdrawal records
type WithdrawalRepository interface {
	// Create persists a new pending withdrawal and fills its ID
	Create(ctx context.Context, w *models.Withdrawal) error

	// GetByID retrieves a withdrawal by ID, nil if not found
	GetByID(ctx context.Context, id int64) (*models.Withdrawal, error)

	// MarkApproved transitions pending -> approved with the transfer reference
	MarkApproved(ctx context.Context, id int64, transferID int64, spendID string) (bool, error)

	// MarkFailed transitions pending -> failed with the error detail
	MarkFailed(ctx context.Context, id int64, spendID, errDetail string) (bool, error)

	// MarkRefunded transitions approved -> refunded (manual reversal)
	MarkRefunded(ctx context.Context, id int64) (bool, error)

	// ListRecent returns the newest withdrawals for operator review
	ListRecent(ctx context.Context, limit int) ([]*models.Withdrawal, error)
}

// InvoiceStatus is the gateway-side state of a deposit invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusExpired   InvoiceStatus = "expired"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is a gateway deposit invoice
type Invoice struct {
	ID     int64
	Status InvoiceStatus
	PayURL string
}

// Transfer is a completed outbound gateway transfer
type Transfer struct {
	ID int64
}

// AssetBalance is the gateway's custodial balance for one asset
type AssetBalance struct {
	Currency  string
	Available decimal.Decimal
	OnHold    decimal.Decimal
}

// PaymentGateway defines the interface to the external custodial provider
type PaymentGateway interface {
	// CreateInvoice requests a new payable invoice
	CreateInvoice(ctx context.Context, amount decimal.Decimal, asset string) (*Invoice, error)

	// GetInvoice polls an invoice's status by id, nil if unknown
	GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, error)

	// Transfer executes an outbound transfer. The spendID makes the call
	// idempotent on the gateway side.
	Transfer(ctx context.Context, userID int64, amount decimal.Decimal, asset, spendID string) (*Transfer, error)

	// GetBalance returns the custodial balances per asset
	GetBalance(ctx context.Context) ([]AssetBalance, error)
}

// InvoiceResult is returned to the transport after creating a deposit
type InvoiceResult struct {
	InvoiceID int64
	PayURL    string
}

// EscrowService owns every balance-affecting operation
type EscrowService interface {
	// LockStake debits both players by the duel's stake within the caller's
	// unit of work. Both conditional debits must apply or neither does.
	LockStake(ctx context.Context, uow UnitOfWork, game *models.Game) error

	// RefundStake credits both players back their stake if funds are locked.
	// Idempotent: a duel with no locked funds is a no-op.
	RefundStake(ctx context.Context, uow UnitOfWork, game *models.Game) (bool, error)

	// Settle pays out the winner minus commission and records commission
	// entries for both participants. Free duels are a no-op.
	Settle(ctx context.Context, uow UnitOfWork, game *models.Game, winnerID int64) (decimal.Decimal, error)

	// CreateDeposit requests a gateway invoice and records a pending transaction
	CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal) (*InvoiceResult, error)

	// ReconcileDeposit polls the invoice and credits the user exactly once
	ReconcileDeposit(ctx context.Context, invoiceID int64) (bool, error)

	// Withdraw reserves the amount, executes the transfer, and unwinds the
	// reservation on any transfer failure
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) error

	// RefundApprovedWithdrawal reverses an approved withdrawal (operator action)
	RefundApprovedWithdrawal(ctx context.Context, actorID, withdrawalID int64) error

	// GetBalance returns a user's current balance
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)

	// GetAppBalance totals the gateway's custodial balance for the settlement asset
	GetAppBalance(ctx context.Context) (decimal.Decimal, error)
}

// RollOutcome reports the effect of processing one roll
type RollOutcome struct {
	Phase       events.RoundPhase
	FirstValue  int
	SecondValue int
	RoundWinner int64
	Finished    bool
	WinnerID    int64
}

// GameService owns the per-duel state machine
type GameService interface {
	// EnsureUser creates or refreshes a user on first interaction
	EnsureUser(ctx context.Context, userID int64, username string, referredBy *int64) (*models.User, error)

	// StartDraft begins a challenge wizard for the user, replacing any draft
	StartDraft(userID int64, opponentUsername string, opponentID int64) *Draft

	// GetDraft returns the user's in-progress draft, nil if none
	GetDraft(userID int64) *Draft

	// UpdateDraft applies one wizard selection
	UpdateDraft(userID int64, update DraftUpdate) (*Draft, error)

	// ClearDraft discards the user's draft
	ClearDraft(userID int64)

	// CreateChallenge turns the user's draft into a pending duel
	CreateChallenge(ctx context.Context, chatID, challengerID, opponentID int64) (*models.Game, error)

	// Accept transitions pending -> active and locks stakes for paid duels
	Accept(ctx context.Context, gameID, userID int64) (*models.Game, error)

	// Decline transitions pending -> cancelled; only the challenged player may decline
	Decline(ctx context.Context, gameID, userID int64) error

	// Roll processes one dice value for the user's active duel in the chat
	Roll(ctx context.Context, chatID, userID int64, value int) (*RollOutcome, error)

	// HandleEditedRoll finishes the duel against the player who revised a roll
	HandleEditedRoll(ctx context.Context, chatID, userID int64) error

	// Cancel cancels a duel, refunding locked stakes; participants or the operator
	Cancel(ctx context.Context, gameID, actorID int64) error

	// HandleTimeout awards the win to the player not holding the turn
	HandleTimeout(ctx context.Context, gameID int64) error

	// RematchVote records a vote; the second distinct participant's vote
	// creates and returns the new duel, otherwise nil
	RematchVote(ctx context.Context, gameID, userID int64) (*models.Game, error)
}

// StatsService exposes the reporting reads for operator and profile views
type StatsService interface {
	// GetSystemReport aggregates system-wide money state
	GetSystemReport(ctx context.Context) (*models.SystemReport, error)

	// GetUserReport returns one player's balance, counters and pending deposits
	GetUserReport(ctx context.Context, userID int64) (*models.UserReport, error)

	// GetReferralMetrics aggregates referral performance per referrer
	GetReferralMetrics(ctx context.Context) ([]*models.ReferralMetric, error)

	// GetRecentLedger returns the newest ledger entries
	GetRecentLedger(ctx context.Context, limit int) ([]*models.LedgerEntry, error)

	// GetRecentWithdrawals returns the newest withdrawals
	GetRecentWithdrawals(ctx context.Context, limit int) ([]*models.Withdrawal, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	GameRepository() GameRepository
	LedgerRepository() LedgerRepository
	TransactionRepository() TransactionRepository
	WithdrawalRepository() WithdrawalRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
