package store

import (
	"context"
	"errors"
	"time"

	"upi-pay-simulator-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrDuplicateReference      = errors.New("duplicate reference id")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrDuplicateAccount        = errors.New("account with this phone or email already exists")
	ErrIdentifierTaken         = errors.New("payment identifier already registered")
	ErrIdentifierNotFound      = errors.New("payment identifier not found")

	// ErrCommitUnknown means COMMIT itself failed; the transaction may or may not have applied.
	ErrCommitUnknown = errors.New("commit outcome unknown")
)

// CreateAccountParams contains the parameters for registering an account.
type CreateAccountParams struct {
	DisplayName       string
	Phone             string
	Email             string
	PinHash           string
	OpeningBalance    decimal.Decimal
	DefaultIdentifier string // usually <phone>@<domain>
}

// FailedAuth is the state of the PIN failure counter after a failed attempt.
type FailedAuth struct {
	Attempts int
	Locked   bool
}

// AccountStore persists accounts, their payment identifiers and balances.
type AccountStore interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (*models.Account, error)
	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// FindAccountByIdentifier returns (nil, nil) when no identifier matches.
	FindAccountByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)

	ListIdentifiers(ctx context.Context, accountId string) ([]models.PaymentIdentifier, error)
	AddIdentifier(ctx context.Context, accountId, identifier string) (*models.PaymentIdentifier, error)
	SetDefaultIdentifier(ctx context.Context, accountId, identifier string) error

	// AdjustBalance applies delta atomically and fails with ErrInsufficientFunds
	// instead of letting the balance go negative.
	AdjustBalance(ctx context.Context, accountId string, delta decimal.Decimal) (decimal.Decimal, error)

	LockAccount(ctx context.Context, accountId string) error
	UnlockAccount(ctx context.Context, accountId string) error
	RecordFailedAuth(ctx context.Context, accountId string, threshold int) (FailedAuth, error)
	ResetFailedAuth(ctx context.Context, accountId string) error

	ResetDemoData(ctx context.Context) error
}

// TransactionLedger is the append-only record of transfer attempts.
type TransactionLedger interface {
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionByReference(ctx context.Context, referenceId string) (*models.Transaction, error)
	// GetTransactionByIdempotencyKey returns (nil, nil) when the key is unused.
	GetTransactionByIdempotencyKey(ctx context.Context, fromAccountId, key string) (*models.Transaction, error)
	ListAccountTransactions(ctx context.Context, accountId string, limit, offset int) ([]models.Transaction, error)
	CountAccountTransactions(ctx context.Context, accountId string) (int, error)
	ListAllTransactions(ctx context.Context, limit, offset int) ([]models.Transaction, int, error)
	// GetTransactionStats aggregates the ledger for one account, or globally when accountId is "".
	GetTransactionStats(ctx context.Context, accountId string) (*models.TransactionStats, error)
	SumSentSince(ctx context.Context, accountId string, since time.Time) (decimal.Decimal, error)
}

// LedgerTx is the subset of operations that settle inside one storage transaction.
type LedgerTx interface {
	AdjustBalance(ctx context.Context, accountId string, delta decimal.Decimal) (decimal.Decimal, error)
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
}

// UnitOfWork runs fn inside a storage transaction that commits only if fn returns nil.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(tx LedgerTx) error) error
}

// PaymentStore defines the contract that every backend (SQLite, Postgres, ...) must satisfy.
type PaymentStore interface {
	AccountStore
	TransactionLedger
	UnitOfWork

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
