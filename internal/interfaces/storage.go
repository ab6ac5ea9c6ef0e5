// Package interfaces defines service contracts for Kosha
package interfaces

import (
	"context"

	"github.com/rbhatta/kosha/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	InternalStore() InternalStore
	LedgerStore() LedgerStore
	InvestmentStore() InvestmentStore
	TriggerStore() TriggerStore

	// Lifecycle
	Close() error
}

// InternalStore manages user accounts, per-user config, and system-level KV.
type InternalStore interface {
	// User accounts
	GetUser(ctx context.Context, userID string) (*models.InternalUser, error)
	GetUserByEmail(ctx context.Context, email string) (*models.InternalUser, error)
	SaveUser(ctx context.Context, user *models.InternalUser) error
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]string, error)

	// Per-user key-value config (mailbox tokens live here)
	GetUserKV(ctx context.Context, userID, key string) (*models.UserKeyValue, error)
	SetUserKV(ctx context.Context, userID, key, value string) error
	DeleteUserKV(ctx context.Context, userID, key string) error

	// System key-value (non-user-scoped)
	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error

	Close() error
}

// TransactionQuery configures transaction listing.
type TransactionQuery struct {
	Limit     int
	Offset    int
	AccountID string
	OrderBy   string // "date_desc" (default), "date_asc"
}

// LedgerStore manages accounts and transactions per user.
type LedgerStore interface {
	// Accounts
	GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]*models.Account, error)
	PutAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, userID, accountID string) error

	// AdjustBalance applies a signed delta to one account's balance as a
	// single atomic field-level update. It never touches any other account.
	AdjustBalance(ctx context.Context, userID, accountID string, delta float64) error

	// AdjustBudgetSpent applies a signed delta to one category's spent field
	// on an account's budget map. Missing budget entries are a no-op.
	AdjustBudgetSpent(ctx context.Context, userID, accountID, category string, delta float64) error

	// Transactions
	GetTransaction(ctx context.Context, userID, txID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, q TransactionQuery) ([]*models.Transaction, error)
	PutTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, userID, txID string) error

	// GetTransactionByEmailID finds a prior import of the given source
	// message, or returns nil when none exists.
	GetTransactionByEmailID(ctx context.Context, userID, emailID string) (*models.Transaction, error)

	Close() error
}

// InvestmentStore manages investment holdings.
type InvestmentStore interface {
	Get(ctx context.Context, userID, investmentID string) (*models.Investment, error)
	List(ctx context.Context, userID string) ([]*models.Investment, error)
	Put(ctx context.Context, inv *models.Investment) error
	Delete(ctx context.Context, userID, investmentID string) error

	// ListWithSymbol returns every investment carrying a ticker symbol,
	// across all users. Used by the scheduled price updater.
	ListWithSymbol(ctx context.Context) ([]*models.Investment, error)
}

// TriggerStore manages the per-user sync trigger marker.
type TriggerStore interface {
	Put(ctx context.Context, trigger *models.SyncTrigger) error
	Get(ctx context.Context, userID string) (*models.SyncTrigger, error)
	Delete(ctx context.Context, userID string) error
	ListPending(ctx context.Context) ([]*models.SyncTrigger, error)
}
