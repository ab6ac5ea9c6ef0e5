// Package interfaces defines service contracts for Kosha
package interfaces

import (
	"context"
	"time"

	"github.com/rbhatta/kosha/internal/models"
)

// LedgerService manages accounts and transactions.
type LedgerService interface {
	// Accounts
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]*models.Account, error)
	UpdateAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, userID, accountID string) error

	// RecordTransaction persists the transaction and applies its single
	// balance mutation to the owning account.
	RecordTransaction(ctx context.Context, tx *models.Transaction) error

	ListTransactions(ctx context.Context, userID string, q TransactionQuery) ([]*models.Transaction, error)

	// AmendTransaction performs a corrective edit: the original balance
	// effect is reversed and the updated one applied.
	AmendTransaction(ctx context.Context, tx *models.Transaction) error

	// RemoveTransaction deletes a transaction and reverses its balance effect.
	RemoveTransaction(ctx context.Context, userID, txID string) error

	// Alerts evaluates category budgets and credit utilization.
	Alerts(ctx context.Context, userID string) ([]models.BudgetAlert, []models.CreditAlert, error)

	// SpendingByCategory totals debit transactions per category for the
	// month containing the given time.
	SpendingByCategory(ctx context.Context, userID string, month time.Time) ([]models.CategorySpend, error)
}

// IngestService runs the mail ingestion pipeline.
type IngestService interface {
	// Run executes one full ingestion run for a user: fetch candidate
	// unread mail, extract, interpret, match, and write, with per-message
	// error isolation. The user's sync trigger is deleted when Run
	// returns, success or failure.
	Run(ctx context.Context, userID string) (*models.SyncReport, error)
}

// InvestmentService manages investments and the scheduled price refresh.
type InvestmentService interface {
	Create(ctx context.Context, inv *models.Investment) error
	List(ctx context.Context, userID string) ([]*models.Investment, error)
	Update(ctx context.Context, inv *models.Investment) error
	Delete(ctx context.Context, userID, investmentID string) error

	// RefreshPrices updates price and current value for every investment
	// carrying a symbol, across all users. Per-investment failures are
	// logged and skipped; the count of updated investments is returned.
	RefreshPrices(ctx context.Context) (int, error)
}
