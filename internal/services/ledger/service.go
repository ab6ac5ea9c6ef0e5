// Package ledger manages accounts and transactions. Every transaction
// creation, amendment, or removal applies exactly one net balance effect to
// its account; balances are never recomputed from history at read time.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
)

// Service implements interfaces.LedgerService.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new ledger service.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

func (s *Service) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if account.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if account.Kind != models.AccountKindDeposit && account.Kind != models.AccountKindCredit {
		return fmt.Errorf("invalid account kind %q", account.Kind)
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	for category := range account.Budgets {
		if !models.ValidCategory(category) {
			return fmt.Errorf("invalid budget category %q", category)
		}
	}
	return s.storage.LedgerStore().PutAccount(ctx, account)
}

func (s *Service) GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	return s.storage.LedgerStore().GetAccount(ctx, userID, accountID)
}

func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	return s.storage.LedgerStore().ListAccounts(ctx, userID)
}

func (s *Service) UpdateAccount(ctx context.Context, account *models.Account) error {
	existing, err := s.storage.LedgerStore().GetAccount(ctx, account.UserID, account.ID)
	if err != nil {
		return err
	}
	// Balance is owned by the transaction flow, not the account editor.
	account.Balance = existing.Balance
	account.CreatedAt = existing.CreatedAt
	for category := range account.Budgets {
		if !models.ValidCategory(category) {
			return fmt.Errorf("invalid budget category %q", category)
		}
	}
	return s.storage.LedgerStore().PutAccount(ctx, account)
}

func (s *Service) DeleteAccount(ctx context.Context, userID, accountID string) error {
	return s.storage.LedgerStore().DeleteAccount(ctx, userID, accountID)
}

// validateTransaction checks the fields every write path shares.
func validateTransaction(tx *models.Transaction) error {
	if tx.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if tx.AccountID == "" {
		return fmt.Errorf("account id is required")
	}
	if tx.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", tx.Amount)
	}
	if tx.Direction != models.DirectionDebit && tx.Direction != models.DirectionCredit {
		return fmt.Errorf("invalid direction %q", tx.Direction)
	}
	return nil
}

// RecordTransaction persists the transaction and applies its one balance
// mutation. Debits also bump the account's category budget spend.
func (s *Service) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := validateTransaction(tx); err != nil {
		return err
	}
	if _, err := s.storage.LedgerStore().GetAccount(ctx, tx.UserID, tx.AccountID); err != nil {
		return err
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Source == "" {
		tx.Source = models.SourceManual
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Category = models.NormalizeCategory(tx.Category)

	if err := s.storage.LedgerStore().PutTransaction(ctx, tx); err != nil {
		return err
	}
	if err := s.applyEffect(ctx, tx, 1); err != nil {
		return err
	}

	s.logger.Debug().
		Str("user_id", tx.UserID).
		Str("transaction_id", tx.ID).
		Str("direction", tx.Direction).
		Float64("amount", tx.Amount).
		Msg("Transaction recorded")
	return nil
}

func (s *Service) ListTransactions(ctx context.Context, userID string, q interfaces.TransactionQuery) ([]*models.Transaction, error) {
	return s.storage.LedgerStore().ListTransactions(ctx, userID, q)
}

// AmendTransaction reverses the stored transaction's balance effect and
// applies the amended one, so the account never double-counts.
func (s *Service) AmendTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := validateTransaction(tx); err != nil {
		return err
	}

	original, err := s.storage.LedgerStore().GetTransaction(ctx, tx.UserID, tx.ID)
	if err != nil {
		return err
	}
	if _, err := s.storage.LedgerStore().GetAccount(ctx, tx.UserID, tx.AccountID); err != nil {
		return err
	}

	tx.Category = models.NormalizeCategory(tx.Category)
	tx.Source = original.Source
	tx.EmailID = original.EmailID
	tx.CreatedAt = original.CreatedAt

	if err := s.applyEffect(ctx, original, -1); err != nil {
		return err
	}
	if err := s.storage.LedgerStore().PutTransaction(ctx, tx); err != nil {
		return err
	}
	return s.applyEffect(ctx, tx, 1)
}

// RemoveTransaction deletes the transaction and reverses its balance effect.
func (s *Service) RemoveTransaction(ctx context.Context, userID, txID string) error {
	tx, err := s.storage.LedgerStore().GetTransaction(ctx, userID, txID)
	if err != nil {
		return err
	}
	if err := s.storage.LedgerStore().DeleteTransaction(ctx, userID, txID); err != nil {
		return err
	}
	return s.applyEffect(ctx, tx, -1)
}

// applyEffect applies (sign = 1) or reverses (sign = -1) a transaction's
// balance and budget effect on its account.
func (s *Service) applyEffect(ctx context.Context, tx *models.Transaction, sign float64) error {
	delta := tx.SignedAmount() * sign
	if err := s.storage.LedgerStore().AdjustBalance(ctx, tx.UserID, tx.AccountID, delta); err != nil {
		return err
	}
	if tx.Direction == models.DirectionDebit {
		if err := s.storage.LedgerStore().AdjustBudgetSpent(ctx, tx.UserID, tx.AccountID, tx.Category, tx.Amount*sign); err != nil {
			return err
		}
	}
	return nil
}

// SpendingByCategory totals debit transactions per category for the
// calendar month containing the given time.
func (s *Service) SpendingByCategory(ctx context.Context, userID string, month time.Time) ([]models.CategorySpend, error) {
	txs, err := s.storage.LedgerStore().ListTransactions(ctx, userID, interfaces.TransactionQuery{})
	if err != nil {
		return nil, err
	}

	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	totals := make(map[string]*models.CategorySpend)
	for _, tx := range txs {
		if tx.Direction != models.DirectionDebit {
			continue
		}
		if tx.Date.Before(start) || !tx.Date.Before(end) {
			continue
		}
		row, ok := totals[tx.Category]
		if !ok {
			row = &models.CategorySpend{Category: tx.Category}
			totals[tx.Category] = row
		}
		row.Total += tx.Amount
		row.Count++
	}

	var out []models.CategorySpend
	for _, category := range models.Categories {
		if row, ok := totals[category]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

// Ensure Service implements LedgerService
var _ interfaces.LedgerService = (*Service)(nil)
