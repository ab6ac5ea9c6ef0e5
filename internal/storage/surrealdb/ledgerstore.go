package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
)

// LedgerStore persists accounts and transactions.
type LedgerStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewLedgerStore(db *surrealdb.DB, logger *common.Logger) *LedgerStore {
	return &LedgerStore{
		db:     db,
		logger: logger,
	}
}

func (s *LedgerStore) GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	account, err := surrealdb.Select[models.Account](ctx, s.db, surrealmodels.NewRecordID("account", accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to select account: %w", err)
	}
	if account == nil || account.ID == "" || account.UserID != userID {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return account, nil
}

func (s *LedgerStore) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	sql := "SELECT * FROM account WHERE user_id = $user_id ORDER BY created_at ASC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]models.Account](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var accounts []*models.Account
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			accounts = append(accounts, &(*results)[0].Result[i])
		}
	}
	return accounts, nil
}

func (s *LedgerStore) PutAccount(ctx context.Context, account *models.Account) error {
	sql := "UPSERT type::record('account', $id) CONTENT $account"
	vars := map[string]any{"id": account.ID, "account": account}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Account](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save account after retries: %w", err)
		}
	}
	return nil
}

func (s *LedgerStore) DeleteAccount(ctx context.Context, userID, accountID string) error {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return err
	}
	_, err := surrealdb.Delete[models.Account](ctx, s.db, surrealmodels.NewRecordID("account", accountID))
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// AdjustBalance applies the delta as a single field-level update so two
// concurrent ingestion runs cannot lose a write through read-modify-write.
func (s *LedgerStore) AdjustBalance(ctx context.Context, userID, accountID string, delta float64) error {
	sql := "UPDATE type::record('account', $id) SET balance += $delta WHERE user_id = $user_id"
	vars := map[string]any{"id": accountID, "delta": delta, "user_id": userID}

	results, err := surrealdb.Query[[]models.Account](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return nil
}

// AdjustBudgetSpent bumps the spent figure for one budget category. Accounts
// without a budget for the category are left untouched.
func (s *LedgerStore) AdjustBudgetSpent(ctx context.Context, userID, accountID, category string, delta float64) error {
	sql := "UPDATE type::record('account', $id) SET budgets[$category].spent += $delta WHERE user_id = $user_id AND budgets[$category] != NONE"
	vars := map[string]any{"id": accountID, "category": category, "delta": delta, "user_id": userID}

	if _, err := surrealdb.Query[[]models.Account](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to adjust budget spent: %w", err)
	}
	return nil
}

func (s *LedgerStore) GetTransaction(ctx context.Context, userID, txID string) (*models.Transaction, error) {
	tx, err := surrealdb.Select[models.Transaction](ctx, s.db, surrealmodels.NewRecordID("transaction", txID))
	if err != nil {
		return nil, fmt.Errorf("failed to select transaction: %w", err)
	}
	if tx == nil || tx.ID == "" || tx.UserID != userID {
		return nil, fmt.Errorf("transaction %s: %w", txID, ErrNotFound)
	}
	return tx, nil
}

func (s *LedgerStore) ListTransactions(ctx context.Context, userID string, q interfaces.TransactionQuery) ([]*models.Transaction, error) {
	order := "DESC"
	if q.OrderBy == "date_asc" {
		order = "ASC"
	}

	sql := "SELECT * FROM transaction WHERE user_id = $user_id"
	vars := map[string]any{"user_id": userID}
	if q.AccountID != "" {
		sql += " AND account_id = $account_id"
		vars["account_id"] = q.AccountID
	}
	sql += " ORDER BY date " + order
	if q.Limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = q.Limit
	}
	if q.Offset > 0 {
		sql += " START $start"
		vars["start"] = q.Offset
	}

	results, err := surrealdb.Query[[]models.Transaction](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var txs []*models.Transaction
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			txs = append(txs, &(*results)[0].Result[i])
		}
	}
	return txs, nil
}

func (s *LedgerStore) PutTransaction(ctx context.Context, tx *models.Transaction) error {
	sql := "UPSERT type::record('transaction', $id) CONTENT $tx"
	vars := map[string]any{"id": tx.ID, "tx": tx}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Transaction](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save transaction after retries: %w", err)
		}
	}
	return nil
}

func (s *LedgerStore) DeleteTransaction(ctx context.Context, userID, txID string) error {
	if _, err := s.GetTransaction(ctx, userID, txID); err != nil {
		return err
	}
	_, err := surrealdb.Delete[models.Transaction](ctx, s.db, surrealmodels.NewRecordID("transaction", txID))
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (s *LedgerStore) GetTransactionByEmailID(ctx context.Context, userID, emailID string) (*models.Transaction, error) {
	sql := "SELECT * FROM transaction WHERE user_id = $user_id AND email_id = $email_id LIMIT 1"
	vars := map[string]any{"user_id": userID, "email_id": emailID}

	results, err := surrealdb.Query[[]models.Transaction](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction by email id: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return &(*results)[0].Result[0], nil
	}
	return nil, nil
}

func (s *LedgerStore) Close() error {
	return nil
}
