package ledger

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
)

// mockLedgerStore is an in-memory LedgerStore.
type mockLedgerStore struct {
	accounts     map[string]*models.Account
	transactions map[string]*models.Transaction
}

func newMockLedgerStore() *mockLedgerStore {
	return &mockLedgerStore{
		accounts:     make(map[string]*models.Account),
		transactions: make(map[string]*models.Transaction),
	}
}

func (m *mockLedgerStore) GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("account %s not found", accountID)
	}
	cp := *a
	return &cp, nil
}

func (m *mockLedgerStore) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockLedgerStore) PutAccount(ctx context.Context, account *models.Account) error {
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *mockLedgerStore) DeleteAccount(ctx context.Context, userID, accountID string) error {
	delete(m.accounts, accountID)
	return nil
}

func (m *mockLedgerStore) AdjustBalance(ctx context.Context, userID, accountID string, delta float64) error {
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return fmt.Errorf("account %s not found", accountID)
	}
	a.Balance += delta
	return nil
}

func (m *mockLedgerStore) AdjustBudgetSpent(ctx context.Context, userID, accountID, category string, delta float64) error {
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return fmt.Errorf("account %s not found", accountID)
	}
	b, ok := a.Budgets[category]
	if !ok {
		return nil
	}
	b.Spent += delta
	a.Budgets[category] = b
	return nil
}

func (m *mockLedgerStore) GetTransaction(ctx context.Context, userID, txID string) (*models.Transaction, error) {
	t, ok := m.transactions[txID]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("transaction %s not found", txID)
	}
	cp := *t
	return &cp, nil
}

func (m *mockLedgerStore) ListTransactions(ctx context.Context, userID string, q interfaces.TransactionQuery) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, t := range m.transactions {
		if t.UserID != userID {
			continue
		}
		if q.AccountID != "" && t.AccountID != q.AccountID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockLedgerStore) PutTransaction(ctx context.Context, tx *models.Transaction) error {
	cp := *tx
	m.transactions[tx.ID] = &cp
	return nil
}

func (m *mockLedgerStore) DeleteTransaction(ctx context.Context, userID, txID string) error {
	delete(m.transactions, txID)
	return nil
}

func (m *mockLedgerStore) GetTransactionByEmailID(ctx context.Context, userID, emailID string) (*models.Transaction, error) {
	for _, t := range m.transactions {
		if t.UserID == userID && t.EmailID == emailID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockLedgerStore) Close() error { return nil }

// mockManager wires the mock store into a StorageManager.
type mockManager struct {
	ledger *mockLedgerStore
}

func (m *mockManager) InternalStore() interfaces.InternalStore     { return nil }
func (m *mockManager) LedgerStore() interfaces.LedgerStore         { return m.ledger }
func (m *mockManager) InvestmentStore() interfaces.InvestmentStore { return nil }
func (m *mockManager) TriggerStore() interfaces.TriggerStore       { return nil }
func (m *mockManager) Close() error                                { return nil }

func newTestService() (*Service, *mockLedgerStore) {
	store := newMockLedgerStore()
	svc := NewService(&mockManager{ledger: store}, common.NewSilentLogger())
	return svc, store
}

func seedAccount(store *mockLedgerStore, account *models.Account) {
	cp := *account
	store.accounts[account.ID] = &cp
}

func TestRecordTransactionDebit(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{
		ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit,
		Balance: 1000,
		Budgets: map[string]models.Budget{"food": {Limit: 500, Spent: 100}},
	})

	tx := &models.Transaction{
		UserID: "u1", AccountID: "acc-1",
		Date: time.Now(), Amount: 250, Direction: models.DirectionDebit,
		Merchant: "Cafe", Category: "food",
	}
	if err := svc.RecordTransaction(context.Background(), tx); err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}

	if tx.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if tx.Source != models.SourceManual {
		t.Errorf("expected source manual, got %s", tx.Source)
	}

	account := store.accounts["acc-1"]
	if account.Balance != 750 {
		t.Errorf("expected balance 750, got %f", account.Balance)
	}
	if account.Budgets["food"].Spent != 350 {
		t.Errorf("expected food spent 350, got %f", account.Budgets["food"].Spent)
	}
}

func TestRecordTransactionCredit(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{
		ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit, Balance: 1000,
	})

	tx := &models.Transaction{
		UserID: "u1", AccountID: "acc-1",
		Date: time.Now(), Amount: 400, Direction: models.DirectionCredit,
		Merchant: "Employer", Category: "other",
	}
	if err := svc.RecordTransaction(context.Background(), tx); err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}

	if got := store.accounts["acc-1"].Balance; got != 1400 {
		t.Errorf("expected balance 1400, got %f", got)
	}
	if len(store.accounts["acc-1"].Budgets) != 0 {
		t.Error("credits must not touch budgets")
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit})

	tests := []struct {
		name string
		tx   *models.Transaction
	}{
		{"zero amount", &models.Transaction{UserID: "u1", AccountID: "acc-1", Amount: 0, Direction: "debit"}},
		{"negative amount", &models.Transaction{UserID: "u1", AccountID: "acc-1", Amount: -5, Direction: "debit"}},
		{"bad direction", &models.Transaction{UserID: "u1", AccountID: "acc-1", Amount: 10, Direction: "sideways"}},
		{"missing account", &models.Transaction{UserID: "u1", AccountID: "nope", Amount: 10, Direction: "debit"}},
		{"wrong user", &models.Transaction{UserID: "u2", AccountID: "acc-1", Amount: 10, Direction: "debit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.RecordTransaction(context.Background(), tt.tx); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRecordTransactionNormalizesCategory(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit})

	tx := &models.Transaction{
		UserID: "u1", AccountID: "acc-1",
		Date: time.Now(), Amount: 10, Direction: models.DirectionDebit, Category: "groceries",
	}
	if err := svc.RecordTransaction(context.Background(), tx); err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if tx.Category != "other" {
		t.Errorf("expected category normalized to other, got %s", tx.Category)
	}
}

func TestAmendTransaction(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{
		ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit,
		Balance: 1000,
		Budgets: map[string]models.Budget{"food": {Limit: 500}, "transport": {Limit: 300}},
	})

	tx := &models.Transaction{
		UserID: "u1", AccountID: "acc-1",
		Date: time.Now(), Amount: 200, Direction: models.DirectionDebit, Category: "food",
	}
	if err := svc.RecordTransaction(context.Background(), tx); err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}

	// Correct the amount and category.
	amended := *tx
	amended.Amount = 150
	amended.Category = "transport"
	if err := svc.AmendTransaction(context.Background(), &amended); err != nil {
		t.Fatalf("AmendTransaction failed: %v", err)
	}

	account := store.accounts["acc-1"]
	if account.Balance != 850 {
		t.Errorf("expected balance 850 after amend, got %f", account.Balance)
	}
	if got := account.Budgets["food"].Spent; got != 0 {
		t.Errorf("expected food spent reversed to 0, got %f", got)
	}
	if got := account.Budgets["transport"].Spent; got != 150 {
		t.Errorf("expected transport spent 150, got %f", got)
	}
}

func TestRemoveTransaction(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{
		ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit, Balance: 1000,
	})

	tx := &models.Transaction{
		UserID: "u1", AccountID: "acc-1",
		Date: time.Now(), Amount: 300, Direction: models.DirectionDebit, Category: "other",
	}
	if err := svc.RecordTransaction(context.Background(), tx); err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if err := svc.RemoveTransaction(context.Background(), "u1", tx.ID); err != nil {
		t.Fatalf("RemoveTransaction failed: %v", err)
	}

	if got := store.accounts["acc-1"].Balance; got != 1000 {
		t.Errorf("expected balance restored to 1000, got %f", got)
	}
	if _, ok := store.transactions[tx.ID]; ok {
		t.Error("expected transaction deleted")
	}
}

func TestAlerts(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{
		ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit,
		Budgets: map[string]models.Budget{
			"food":      {Limit: 500, Spent: 420},  // 84% -> warning
			"transport": {Limit: 300, Spent: 330},  // 110% -> exceeded
			"shopping":  {Limit: 1000, Spent: 100}, // 10% -> quiet
		},
	})
	seedAccount(store, &models.Account{
		ID: "acc-2", UserID: "u1", Name: "Card", Kind: models.AccountKindCredit,
		Balance: -46000, Limit: 50000, // 92% utilization
	})
	seedAccount(store, &models.Account{
		ID: "acc-3", UserID: "u1", Name: "Spare Card", Kind: models.AccountKindCredit,
		Balance: -10000, Limit: 50000, // 20%, quiet
	})

	budgetAlerts, creditAlerts, err := svc.Alerts(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Alerts failed: %v", err)
	}

	if len(budgetAlerts) != 2 {
		t.Fatalf("expected 2 budget alerts, got %d", len(budgetAlerts))
	}
	byCategory := make(map[string]models.BudgetAlert)
	for _, a := range budgetAlerts {
		byCategory[a.Category] = a
	}
	if byCategory["food"].Status != "warning" {
		t.Errorf("expected food warning, got %s", byCategory["food"].Status)
	}
	if byCategory["transport"].Status != "exceeded" {
		t.Errorf("expected transport exceeded, got %s", byCategory["transport"].Status)
	}

	if len(creditAlerts) != 1 {
		t.Fatalf("expected 1 credit alert, got %d", len(creditAlerts))
	}
	if creditAlerts[0].AccountID != "acc-2" {
		t.Errorf("expected alert on acc-2, got %s", creditAlerts[0].AccountID)
	}
}

func TestSpendingByCategory(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit})

	may := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		{ID: "t1", UserID: "u1", AccountID: "acc-1", Date: may, Amount: 100, Direction: "debit", Category: "food"},
		{ID: "t2", UserID: "u1", AccountID: "acc-1", Date: may.AddDate(0, 0, 3), Amount: 50, Direction: "debit", Category: "food"},
		{ID: "t3", UserID: "u1", AccountID: "acc-1", Date: may, Amount: 80, Direction: "debit", Category: "bills"},
		// outside the month
		{ID: "t4", UserID: "u1", AccountID: "acc-1", Date: may.AddDate(0, 1, 0), Amount: 999, Direction: "debit", Category: "food"},
		// credits excluded
		{ID: "t5", UserID: "u1", AccountID: "acc-1", Date: may, Amount: 5000, Direction: "credit", Category: "other"},
	}
	for _, tx := range txs {
		store.transactions[tx.ID] = tx
	}

	rows, err := svc.SpendingByCategory(context.Background(), "u1", may)
	if err != nil {
		t.Fatalf("SpendingByCategory failed: %v", err)
	}

	got := make(map[string]models.CategorySpend)
	for _, r := range rows {
		got[r.Category] = r
	}
	if got["food"].Total != 150 || got["food"].Count != 2 {
		t.Errorf("unexpected food row: %+v", got["food"])
	}
	if got["bills"].Total != 80 || got["bills"].Count != 1 {
		t.Errorf("unexpected bills row: %+v", got["bills"])
	}
	if _, ok := got["other"]; ok {
		t.Error("credit transaction must not appear in spending report")
	}
}

func TestUpdateAccountPreservesBalance(t *testing.T) {
	svc, store := newTestService()
	seedAccount(store, &models.Account{
		ID: "acc-1", UserID: "u1", Name: "Savings", Kind: models.AccountKindDeposit,
		Balance: 777, CreatedAt: time.Now().Add(-time.Hour),
	})

	edit := &models.Account{
		ID: "acc-1", UserID: "u1", Name: "Renamed", Kind: models.AccountKindDeposit,
		Balance: 0, // client-sent balance must be ignored
	}
	if err := svc.UpdateAccount(context.Background(), edit); err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	if got := store.accounts["acc-1"].Balance; got != 777 {
		t.Errorf("expected balance preserved at 777, got %f", got)
	}
	if got := store.accounts["acc-1"].Name; got != "Renamed" {
		t.Errorf("expected name Renamed, got %s", got)
	}
}
