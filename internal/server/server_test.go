package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbhatta/kosha/internal/app"
	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
	"github.com/rbhatta/kosha/internal/services/investment"
	"github.com/rbhatta/kosha/internal/services/ledger"
)

// --- in-memory storage manager ---

type memInternalStore struct {
	users map[string]*models.InternalUser
	kv    map[string]string
}

func (m *memInternalStore) GetUser(ctx context.Context, userID string) (*models.InternalUser, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	return u, nil
}
func (m *memInternalStore) GetUserByEmail(ctx context.Context, email string) (*models.InternalUser, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s not found", email)
}
func (m *memInternalStore) SaveUser(ctx context.Context, user *models.InternalUser) error {
	m.users[user.UserID] = user
	return nil
}
func (m *memInternalStore) DeleteUser(ctx context.Context, userID string) error {
	delete(m.users, userID)
	return nil
}
func (m *memInternalStore) ListUsers(ctx context.Context) ([]string, error) { return nil, nil }
func (m *memInternalStore) GetUserKV(ctx context.Context, userID, key string) (*models.UserKeyValue, error) {
	v, ok := m.kv[userID+"|"+key]
	if !ok {
		return nil, fmt.Errorf("kv not found")
	}
	return &models.UserKeyValue{UserID: userID, Key: key, Value: v}, nil
}
func (m *memInternalStore) SetUserKV(ctx context.Context, userID, key, value string) error {
	m.kv[userID+"|"+key] = value
	return nil
}
func (m *memInternalStore) DeleteUserKV(ctx context.Context, userID, key string) error {
	delete(m.kv, userID+"|"+key)
	return nil
}
func (m *memInternalStore) GetSystemKV(ctx context.Context, key string) (string, error) {
	return "", fmt.Errorf("not found")
}
func (m *memInternalStore) SetSystemKV(ctx context.Context, key, value string) error { return nil }
func (m *memInternalStore) Close() error                                             { return nil }

type memLedgerStore struct {
	accounts     map[string]*models.Account
	transactions map[string]*models.Transaction
}

func (m *memLedgerStore) GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("account %s not found", accountID)
	}
	cp := *a
	return &cp, nil
}
func (m *memLedgerStore) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
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
func (m *memLedgerStore) PutAccount(ctx context.Context, account *models.Account) error {
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}
func (m *memLedgerStore) DeleteAccount(ctx context.Context, userID, accountID string) error {
	if a, ok := m.accounts[accountID]; !ok || a.UserID != userID {
		return fmt.Errorf("account %s not found", accountID)
	}
	delete(m.accounts, accountID)
	return nil
}
func (m *memLedgerStore) AdjustBalance(ctx context.Context, userID, accountID string, delta float64) error {
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return fmt.Errorf("account %s not found", accountID)
	}
	a.Balance += delta
	return nil
}
func (m *memLedgerStore) AdjustBudgetSpent(ctx context.Context, userID, accountID, category string, delta float64) error {
	a, ok := m.accounts[accountID]
	if !ok {
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
func (m *memLedgerStore) GetTransaction(ctx context.Context, userID, txID string) (*models.Transaction, error) {
	t, ok := m.transactions[txID]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("transaction %s not found", txID)
	}
	cp := *t
	return &cp, nil
}
func (m *memLedgerStore) ListTransactions(ctx context.Context, userID string, q interfaces.TransactionQuery) ([]*models.Transaction, error) {
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
func (m *memLedgerStore) PutTransaction(ctx context.Context, tx *models.Transaction) error {
	cp := *tx
	m.transactions[tx.ID] = &cp
	return nil
}
func (m *memLedgerStore) DeleteTransaction(ctx context.Context, userID, txID string) error {
	delete(m.transactions, txID)
	return nil
}
func (m *memLedgerStore) GetTransactionByEmailID(ctx context.Context, userID, emailID string) (*models.Transaction, error) {
	return nil, nil
}
func (m *memLedgerStore) Close() error { return nil }

type memInvestmentStore struct {
	investments map[string]*models.Investment
}

func (m *memInvestmentStore) Get(ctx context.Context, userID, investmentID string) (*models.Investment, error) {
	inv, ok := m.investments[investmentID]
	if !ok || inv.UserID != userID {
		return nil, fmt.Errorf("investment %s not found", investmentID)
	}
	cp := *inv
	return &cp, nil
}
func (m *memInvestmentStore) List(ctx context.Context, userID string) ([]*models.Investment, error) {
	var out []*models.Investment
	for _, inv := range m.investments {
		if inv.UserID == userID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (m *memInvestmentStore) Put(ctx context.Context, inv *models.Investment) error {
	cp := *inv
	m.investments[inv.ID] = &cp
	return nil
}
func (m *memInvestmentStore) Delete(ctx context.Context, userID, investmentID string) error {
	if inv, ok := m.investments[investmentID]; !ok || inv.UserID != userID {
		return fmt.Errorf("investment %s not found", investmentID)
	}
	delete(m.investments, investmentID)
	return nil
}
func (m *memInvestmentStore) ListWithSymbol(ctx context.Context) ([]*models.Investment, error) {
	return nil, nil
}

type memTriggerStore struct {
	triggers map[string]*models.SyncTrigger
}

func (m *memTriggerStore) Put(ctx context.Context, trigger *models.SyncTrigger) error {
	m.triggers[trigger.UserID] = trigger
	return nil
}
func (m *memTriggerStore) Get(ctx context.Context, userID string) (*models.SyncTrigger, error) {
	t, ok := m.triggers[userID]
	if !ok {
		return nil, fmt.Errorf("trigger not found")
	}
	return t, nil
}
func (m *memTriggerStore) Delete(ctx context.Context, userID string) error {
	delete(m.triggers, userID)
	return nil
}
func (m *memTriggerStore) ListPending(ctx context.Context) ([]*models.SyncTrigger, error) {
	return nil, nil
}

type memManager struct {
	internal    *memInternalStore
	ledger      *memLedgerStore
	investments *memInvestmentStore
	triggers    *memTriggerStore
}

func newMemManager() *memManager {
	return &memManager{
		internal: &memInternalStore{users: make(map[string]*models.InternalUser), kv: make(map[string]string)},
		ledger: &memLedgerStore{
			accounts:     make(map[string]*models.Account),
			transactions: make(map[string]*models.Transaction),
		},
		investments: &memInvestmentStore{investments: make(map[string]*models.Investment)},
		triggers:    &memTriggerStore{triggers: make(map[string]*models.SyncTrigger)},
	}
}

func (m *memManager) InternalStore() interfaces.InternalStore     { return m.internal }
func (m *memManager) LedgerStore() interfaces.LedgerStore         { return m.ledger }
func (m *memManager) InvestmentStore() interfaces.InvestmentStore { return m.investments }
func (m *memManager) TriggerStore() interfaces.TriggerStore       { return m.triggers }
func (m *memManager) Close() error                                { return nil }

type stubQuoteClient struct{}

func (stubQuoteClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return nil, fmt.Errorf("no quotes in tests")
}

// --- fixtures ---

func newTestServer(t *testing.T) (*Server, *memManager) {
	t.Helper()
	storage := newMemManager()
	logger := common.NewSilentLogger()
	config := common.NewDefaultConfig()

	a := &app.App{
		Config:            config,
		Logger:            logger,
		Storage:           storage,
		LedgerService:     ledger.NewService(storage, logger),
		InvestmentService: investment.NewService(storage, stubQuoteClient{}, logger),
		StartupTime:       time.Now(),
	}
	return NewServer(a), storage
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func signupAndLogin(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec, resp := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "test@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token, "signup returned no token")
	return token
}

// --- tests ---

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, resp := doJSON(t, srv.Handler(), http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp["status"])
}

func TestSignupLoginValidate(t *testing.T) {
	srv, storage := newTestServer(t)
	handler := srv.Handler()

	token := signupAndLogin(t, handler)

	// The stored user must carry a bcrypt hash, not the raw password.
	require.Len(t, storage.internal.users, 1)
	for _, u := range storage.internal.users {
		assert.NotEmpty(t, u.PasswordHash)
		assert.NotEqual(t, "correct-horse-battery", u.PasswordHash)
	}

	rec, resp := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "test@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, resp["token"])

	rec, resp = doJSON(t, handler, http.MethodGet, "/api/auth/validate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["valid"])

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "test@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()
	signupAndLogin(t, handler)

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "test@example.com",
		"password": "another-password",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/accounts"},
		{http.MethodGet, "/api/transactions"},
		{http.MethodGet, "/api/investments"},
		{http.MethodPost, "/api/sync"},
		{http.MethodGet, "/api/alerts"},
	}
	for _, p := range paths {
		rec, _ := doJSON(t, handler, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
	}

	// Garbage token is rejected by the middleware.
	rec, _ := doJSON(t, handler, http.MethodGet, "/api/accounts", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountCRUD(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()
	token := signupAndLogin(t, handler)

	rec, created := doJSON(t, handler, http.MethodPost, "/api/accounts", token, map[string]any{
		"name": "Salary", "bank": "HDFC", "kind": "deposit", "balance": 5000, "currency": "INR",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	accountID, _ := created["id"].(string)
	require.NotEmpty(t, accountID)

	rec, _ = doJSON(t, handler, http.MethodGet, "/api/accounts/"+accountID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodPut, "/api/accounts/"+accountID, token, map[string]any{
		"name": "Salary Plus", "bank": "HDFC", "kind": "deposit",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = doJSON(t, handler, http.MethodDelete, "/api/accounts/"+accountID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodGet, "/api/accounts/"+accountID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionFlow(t *testing.T) {
	srv, storage := newTestServer(t)
	handler := srv.Handler()
	token := signupAndLogin(t, handler)

	_, created := doJSON(t, handler, http.MethodPost, "/api/accounts", token, map[string]any{
		"name": "Main", "bank": "SBI", "kind": "deposit", "balance": 1000,
	})
	accountID, _ := created["id"].(string)
	require.NotEmpty(t, accountID)

	rec, tx := doJSON(t, handler, http.MethodPost, "/api/transactions", token, map[string]any{
		"account_id": accountID, "amount": 250, "direction": "debit",
		"merchant": "Grocery Mart", "category": "food",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.SourceManual, tx["source"])
	assert.Equal(t, float64(750), storage.ledger.accounts[accountID].Balance)

	rec, _ = doJSON(t, handler, http.MethodGet, "/api/transactions?account_id="+accountID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	txID, _ := tx["id"].(string)
	require.NotEmpty(t, txID)
	rec, _ = doJSON(t, handler, http.MethodDelete, "/api/transactions/"+txID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1000), storage.ledger.accounts[accountID].Balance)
}

func TestSyncTriggerLifecycle(t *testing.T) {
	srv, storage := newTestServer(t)
	handler := srv.Handler()
	token := signupAndLogin(t, handler)

	rec, resp := doJSON(t, handler, http.MethodPost, "/api/sync", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, models.TriggerPending, resp["status"])
	require.Len(t, storage.triggers.triggers, 1)

	// A second request collapses into the existing trigger.
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/sync", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, storage.triggers.triggers, 1)

	rec, resp = doJSON(t, handler, http.MethodGet, "/api/sync/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TriggerPending, resp["status"])
}

func TestGmailTokenStorage(t *testing.T) {
	srv, storage := newTestServer(t)
	handler := srv.Handler()
	token := signupAndLogin(t, handler)

	rec, _ := doJSON(t, handler, http.MethodPut, "/api/sync/gmail-token", token, map[string]string{
		"access_token":  "ya29.access",
		"refresh_token": "1//refresh",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, storage.internal.kv, 2)

	rec, _ = doJSON(t, handler, http.MethodDelete, "/api/sync/gmail-token", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, storage.internal.kv)
}

func TestInvestmentEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()
	token := signupAndLogin(t, handler)

	rec, created := doJSON(t, handler, http.MethodPost, "/api/investments", token, map[string]any{
		"name": "Nifty ETF", "kind": "stock", "price": 250, "units": 10, "symbol": "NIFTYBEES.NS",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2500), created["value"])

	rec, _ = doJSON(t, handler, http.MethodGet, "/api/investments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPathParam(t *testing.T) {
	tests := []struct {
		path   string
		prefix string
		suffix string
		want   string
	}{
		{"/api/accounts/abc", "/api/accounts/", "", "abc"},
		{"/api/accounts/abc/alerts", "/api/accounts/", "/alerts", "abc"},
		{"/api/accounts/abc/extra", "/api/accounts/", "", "abc"},
		{"/other", "/api/accounts/", "", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.path, nil)
		assert.Equal(t, tt.want, PathParam(r, tt.prefix, tt.suffix), "path %q", tt.path)
	}
}
