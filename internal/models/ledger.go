package models

import "time"

// Account kinds. Deposit accounts carry a positive balance; credit accounts
// track outstanding spend against an optional limit.
const (
	AccountKindDeposit = "deposit"
	AccountKindCredit  = "credit"
)

// Transaction directions.
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// Transaction provenance.
const (
	SourceManual      = "manual"
	SourceEmailImport = "email-import"
)

// Categories is the closed set of transaction categories. Anything the
// interpreter produces outside this set is normalized to "other".
var Categories = []string{
	"food", "transport", "shopping", "bills",
	"entertainment", "healthcare", "education", "other",
}

// ValidCategory reports whether c is a member of the closed category set.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// NormalizeCategory maps an arbitrary category string into the closed set.
func NormalizeCategory(c string) string {
	if ValidCategory(c) {
		return c
	}
	return "other"
}

// Budget is a per-category spending budget on an account.
type Budget struct {
	Limit float64 `json:"limit"`
	Spent float64 `json:"spent"`
}

// Account is a bank or credit account owned by one user. Balance is the
// authoritative running total; it is mutated only through the ledger service,
// never recomputed from transaction history at read time.
type Account struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`
	Bank      string            `json:"bank"`
	Kind      string            `json:"kind"` // deposit | credit
	Balance   float64           `json:"balance"`
	Currency  string            `json:"currency"`
	Limit     float64           `json:"limit,omitempty"`   // credit accounts only
	Budgets   map[string]Budget `json:"budgets,omitempty"` // category -> budget
	CreatedAt time.Time         `json:"created_at"`
}

// Transaction is a single ledger entry. Amount is a non-negative magnitude;
// Direction carries the sign. Each creation applies exactly one balance
// mutation on its account.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AccountID string    `json:"account_id"`
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	Direction string    `json:"direction"` // debit | credit
	Merchant  string    `json:"merchant"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`             // manual | email-import
	EmailID   string    `json:"email_id,omitempty"` // source message id for email imports
	CreatedAt time.Time `json:"created_at"`
}

// SignedAmount returns the balance delta this transaction applies:
// negative for debits, positive for credits.
func (t *Transaction) SignedAmount() float64 {
	if t.Direction == DirectionDebit {
		return -t.Amount
	}
	return t.Amount
}

// BudgetAlert reports a category budget approaching or past its limit.
type BudgetAlert struct {
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	Category    string  `json:"category"`
	Limit       float64 `json:"limit"`
	Spent       float64 `json:"spent"`
	Percentage  float64 `json:"percentage"`
	Status      string  `json:"status"` // warning | exceeded
}

// CreditAlert reports a credit account near its limit.
type CreditAlert struct {
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	Balance     float64 `json:"balance"`
	Limit       float64 `json:"limit"`
	Percentage  float64 `json:"percentage"`
}

// CategorySpend is one row of a spending report.
type CategorySpend struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}
