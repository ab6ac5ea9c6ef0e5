package models

import "time"

// Investment kinds.
const (
	InvestmentKindSIP   = "sip"   // recurring contribution plan
	InvestmentKindStock = "stock" // single instrument holding
)

// Investment is a holding owned by one user. Value is always Price × Units;
// the price updater rewrites Price, Value, and LastUpdated together.
type Investment struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"` // sip | stock
	Amount       float64   `json:"amount"`
	Installments int       `json:"installments,omitempty"`
	Price        float64   `json:"price"` // current per-unit price (NAV for SIPs)
	Units        float64   `json:"units,omitempty"`
	Symbol       string    `json:"symbol,omitempty"`
	Value        float64   `json:"value"` // Price * Units
	LastUpdated  time.Time `json:"last_updated,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Quote is a single market price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
