package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rbhatta/kosha/internal/models"
)

// dateLayout is the day-first layout the model is instructed to emit.
const dateLayout = "02-01-2006"

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

type rawParse struct {
	Date     string      `json:"date"`
	Amount   flexFloat64 `json:"amount"`
	Type     string      `json:"type"`
	Merchant string      `json:"merchant"`
	Category string      `json:"category"`
}

// buildPrompt composes the extraction prompt. The body is truncated to the
// budget so one oversized newsletter cannot blow the token window. The
// user's accounts are listed so the model can anchor merchant and category
// guesses to a known bank.
func buildPrompt(body string, budget int, accounts []*models.Account) string {
	if budget > 0 && len(body) > budget {
		body = body[:budget]
	}

	var sb strings.Builder
	sb.WriteString("Extract the transaction details from this bank notification email.\n")
	sb.WriteString("Respond with ONLY a JSON object, no explanation, in exactly this shape:\n")
	sb.WriteString(`{"date": "DD-MM-YYYY", "amount": 0.0, "type": "debit", "merchant": "name", "category": "food"}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- type must be \"debit\" or \"credit\"\n")
	sb.WriteString("- category must be one of: ")
	sb.WriteString(strings.Join(models.Categories, ", "))
	sb.WriteString("\n- amount is the transaction amount as a number, no currency symbol\n")
	if len(accounts) > 0 {
		sb.WriteString("\nAvailable accounts:\n")
		for _, account := range accounts {
			sb.WriteString("- ")
			sb.WriteString(account.Name)
			if account.Bank != "" {
				sb.WriteString(" (")
				sb.WriteString(account.Bank)
				sb.WriteString(")")
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nEmail:\n")
	sb.WriteString(body)
	return sb.String()
}

// interpret sends the email body to the model and validates its reply into
// a ParsedTransaction.
func (s *Service) interpret(ctx context.Context, body string, accounts []*models.Account) (*models.ParsedTransaction, error) {
	reply, err := s.gemini.GenerateContent(ctx, buildPrompt(body, s.bodyBudget, accounts))
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	obj, err := firstJSONObject(reply)
	if err != nil {
		return nil, err
	}

	var raw rawParse
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("malformed JSON in reply: %w", err)
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(raw.Date))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", raw.Date, err)
	}

	amount := float64(raw.Amount)
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("invalid amount %v", amount)
	}

	txType := strings.ToLower(strings.TrimSpace(raw.Type))
	if txType != models.DirectionDebit && txType != models.DirectionCredit {
		return nil, fmt.Errorf("invalid type %q", raw.Type)
	}

	merchant := strings.TrimSpace(raw.Merchant)
	if merchant == "" {
		merchant = "Unknown"
	}

	return &models.ParsedTransaction{
		Date:     date,
		Amount:   amount,
		Type:     txType,
		Merchant: merchant,
		Category: models.NormalizeCategory(strings.ToLower(strings.TrimSpace(raw.Category))),
	}, nil
}
