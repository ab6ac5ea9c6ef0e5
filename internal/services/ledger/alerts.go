package ledger

import (
	"context"
	"math"

	"github.com/rbhatta/kosha/internal/models"
)

// Alert thresholds, in percent of the limit.
const (
	budgetWarningThreshold  = 80.0
	budgetExceededThreshold = 100.0
	creditAlertThreshold    = 90.0
)

// Alerts evaluates every account's category budgets and, for credit
// accounts, the utilization against the credit limit.
func (s *Service) Alerts(ctx context.Context, userID string) ([]models.BudgetAlert, []models.CreditAlert, error) {
	accounts, err := s.storage.LedgerStore().ListAccounts(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	var budgetAlerts []models.BudgetAlert
	var creditAlerts []models.CreditAlert

	for _, account := range accounts {
		for _, category := range models.Categories {
			budget, ok := account.Budgets[category]
			if !ok || budget.Limit <= 0 {
				continue
			}
			pct := budget.Spent / budget.Limit * 100
			if pct < budgetWarningThreshold {
				continue
			}
			status := "warning"
			if pct >= budgetExceededThreshold {
				status = "exceeded"
			}
			budgetAlerts = append(budgetAlerts, models.BudgetAlert{
				AccountID:   account.ID,
				AccountName: account.Name,
				Category:    category,
				Limit:       budget.Limit,
				Spent:       budget.Spent,
				Percentage:  pct,
				Status:      status,
			})
		}

		if account.Kind != models.AccountKindCredit || account.Limit <= 0 {
			continue
		}
		// Outstanding credit spend is tracked as a negative balance.
		outstanding := math.Abs(account.Balance)
		pct := outstanding / account.Limit * 100
		if pct >= creditAlertThreshold {
			creditAlerts = append(creditAlerts, models.CreditAlert{
				AccountID:   account.ID,
				AccountName: account.Name,
				Balance:     account.Balance,
				Limit:       account.Limit,
				Percentage:  pct,
			})
		}
	}

	return budgetAlerts, creditAlerts, nil
}
