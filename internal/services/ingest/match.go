package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rbhatta/kosha/internal/models"
)

// matchAccount picks the account a transaction belongs to by looking for an
// account's bank name inside the email body, case-insensitively. With no
// bank match the first account wins; with no accounts at all a default one
// is created so the import never drops a transaction.
func (s *Service) matchAccount(ctx context.Context, userID, body string, accounts []*models.Account) (*models.Account, error) {
	if len(accounts) == 0 {
		account := &models.Account{
			ID:        uuid.NewString(),
			UserID:    userID,
			Name:      "Default Account",
			Bank:      "Unknown",
			Kind:      models.AccountKindDeposit,
			Balance:   0,
			Currency:  s.currency,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.storage.LedgerStore().PutAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to create default account: %w", err)
		}
		s.logger.Info().Str("user_id", userID).Msg("Created default account for import")
		return account, nil
	}

	lowerBody := strings.ToLower(body)
	for _, account := range accounts {
		if account.Bank != "" && strings.Contains(lowerBody, strings.ToLower(account.Bank)) {
			return account, nil
		}
	}
	return accounts[0], nil
}
