// Package investment manages holdings and the scheduled price refresh.
package investment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
)

// Service implements interfaces.InvestmentService.
type Service struct {
	storage interfaces.StorageManager
	quotes  interfaces.QuoteClient
	logger  *common.Logger
}

// NewService creates a new investment service.
func NewService(storage interfaces.StorageManager, quotes interfaces.QuoteClient, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		quotes:  quotes,
		logger:  logger,
	}
}

func validateInvestment(inv *models.Investment) error {
	if inv.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if inv.Name == "" {
		return fmt.Errorf("investment name is required")
	}
	if inv.Kind != models.InvestmentKindSIP && inv.Kind != models.InvestmentKindStock {
		return fmt.Errorf("invalid investment kind %q", inv.Kind)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, inv *models.Investment) error {
	if err := validateInvestment(inv); err != nil {
		return err
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	inv.Value = inv.Price * inv.Units
	return s.storage.InvestmentStore().Put(ctx, inv)
}

func (s *Service) List(ctx context.Context, userID string) ([]*models.Investment, error) {
	return s.storage.InvestmentStore().List(ctx, userID)
}

func (s *Service) Update(ctx context.Context, inv *models.Investment) error {
	if err := validateInvestment(inv); err != nil {
		return err
	}
	existing, err := s.storage.InvestmentStore().Get(ctx, inv.UserID, inv.ID)
	if err != nil {
		return err
	}
	inv.CreatedAt = existing.CreatedAt
	inv.Value = inv.Price * inv.Units
	return s.storage.InvestmentStore().Put(ctx, inv)
}

func (s *Service) Delete(ctx context.Context, userID, investmentID string) error {
	return s.storage.InvestmentStore().Delete(ctx, userID, investmentID)
}

// RefreshPrices updates price, value, and last-updated for every holding
// that carries a symbol, across all users. One failing symbol never stops
// the sweep; it is logged and the next holding is tried.
func (s *Service) RefreshPrices(ctx context.Context) (int, error) {
	invs, err := s.storage.InvestmentStore().ListWithSymbol(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list holdings: %w", err)
	}

	updated := 0
	for _, inv := range invs {
		quote, err := s.quotes.GetQuote(ctx, inv.Symbol)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("investment_id", inv.ID).
				Str("symbol", inv.Symbol).
				Msg("Price refresh skipped")
			continue
		}

		inv.Price = quote.Price
		inv.Value = quote.Price * inv.Units
		inv.LastUpdated = time.Now().UTC()

		if err := s.storage.InvestmentStore().Put(ctx, inv); err != nil {
			s.logger.Warn().
				Err(err).
				Str("investment_id", inv.ID).
				Msg("Failed to save refreshed price")
			continue
		}
		updated++
	}

	s.logger.Info().
		Int("holdings", len(invs)).
		Int("updated", updated).
		Msg("Price refresh complete")
	return updated, nil
}

// Ensure Service implements InvestmentService
var _ interfaces.InvestmentService = (*Service)(nil)
