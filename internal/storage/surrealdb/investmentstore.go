package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/models"
)

// InvestmentStore persists investment holdings.
type InvestmentStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewInvestmentStore(db *surrealdb.DB, logger *common.Logger) *InvestmentStore {
	return &InvestmentStore{
		db:     db,
		logger: logger,
	}
}

func (s *InvestmentStore) Get(ctx context.Context, userID, investmentID string) (*models.Investment, error) {
	inv, err := surrealdb.Select[models.Investment](ctx, s.db, surrealmodels.NewRecordID("investment", investmentID))
	if err != nil {
		return nil, fmt.Errorf("failed to select investment: %w", err)
	}
	if inv == nil || inv.ID == "" || inv.UserID != userID {
		return nil, fmt.Errorf("investment %s: %w", investmentID, ErrNotFound)
	}
	return inv, nil
}

func (s *InvestmentStore) List(ctx context.Context, userID string) ([]*models.Investment, error) {
	sql := "SELECT * FROM investment WHERE user_id = $user_id ORDER BY created_at ASC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]models.Investment](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}

	var invs []*models.Investment
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			invs = append(invs, &(*results)[0].Result[i])
		}
	}
	return invs, nil
}

func (s *InvestmentStore) Put(ctx context.Context, inv *models.Investment) error {
	sql := "UPSERT type::record('investment', $id) CONTENT $inv"
	vars := map[string]any{"id": inv.ID, "inv": inv}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Investment](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save investment after retries: %w", err)
		}
	}
	return nil
}

func (s *InvestmentStore) Delete(ctx context.Context, userID, investmentID string) error {
	if _, err := s.Get(ctx, userID, investmentID); err != nil {
		return err
	}
	_, err := surrealdb.Delete[models.Investment](ctx, s.db, surrealmodels.NewRecordID("investment", investmentID))
	if err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	return nil
}

func (s *InvestmentStore) ListWithSymbol(ctx context.Context) ([]*models.Investment, error) {
	sql := "SELECT * FROM investment WHERE symbol != NONE AND symbol != ''"

	results, err := surrealdb.Query[[]models.Investment](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments with symbols: %w", err)
	}

	var invs []*models.Investment
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			invs = append(invs, &(*results)[0].Result[i])
		}
	}
	return invs, nil
}
