package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/models"
)

// TriggerStore persists per-user sync trigger markers. One record per user,
// keyed by user ID, so repeated sync requests collapse into a single run.
type TriggerStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewTriggerStore(db *surrealdb.DB, logger *common.Logger) *TriggerStore {
	return &TriggerStore{
		db:     db,
		logger: logger,
	}
}

func (s *TriggerStore) Put(ctx context.Context, trigger *models.SyncTrigger) error {
	sql := "UPSERT type::record('sync_trigger', $id) CONTENT $trigger"
	vars := map[string]any{"id": trigger.UserID, "trigger": trigger}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.SyncTrigger](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save sync trigger after retries: %w", err)
		}
	}
	return nil
}

func (s *TriggerStore) Get(ctx context.Context, userID string) (*models.SyncTrigger, error) {
	trigger, err := surrealdb.Select[models.SyncTrigger](ctx, s.db, surrealmodels.NewRecordID("sync_trigger", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to select sync trigger: %w", err)
	}
	if trigger == nil || trigger.UserID == "" {
		return nil, fmt.Errorf("sync trigger for %s: %w", userID, ErrNotFound)
	}
	return trigger, nil
}

func (s *TriggerStore) Delete(ctx context.Context, userID string) error {
	_, err := surrealdb.Delete[models.SyncTrigger](ctx, s.db, surrealmodels.NewRecordID("sync_trigger", userID))
	if err != nil {
		return fmt.Errorf("failed to delete sync trigger: %w", err)
	}
	return nil
}

func (s *TriggerStore) ListPending(ctx context.Context) ([]*models.SyncTrigger, error) {
	sql := "SELECT * FROM sync_trigger WHERE status = $status"
	vars := map[string]any{"status": models.TriggerPending}

	results, err := surrealdb.Query[[]models.SyncTrigger](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sync triggers: %w", err)
	}

	var triggers []*models.SyncTrigger
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			triggers = append(triggers, &(*results)[0].Result[i])
		}
	}
	return triggers, nil
}
