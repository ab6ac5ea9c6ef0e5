package app

import (
	"context"
	"sync"
	"time"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
)

// startTriggerWatcher polls for pending sync triggers and launches one
// ingestion run per user. A per-user in-flight guard keeps a slow run from
// being doubled up by the next poll tick.
func startTriggerWatcher(ctx context.Context, storage interfaces.StorageManager, ingest interfaces.IngestService, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var mu sync.Mutex
	inFlight := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Trigger watcher: stopped")
			return
		case <-ticker.C:
		}

		triggers, err := storage.TriggerStore().ListPending(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Trigger watcher: poll failed")
			continue
		}

		for _, trigger := range triggers {
			userID := trigger.UserID

			mu.Lock()
			if inFlight[userID] {
				mu.Unlock()
				continue
			}
			inFlight[userID] = true
			mu.Unlock()

			// Flip to running so other replicas and later polls see it claimed.
			trigger.Status = models.TriggerRunning
			if err := storage.TriggerStore().Put(ctx, trigger); err != nil {
				logger.Warn().Err(err).Str("user_id", userID).Msg("Trigger watcher: failed to claim trigger")
			}

			go func() {
				defer func() {
					mu.Lock()
					delete(inFlight, userID)
					mu.Unlock()
				}()

				report, err := ingest.Run(ctx, userID)
				if err != nil {
					logger.Warn().Err(err).Str("user_id", userID).Msg("Trigger watcher: ingestion run failed")
					return
				}
				logger.Info().
					Str("user_id", userID).
					Int("imported", report.Imported).
					Int("skipped", report.Skipped).
					Msg("Trigger watcher: ingestion run complete")
			}()
		}
	}
}
