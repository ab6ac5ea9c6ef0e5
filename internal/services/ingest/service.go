// Package ingest runs the mail ingestion pipeline: unread bank notification
// emails are fetched, interpreted by the model, matched to an account, and
// written to the ledger.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
)

// Service implements interfaces.IngestService.
type Service struct {
	storage interfaces.StorageManager
	ledger  interfaces.LedgerService
	mail    interfaces.MailClient
	gemini  interfaces.GeminiClient
	logger  *common.Logger

	lookback    time.Duration
	maxMessages int
	bodyBudget  int
	currency    string
}

// NewService creates a new ingestion service.
func NewService(
	storage interfaces.StorageManager,
	ledger interfaces.LedgerService,
	mail interfaces.MailClient,
	gemini interfaces.GeminiClient,
	logger *common.Logger,
	config *common.Config,
) *Service {
	return &Service{
		storage:     storage,
		ledger:      ledger,
		mail:        mail,
		gemini:      gemini,
		logger:      logger,
		lookback:    config.Ingest.GetLookback(),
		maxMessages: config.Ingest.MaxMessages,
		bodyBudget:  config.Ingest.BodyBudget,
		currency:    config.Currency,
	}
}

// buildQuery composes the mailbox search predicate: unread messages inside
// the lookback window that look like bank notifications.
func buildQuery(now time.Time, lookback time.Duration) string {
	after := now.Add(-lookback).Unix()
	return fmt.Sprintf(`is:unread after:%d (subject:"debited" OR subject:"credited" OR subject:"transaction" OR from:"alerts" OR from:"noreply")`, after)
}

// credentials loads the user's stored mailbox tokens.
func (s *Service) credentials(ctx context.Context, userID string) (interfaces.MailCredentials, error) {
	var creds interfaces.MailCredentials

	access, err := s.storage.InternalStore().GetUserKV(ctx, userID, models.KVGmailAccessToken)
	if err != nil {
		return creds, fmt.Errorf("no mailbox credentials for user %s: %w", userID, err)
	}
	creds.AccessToken = access.Value

	if refresh, err := s.storage.InternalStore().GetUserKV(ctx, userID, models.KVGmailRefreshToken); err == nil {
		creds.RefreshToken = refresh.Value
	}
	return creds, nil
}

// Run executes one ingestion pass for a user. The user's sync trigger is
// deleted when the pass ends regardless of outcome, so a failed run never
// wedges future syncs.
func (s *Service) Run(ctx context.Context, userID string) (*models.SyncReport, error) {
	started := time.Now()
	report := &models.SyncReport{
		UserID:    userID,
		StartedAt: started.UTC(),
	}

	defer func() {
		if err := s.storage.TriggerStore().Delete(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to delete sync trigger")
		}
		report.Elapsed = time.Since(started)
	}()

	if s.gemini == nil {
		err := fmt.Errorf("gemini client not configured")
		s.logger.Warn().Str("user_id", userID).Msg("Ingestion skipped: no Gemini API key configured")
		return report, err
	}

	creds, err := s.credentials(ctx, userID)
	if err != nil {
		return report, err
	}

	query := buildQuery(time.Now(), s.lookback)
	refs, err := s.mail.ListMessages(ctx, creds, query, s.maxMessages)
	if err != nil {
		return report, fmt.Errorf("failed to list messages: %w", err)
	}
	report.Fetched = len(refs)

	s.logger.Info().
		Str("user_id", userID).
		Int("candidates", len(refs)).
		Msg("Ingestion run started")

	for _, ref := range refs {
		if err := s.processMessage(ctx, userID, creds, ref.ID); err != nil {
			report.Skipped++
			s.logger.Warn().
				Err(err).
				Str("user_id", userID).
				Str("message_id", ref.ID).
				Msg("Message skipped")
			continue
		}
		report.Imported++
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("imported", report.Imported).
		Int("skipped", report.Skipped).
		Msg("Ingestion run finished")

	return report, nil
}

// processMessage handles one candidate email end to end. An error skips
// this message only; the run continues with the next one.
func (s *Service) processMessage(ctx context.Context, userID string, creds interfaces.MailCredentials, messageID string) error {
	existing, err := s.storage.LedgerStore().GetTransactionByEmailID(ctx, userID, messageID)
	if err != nil {
		return fmt.Errorf("dedupe check failed: %w", err)
	}
	if existing != nil {
		s.markRead(ctx, creds, messageID)
		return fmt.Errorf("already imported as transaction %s", existing.ID)
	}

	msg, err := s.mail.GetMessage(ctx, creds, messageID)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	body := extractBody(msg)
	if body == "" {
		return fmt.Errorf("no readable body")
	}

	accounts, err := s.storage.LedgerStore().ListAccounts(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	parsed, err := s.interpret(ctx, body, accounts)
	if err != nil {
		return fmt.Errorf("interpret failed: %w", err)
	}

	account, err := s.matchAccount(ctx, userID, body, accounts)
	if err != nil {
		return err
	}

	tx := &models.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		AccountID: account.ID,
		Date:      parsed.Date,
		Amount:    parsed.Amount,
		Direction: parsed.Type,
		Merchant:  parsed.Merchant,
		Category:  parsed.Category,
		Source:    models.SourceEmailImport,
		EmailID:   messageID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.ledger.RecordTransaction(ctx, tx); err != nil {
		return fmt.Errorf("record failed: %w", err)
	}

	s.markRead(ctx, creds, messageID)

	s.logger.Debug().
		Str("user_id", userID).
		Str("transaction_id", tx.ID).
		Str("merchant", tx.Merchant).
		Float64("amount", tx.Amount).
		Msg("Transaction imported")

	return nil
}

// markRead is best-effort. A transaction that is already recorded must not
// be rolled back because a label update failed; the dedupe check catches
// the message on the next run instead.
func (s *Service) markRead(ctx context.Context, creds interfaces.MailCredentials, messageID string) {
	if err := s.mail.MarkRead(ctx, creds, messageID); err != nil {
		s.logger.Warn().Err(err).Str("message_id", messageID).Msg("Failed to mark message read")
	}
}

// Ensure Service implements IngestService
var _ interfaces.IngestService = (*Service)(nil)
