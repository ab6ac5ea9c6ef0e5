// Package interfaces defines service contracts for Kosha
package interfaces

import (
	"context"

	"github.com/rbhatta/kosha/internal/models"
)

// MailCredentials is the OAuth token pair for one user's mailbox.
type MailCredentials struct {
	AccessToken  string
	RefreshToken string
}

// MailClient provides access to the mailbox API.
type MailClient interface {
	// ListMessages returns message refs matching the query, capped at max.
	// An empty result is normal, not an error.
	ListMessages(ctx context.Context, creds MailCredentials, query string, max int) ([]*models.MailRef, error)

	// GetMessage retrieves one full message including its MIME tree.
	GetMessage(ctx context.Context, creds MailCredentials, id string) (*models.MailMessage, error)

	// MarkRead clears the unread flag so the message is excluded from
	// future unread queries.
	MarkRead(ctx context.Context, creds MailCredentials, id string) error
}

// GeminiClient provides access to the Gemini API.
type GeminiClient interface {
	// GenerateContent generates model output from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// QuoteClient provides market price lookups.
type QuoteClient interface {
	// GetQuote retrieves the latest market price for a symbol
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}
