// Package gmail provides a client for the Gmail REST API
package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rbhatta/kosha/internal/common"
	"github.com/rbhatta/kosha/internal/interfaces"
	"github.com/rbhatta/kosha/internal/models"
)

const (
	DefaultBaseURL   = "https://gmail.googleapis.com/gmail/v1"
	DefaultTokenURL  = "https://oauth2.googleapis.com/token"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the MailClient interface against the Gmail v1 REST API.
// All calls operate on the "me" mailbox of the supplied credentials.
type Client struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the API base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTokenURL sets the OAuth token endpoint
func WithTokenURL(tokenURL string) ClientOption {
	return func(c *Client) {
		c.tokenURL = tokenURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Gmail client. clientID and clientSecret are the
// OAuth application credentials used for token refresh.
func NewClient(clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		tokenURL:     DefaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  common.NewSilentLogger(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a Gmail API error response.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Gmail API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// do performs a rate-limited authenticated request. On a 401 it refreshes the
// access token once using the refresh token and retries. The body is carried
// as bytes so the retry sends a fresh copy rather than a drained reader.
func (c *Client) do(ctx context.Context, creds interfaces.MailCredentials, method, path string, params url.Values, body []byte, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	token := creds.AccessToken
	resp, err := c.request(ctx, token, method, path, params, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && creds.RefreshToken != "" {
		resp.Body.Close()
		token, err = c.refreshAccessToken(ctx, creds.RefreshToken)
		if err != nil {
			return fmt.Errorf("token refresh: %w", err)
		}
		resp, err = c.request(ctx, token, method, path, params, body)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(b),
			Endpoint:   path,
		}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, token, method, path string, params url.Values, body []byte) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("Gmail API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	return resp, nil
}

// refreshAccessToken exchanges a refresh token for a fresh access token.
func (c *Client) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(b), Endpoint: "/token"}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	c.logger.Debug().Msg("Gmail access token refreshed")
	return tokenResp.AccessToken, nil
}

// ListMessages returns message refs matching the search query, newest first.
func (c *Client) ListMessages(ctx context.Context, creds interfaces.MailCredentials, query string, max int) ([]*models.MailRef, error) {
	params := url.Values{}
	params.Set("q", query)
	if max > 0 {
		params.Set("maxResults", fmt.Sprintf("%d", max))
	}

	var listResp struct {
		Messages []*models.MailRef `json:"messages"`
	}
	if err := c.do(ctx, creds, http.MethodGet, "/users/me/messages", params, nil, &listResp); err != nil {
		return nil, err
	}
	return listResp.Messages, nil
}

// GetMessage retrieves one full message including its MIME tree.
func (c *Client) GetMessage(ctx context.Context, creds interfaces.MailCredentials, id string) (*models.MailMessage, error) {
	params := url.Values{}
	params.Set("format", "full")

	var msg models.MailMessage
	if err := c.do(ctx, creds, http.MethodGet, "/users/me/messages/"+id, params, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead removes the UNREAD label from a message.
func (c *Client) MarkRead(ctx context.Context, creds interfaces.MailCredentials, id string) error {
	body, err := json.Marshal(map[string]any{
		"removeLabelIds": []string{"UNREAD"},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal modify request: %w", err)
	}

	return c.do(ctx, creds, http.MethodPost, "/users/me/messages/"+id+"/modify", nil, body, nil)
}

// Ensure Client implements MailClient
var _ interfaces.MailClient = (*Client)(nil)
