package models

import "time"

// InternalUser represents a user account stored in the internal database.
// Auth and identity only. Preferences and mailbox credentials are stored
// as UserKeyValue entries.
type InternalUser struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// UserKeyValue represents a per-user configuration key-value pair.
type UserKeyValue struct {
	UserID   string    `json:"user_id"`
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	DateTime time.Time `json:"datetime"`
}

// Well-known per-user KV keys.
const (
	KVGmailAccessToken  = "gmail_access_token"
	KVGmailRefreshToken = "gmail_refresh_token"
)
