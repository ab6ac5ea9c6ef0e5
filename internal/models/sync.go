package models

import "time"

// Sync trigger statuses.
const (
	TriggerPending = "pending"
	TriggerRunning = "running"
)

// SyncTrigger is the short-lived marker that starts one ingestion run for a
// user. Created by a sync request, deleted unconditionally when the run ends.
// No field other than UserID is contractually meaningful.
type SyncTrigger struct {
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

// ParsedTransaction is the structured output of the transaction interpreter,
// after validation of the raw model reply.
type ParsedTransaction struct {
	Date     time.Time
	Amount   float64
	Type     string // debit | credit
	Merchant string
	Category string
}

// SyncReport summarizes one ingestion run.
type SyncReport struct {
	UserID    string        `json:"user_id"`
	Fetched   int           `json:"fetched"`
	Imported  int           `json:"imported"`
	Skipped   int           `json:"skipped"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}
