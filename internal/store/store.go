// Package store persists leads, sends, engagement events, and dead letters.
// SQLite is the default backend; Postgres is available for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/sells-group/outreach-cli/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Status   model.LeadStatus `json:"status,omitempty"`
	Source   string           `json:"source,omitempty"`
	Unsynced bool             `json:"unsynced,omitempty"` // no airtable_id yet
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

// DeadLetterFilter specifies criteria for listing dead letters.
type DeadLetterFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Campaign  string `json:"campaign,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// DeadLetter is a failed outreach send parked for later retry or review.
type DeadLetter struct {
	ID         string    `json:"id"`
	LeadID     string    `json:"lead_id"`
	Campaign   string    `json:"campaign"`
	Step       int       `json:"step"`
	Error      string    `json:"error"`
	ErrorType  string    `json:"error_type"` // "transient" or "permanent"
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the persistence interface for the outreach pipeline.
type Store interface {
	// Leads
	UpsertLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error
	LinkAirtable(ctx context.Context, id, airtableID string) error
	LinkSalesforce(ctx context.Context, id, salesforceID string) error

	// Send log
	CreateSend(ctx context.Context, send *model.Send) error
	CompleteSend(ctx context.Context, sendID string, status model.SendStatus, errMsg string) error
	ListSends(ctx context.Context, leadID, campaign string) ([]model.Send, error)
	LastStepSend(ctx context.Context, leadID, campaign string) (*model.Send, error)

	// Engagement events
	RecordEvent(ctx context.Context, event *model.Event) error
	ListEvents(ctx context.Context, leadID string) ([]model.Event, error)

	// Dead letters
	AddDeadLetter(ctx context.Context, dl *DeadLetter) error
	ListDeadLetters(ctx context.Context, filter DeadLetterFilter) ([]DeadLetter, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Backuper is implemented by stores that can snapshot themselves to a file.
type Backuper interface {
	Backup(ctx context.Context, path string) error
}
