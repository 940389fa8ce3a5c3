package model

import (
	"strings"
	"time"
)

// LeadStatus tracks where a lead sits in the outreach funnel.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusCleaned      LeadStatus = "cleaned"
	LeadStatusQueued       LeadStatus = "queued"
	LeadStatusContacted    LeadStatus = "contacted"
	LeadStatusReplied      LeadStatus = "replied"
	LeadStatusBounced      LeadStatus = "bounced"
	LeadStatusUnsubscribed LeadStatus = "unsubscribed"
	LeadStatusPromoted     LeadStatus = "promoted"
	LeadStatusArchived     LeadStatus = "archived"
)

// Lead is the typed lead row stored locally. AirtableID and SalesforceID are
// the opaque identities assigned by those systems once the lead is synced or
// promoted.
type Lead struct {
	ID           string     `json:"id" csv:"id"`
	AirtableID   string     `json:"airtable_id,omitempty" csv:"airtable_id"`
	SalesforceID string     `json:"salesforce_id,omitempty" csv:"salesforce_id"`
	Name         string     `json:"name" csv:"name"`
	Company      string     `json:"company" csv:"company"`
	Email        string     `json:"email" csv:"email"`
	Website      string     `json:"website" csv:"website"`
	LinkedInURL  string     `json:"linkedin_url,omitempty" csv:"linkedin_url"`
	Phone        string     `json:"phone,omitempty" csv:"phone"`
	City         string     `json:"city,omitempty" csv:"city"`
	State        string     `json:"state,omitempty" csv:"state"`
	Source       string     `json:"source,omitempty" csv:"source"`
	Status       LeadStatus `json:"status" csv:"status"`
	Confidence   float64    `json:"confidence" csv:"confidence"`
	Notes        string     `json:"notes,omitempty" csv:"-"`
	CreatedAt    time.Time  `json:"created_at" csv:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" csv:"updated_at"`
	SyncedAt     *time.Time `json:"synced_at,omitempty" csv:"-"`
}

// Record produces the canonical dedupe view of the lead.
func (l *Lead) Record() Record {
	return Record{
		"id":          l.ID,
		"airtable_id": l.AirtableID,
		FieldName:     l.Name,
		FieldCompany:  l.Company,
		FieldEmail:    l.Email,
		FieldWebsite:  l.Website,
		FieldLinkedIn: l.LinkedInURL,
	}
}

// FirstName returns the leading token of the lead's name, for template
// rendering. Falls back to "there" when the name is empty.
func (l *Lead) FirstName() string {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		return "there"
	}
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

// Engaged reports whether the lead has shown outreach engagement worth
// promoting to Salesforce.
func (l *Lead) Engaged() bool {
	return l.Status == LeadStatusReplied
}

// SendStatus tracks the outcome of one outreach email.
type SendStatus string

const (
	SendStatusPending SendStatus = "pending"
	SendStatusSent    SendStatus = "sent"
	SendStatusFailed  SendStatus = "failed"
)

// Send is one outreach email attempt for a (lead, campaign, step) triple.
type Send struct {
	ID        string     `json:"id"`
	LeadID    string     `json:"lead_id"`
	Campaign  string     `json:"campaign"`
	Step      int        `json:"step"`
	Subject   string     `json:"subject"`
	Status    SendStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// EventType enumerates the engagement events delivered to the webhook server.
type EventType string

const (
	EventDelivered    EventType = "delivered"
	EventOpened       EventType = "opened"
	EventReplied      EventType = "replied"
	EventBounced      EventType = "bounced"
	EventUnsubscribed EventType = "unsubscribed"
)

// Event is an engagement event tied to a lead.
type Event struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Type      EventType `json:"type"`
	MessageID string    `json:"message_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
