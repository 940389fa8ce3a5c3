// Package promote moves engaged leads into Salesforce.
package promote

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/salesforce"
)

// DefaultOpenThreshold is the opened-event count at which an un-replied
// lead still counts as engaged.
const DefaultOpenThreshold = 3

// Storage is the slice of the store promotion needs.
type Storage interface {
	ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error)
	ListEvents(ctx context.Context, leadID string) ([]model.Event, error)
	LinkSalesforce(ctx context.Context, id, salesforceID string) error
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error
}

// Promoter inserts engaged leads as Salesforce Lead records.
type Promoter struct {
	store         Storage
	sf            salesforce.Client
	openThreshold int
}

// Option configures the Promoter.
type Option func(*Promoter)

// WithOpenThreshold sets how many opens make an un-replied lead engaged.
func WithOpenThreshold(n int) Option {
	return func(p *Promoter) {
		if n > 0 {
			p.openThreshold = n
		}
	}
}

// NewPromoter creates a Promoter.
func NewPromoter(st Storage, sf salesforce.Client, opts ...Option) *Promoter {
	p := &Promoter{store: st, sf: sf, openThreshold: DefaultOpenThreshold}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result summarizes one promotion run.
type Result struct {
	Examined int      `json:"examined"`
	Promoted int      `json:"promoted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Run promotes every engaged lead not yet in Salesforce. Per-lead failures
// are collected; the run continues.
func (p *Promoter) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	replied, err := p.store.ListLeads(ctx, store.LeadFilter{Status: model.LeadStatusReplied})
	if err != nil {
		return nil, eris.Wrap(err, "promote: list replied leads")
	}
	contacted, err := p.store.ListLeads(ctx, store.LeadFilter{Status: model.LeadStatusContacted})
	if err != nil {
		return nil, eris.Wrap(err, "promote: list contacted leads")
	}

	for _, lead := range append(replied, contacted...) {
		res.Examined++
		if lead.SalesforceID != "" {
			res.Skipped++
			continue
		}

		engaged, err := p.engaged(ctx, &lead)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		if !engaged {
			res.Skipped++
			continue
		}

		if err := p.promoteOne(ctx, &lead); err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.Promoted++
	}

	zap.L().Info("promote: run complete",
		zap.Int("examined", res.Examined),
		zap.Int("promoted", res.Promoted),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

// engaged reports whether the lead replied or opened enough to promote.
func (p *Promoter) engaged(ctx context.Context, lead *model.Lead) (bool, error) {
	if lead.Engaged() {
		return true, nil
	}

	events, err := p.store.ListEvents(ctx, lead.ID)
	if err != nil {
		return false, eris.Wrapf(err, "promote: list events for %s", lead.ID)
	}
	opens := 0
	for _, e := range events {
		if e.Type == model.EventOpened {
			opens++
		}
	}
	return opens >= p.openThreshold, nil
}

func (p *Promoter) promoteOne(ctx context.Context, lead *model.Lead) error {
	sfID, err := p.sf.InsertOne(ctx, "Lead", sfFields(lead))
	if err != nil {
		return eris.Wrapf(err, "promote: insert lead %s", lead.ID)
	}
	if err := p.store.LinkSalesforce(ctx, lead.ID, sfID); err != nil {
		return eris.Wrapf(err, "promote: link salesforce id for %s", lead.ID)
	}
	if err := p.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusPromoted); err != nil {
		return eris.Wrapf(err, "promote: mark promoted %s", lead.ID)
	}

	zap.L().Info("promote: lead promoted",
		zap.String("lead_id", lead.ID),
		zap.String("salesforce_id", sfID),
	)
	return nil
}

// sfFields maps a lead onto the Salesforce Lead SObject. Salesforce requires
// LastName and Company to be non-empty.
func sfFields(lead *model.Lead) map[string]any {
	first, last := splitName(lead.Name)
	if last == "" {
		last = "Unknown"
	}
	company := lead.Company
	if company == "" {
		company = "Unknown"
	}

	fields := map[string]any{
		"FirstName":  first,
		"LastName":   last,
		"Company":    company,
		"Email":      lead.Email,
		"Website":    lead.Website,
		"Phone":      lead.Phone,
		"City":       lead.City,
		"State":      lead.State,
		"LeadSource": lead.Source,
	}
	for k, v := range fields {
		if s, ok := v.(string); ok && s == "" {
			delete(fields, k)
		}
	}
	return fields
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
