// Package sync moves leads between the local store and Airtable.
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/airtable"
)

// Syncer reconciles the local lead store with one Airtable table.
type Syncer struct {
	store store.Store
	at    airtable.Client
	table string
}

// NewSyncer creates a Syncer for the given Airtable table.
func NewSyncer(st store.Store, at airtable.Client, table string) *Syncer {
	return &Syncer{store: st, at: at, table: table}
}

// Result summarizes one sync direction.
type Result struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// FetchRecords lists every Airtable record as a normalized dedupe Record,
// with the Airtable record ID under "airtable_id". Fetch failures degrade to
// an empty list with a logged error so callers can proceed against whatever
// data is available.
func (s *Syncer) FetchRecords(ctx context.Context) []model.Record {
	records, err := s.at.ListRecords(ctx, s.table)
	if err != nil {
		zap.L().Error("sync: airtable fetch failed, proceeding with no records", zap.Error(err))
		return nil
	}

	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		rec := model.Normalize(r.Fields)
		rec["airtable_id"] = r.ID
		out = append(out, rec)
	}
	return out
}

// Pull copies Airtable records into the local store. Rows already linked by
// airtable_id are updated; unlinked rows matching a local lead by email are
// linked; the rest are inserted as new leads.
func (s *Syncer) Pull(ctx context.Context) (*Result, error) {
	records, err := s.at.ListRecords(ctx, s.table)
	if err != nil {
		return nil, eris.Wrap(err, "sync: list airtable records")
	}

	res := &Result{Fetched: len(records)}
	byAirtableID, err := s.leadsByAirtableID(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, r := range records {
		rec := model.Normalize(r.Fields)
		lead, exists := byAirtableID[r.ID]
		if !exists {
			if email := rec.String(model.FieldEmail); email != "" {
				if byEmail, err := s.store.GetLeadByEmail(ctx, email); err == nil && byEmail != nil {
					lead = byEmail
					exists = true
				}
			}
		}
		if !exists {
			lead = &model.Lead{
				ID:        uuid.NewString(),
				Source:    "airtable",
				Status:    model.LeadStatusNew,
				CreatedAt: now,
			}
		}

		applyRecord(lead, rec)
		lead.AirtableID = r.ID
		lead.UpdatedAt = now
		lead.SyncedAt = &now

		if err := s.store.UpsertLead(ctx, lead); err != nil {
			zap.L().Warn("sync: upsert pulled lead failed",
				zap.String("airtable_id", r.ID),
				zap.Error(err),
			)
			res.Skipped++
			continue
		}
		if exists {
			res.Updated++
		} else {
			res.Created++
		}
	}

	zap.L().Info("sync: pull complete",
		zap.Int("fetched", res.Fetched),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Push sends local leads to Airtable: leads without an airtable_id are
// created (and linked back), linked leads modified since their last sync are
// patched. Clean linked leads are left alone to spare the rate limit.
func (s *Syncer) Push(ctx context.Context) (*Result, error) {
	res := &Result{}

	unsynced, err := s.store.ListLeads(ctx, store.LeadFilter{Unsynced: true})
	if err != nil {
		return nil, eris.Wrap(err, "sync: list unsynced leads")
	}
	if len(unsynced) > 0 {
		fields := make([]map[string]any, len(unsynced))
		for i := range unsynced {
			fields[i] = leadFields(&unsynced[i])
		}
		created, err := s.at.CreateRecords(ctx, s.table, fields)
		if err != nil {
			return res, eris.Wrap(err, "sync: create airtable records")
		}
		// Created records come back in input order.
		for i, rec := range created {
			if i >= len(unsynced) {
				break
			}
			if err := s.store.LinkAirtable(ctx, unsynced[i].ID, rec.ID); err != nil {
				zap.L().Warn("sync: link airtable id failed",
					zap.String("lead_id", unsynced[i].ID),
					zap.Error(err),
				)
				res.Skipped++
				continue
			}
			res.Created++
		}
	}

	dirty, err := s.dirtyLinkedLeads(ctx)
	if err != nil {
		return res, err
	}
	if len(dirty) > 0 {
		records := make([]airtable.Record, len(dirty))
		for i := range dirty {
			records[i] = airtable.Record{ID: dirty[i].AirtableID, Fields: leadFields(&dirty[i])}
		}
		if err := s.at.UpdateRecords(ctx, s.table, records); err != nil {
			return res, eris.Wrap(err, "sync: update airtable records")
		}
		res.Updated = len(dirty)
		// Refresh synced_at so the next push skips these.
		for i := range dirty {
			if err := s.store.LinkAirtable(ctx, dirty[i].ID, dirty[i].AirtableID); err != nil {
				zap.L().Warn("sync: mark lead synced failed",
					zap.String("lead_id", dirty[i].ID),
					zap.Error(err),
				)
			}
		}
	}

	zap.L().Info("sync: push complete",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Status reports counts on both sides without changing anything.
type Status struct {
	LocalLeads      int `json:"local_leads"`
	LocalUnsynced   int `json:"local_unsynced"`
	AirtableRecords int `json:"airtable_records"`
}

func (s *Syncer) Status(ctx context.Context) (*Status, error) {
	all, err := s.store.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "sync: list leads")
	}
	unsynced := 0
	for i := range all {
		if all[i].AirtableID == "" {
			unsynced++
		}
	}

	records, err := s.at.ListRecords(ctx, s.table)
	if err != nil {
		return nil, eris.Wrap(err, "sync: list airtable records")
	}

	return &Status{
		LocalLeads:      len(all),
		LocalUnsynced:   unsynced,
		AirtableRecords: len(records),
	}, nil
}

func (s *Syncer) leadsByAirtableID(ctx context.Context) (map[string]*model.Lead, error) {
	all, err := s.store.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "sync: list leads")
	}
	byID := make(map[string]*model.Lead, len(all))
	for i := range all {
		if all[i].AirtableID != "" {
			byID[all[i].AirtableID] = &all[i]
		}
	}
	return byID, nil
}

// dirtyLinkedLeads returns linked leads changed since their last sync. Leads
// never synced (synced_at NULL) count as dirty.
func (s *Syncer) dirtyLinkedLeads(ctx context.Context) ([]model.Lead, error) {
	all, err := s.store.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "sync: list leads")
	}
	dirty := all[:0]
	for _, l := range all {
		if l.AirtableID == "" {
			continue
		}
		if l.SyncedAt == nil || l.UpdatedAt.After(*l.SyncedAt) {
			dirty = append(dirty, l)
		}
	}
	return dirty, nil
}

// applyRecord copies non-blank record values onto the lead. Blank Airtable
// cells never erase local data.
func applyRecord(lead *model.Lead, rec model.Record) {
	set := func(dst *string, field string) {
		if v := rec.String(field); v != "" {
			*dst = v
		}
	}
	set(&lead.Name, model.FieldName)
	set(&lead.Company, model.FieldCompany)
	set(&lead.Email, model.FieldEmail)
	set(&lead.Website, model.FieldWebsite)
	set(&lead.LinkedInURL, model.FieldLinkedIn)
	set(&lead.Phone, "phone")
	set(&lead.City, "city")
	set(&lead.State, "state")
}

// leadFields is the Airtable field layout for one lead.
func leadFields(l *model.Lead) map[string]any {
	return map[string]any{
		"Name":         l.Name,
		"Company":      l.Company,
		"Email":        l.Email,
		"Website":      l.Website,
		"LinkedIn URL": l.LinkedInURL,
		"Phone":        l.Phone,
		"City":         l.City,
		"State":        l.State,
		"Status":       string(l.Status),
		"Source":       l.Source,
	}
}
