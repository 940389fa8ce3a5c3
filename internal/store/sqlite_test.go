package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func testLead(email string) *model.Lead {
	return &model.Lead{
		Name:    "Alice Smith",
		Company: "Acme Inc",
		Email:   email,
		Website: "https://acme.com",
		Source:  "test",
	}
}

func TestUpsertAndGetLead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))
	assert.NotEmpty(t, lead.ID)
	assert.False(t, lead.CreatedAt.IsZero())

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", got.Name)
	assert.Equal(t, "alice@acme.com", got.Email)
	assert.Equal(t, model.LeadStatusNew, got.Status)
	assert.Nil(t, got.SyncedAt)
}

func TestUpsertLeadUpdatesExisting(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))

	lead.Company = "Acme Corp"
	lead.Status = model.LeadStatusCleaned
	require.NoError(t, st.UpsertLead(ctx, lead))

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Company)
	assert.Equal(t, model.LeadStatusCleaned, got.Status)

	leads, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestGetLeadNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetLead(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLeadByEmail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertLead(ctx, testLead("alice@acme.com")))

	got, err := st.GetLeadByEmail(ctx, "alice@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", got.Name)

	_, err = st.GetLeadByEmail(ctx, "nobody@acme.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListLeadsFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := testLead("a@acme.com")
	require.NoError(t, st.UpsertLead(ctx, a))

	b := testLead("b@acme.com")
	b.Source = "scrape"
	b.Status = model.LeadStatusQueued
	require.NoError(t, st.UpsertLead(ctx, b))

	require.NoError(t, st.LinkAirtable(ctx, a.ID, "recXYZ"))

	byStatus, err := st.ListLeads(ctx, LeadFilter{Status: model.LeadStatusQueued})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "b@acme.com", byStatus[0].Email)

	bySource, err := st.ListLeads(ctx, LeadFilter{Source: "scrape"})
	require.NoError(t, err)
	require.Len(t, bySource, 1)

	unsynced, err := st.ListLeads(ctx, LeadFilter{Unsynced: true})
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "b@acme.com", unsynced[0].Email)

	limited, err := st.ListLeads(ctx, LeadFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeleteLead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))
	require.NoError(t, st.DeleteLead(ctx, lead.ID))

	_, err := st.GetLead(ctx, lead.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, st.DeleteLead(ctx, lead.ID))
}

func TestUpdateLeadStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))
	require.NoError(t, st.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusReplied))

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusReplied, got.Status)

	assert.Error(t, st.UpdateLeadStatus(ctx, "missing", model.LeadStatusReplied))
}

func TestLinkAirtableAndSalesforce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))

	require.NoError(t, st.LinkAirtable(ctx, lead.ID, "recXYZ"))
	require.NoError(t, st.LinkSalesforce(ctx, lead.ID, "00Q123"))

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "recXYZ", got.AirtableID)
	assert.Equal(t, "00Q123", got.SalesforceID)
	require.NotNil(t, got.SyncedAt)
}

func TestSendLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))

	send := &model.Send{LeadID: lead.ID, Campaign: "intro", Step: 0, Subject: "Hello"}
	require.NoError(t, st.CreateSend(ctx, send))
	assert.NotEmpty(t, send.ID)
	assert.Equal(t, model.SendStatusPending, send.Status)

	require.NoError(t, st.CompleteSend(ctx, send.ID, model.SendStatusSent, ""))

	sends, err := st.ListSends(ctx, lead.ID, "intro")
	require.NoError(t, err)
	require.Len(t, sends, 1)
	assert.Equal(t, model.SendStatusSent, sends[0].Status)
	require.NotNil(t, sends[0].SentAt)
}

func TestLastStepSend(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))

	// No sends yet.
	last, err := st.LastStepSend(ctx, lead.ID, "intro")
	require.NoError(t, err)
	assert.Nil(t, last)

	s0 := &model.Send{LeadID: lead.ID, Campaign: "intro", Step: 0, Subject: "Hello"}
	require.NoError(t, st.CreateSend(ctx, s0))
	require.NoError(t, st.CompleteSend(ctx, s0.ID, model.SendStatusSent, ""))

	s1 := &model.Send{LeadID: lead.ID, Campaign: "intro", Step: 1, Subject: "Follow-up"}
	require.NoError(t, st.CreateSend(ctx, s1))

	last, err = st.LastStepSend(ctx, lead.ID, "intro")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 1, last.Step)
	assert.Equal(t, model.SendStatusPending, last.Status)

	// Other campaigns don't leak in.
	last, err = st.LastStepSend(ctx, lead.ID, "other")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestDeleteLeadCascadesSends(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))
	require.NoError(t, st.CreateSend(ctx, &model.Send{LeadID: lead.ID, Campaign: "intro", Step: 0}))
	require.NoError(t, st.DeleteLead(ctx, lead.ID))

	sends, err := st.ListSends(ctx, lead.ID, "")
	require.NoError(t, err)
	assert.Empty(t, sends)
}

func TestEvents(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := testLead("alice@acme.com")
	require.NoError(t, st.UpsertLead(ctx, lead))

	require.NoError(t, st.RecordEvent(ctx, &model.Event{LeadID: lead.ID, Type: model.EventOpened}))
	require.NoError(t, st.RecordEvent(ctx, &model.Event{LeadID: lead.ID, Type: model.EventReplied, MessageID: "msg-1"}))

	events, err := st.ListEvents(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventOpened, events[0].Type)
	assert.Equal(t, "msg-1", events[1].MessageID)
}

func TestDeadLetters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AddDeadLetter(ctx, &DeadLetter{
		LeadID: "lead-1", Campaign: "intro", Step: 0,
		Error: "connection reset", ErrorType: "transient",
	}))
	require.NoError(t, st.AddDeadLetter(ctx, &DeadLetter{
		LeadID: "lead-2", Campaign: "intro", Step: 1,
		Error: "550 no such user", ErrorType: "permanent",
	}))

	all, err := st.ListDeadLetters(ctx, DeadLetterFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	transient, err := st.ListDeadLetters(ctx, DeadLetterFilter{ErrorType: "transient"})
	require.NoError(t, err)
	require.Len(t, transient, 1)
	assert.Equal(t, "lead-1", transient[0].LeadID)
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	st, err := NewSQLite(filepath.Join(dir, "live.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.UpsertLead(ctx, testLead("alice@acme.com")))

	snapshot := filepath.Join(dir, "snap.db")
	require.NoError(t, st.Backup(ctx, snapshot))

	info, err := os.Stat(snapshot)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	restored, err := NewSQLite(snapshot)
	require.NoError(t, err)
	defer restored.Close()

	leads, err := restored.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestUpsertPreservesSyncedAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	lead := testLead("alice@acme.com")
	lead.SyncedAt = &now
	require.NoError(t, st.UpsertLead(ctx, lead))

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SyncedAt)
	assert.WithinDuration(t, now, *got.SyncedAt, time.Second)
}
