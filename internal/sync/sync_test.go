package sync

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/airtable"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeAirtable is an in-memory airtable.Client.
type fakeAirtable struct {
	records []airtable.Record
	nextID  int
	listErr error
	updated []airtable.Record
}

func (f *fakeAirtable) ListRecords(_ context.Context, _ string) ([]airtable.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *fakeAirtable) CreateRecords(_ context.Context, _ string, fields []map[string]any) ([]airtable.Record, error) {
	var created []airtable.Record
	for _, fl := range fields {
		f.nextID++
		rec := airtable.Record{ID: "rec" + string(rune('0'+f.nextID)), Fields: fl}
		f.records = append(f.records, rec)
		created = append(created, rec)
	}
	return created, nil
}

func (f *fakeAirtable) UpdateRecords(_ context.Context, _ string, records []airtable.Record) error {
	f.updated = append(f.updated, records...)
	return nil
}

func (f *fakeAirtable) DeleteRecord(_ context.Context, _ string, _ string) error {
	return nil
}

func newTestSyncer(t *testing.T, at airtable.Client) (*Syncer, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return NewSyncer(st, at, "Leads"), st
}

func TestFetchRecordsNormalizes(t *testing.T) {
	at := &fakeAirtable{records: []airtable.Record{
		{ID: "rec1", Fields: map[string]any{"Company Name": "Acme Inc", "Email": "a@acme.com"}},
	}}
	s, _ := newTestSyncer(t, at)

	records := s.FetchRecords(context.Background())
	require.Len(t, records, 1)
	assert.Equal(t, "rec1", records[0].String("airtable_id"))
	assert.Equal(t, "Acme Inc", records[0].String(model.FieldCompany))
	assert.Equal(t, "a@acme.com", records[0].String(model.FieldEmail))
}

func TestFetchRecordsDegradesOnError(t *testing.T) {
	s, _ := newTestSyncer(t, &fakeAirtable{listErr: eris.New("airtable down")})
	assert.Empty(t, s.FetchRecords(context.Background()))
}

func TestPullCreatesNewLeads(t *testing.T) {
	at := &fakeAirtable{records: []airtable.Record{
		{ID: "rec1", Fields: map[string]any{"Name": "Alice Smith", "Email": "alice@acme.com"}},
	}}
	s, st := newTestSyncer(t, at)

	res, err := s.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Result{Fetched: 1, Created: 1}, res)

	lead, err := st.GetLeadByEmail(context.Background(), "alice@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "rec1", lead.AirtableID)
	assert.Equal(t, "airtable", lead.Source)
	require.NotNil(t, lead.SyncedAt)
}

func TestPullUpdatesLinkedLead(t *testing.T) {
	at := &fakeAirtable{records: []airtable.Record{
		{ID: "rec1", Fields: map[string]any{"Name": "Alice Jones", "Email": "alice@acme.com"}},
	}}
	s, st := newTestSyncer(t, at)
	ctx := context.Background()

	lead := &model.Lead{Name: "Alice Smith", Email: "alice@acme.com", AirtableID: "rec1", Source: "import"}
	require.NoError(t, st.UpsertLead(ctx, lead))

	res, err := s.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Result{Fetched: 1, Updated: 1}, res)

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Jones", got.Name)
	// Pull never overwrites local data with blanks.
	assert.Equal(t, "import", got.Source)
}

func TestPullLinksByEmail(t *testing.T) {
	at := &fakeAirtable{records: []airtable.Record{
		{ID: "rec9", Fields: map[string]any{"Email": "alice@acme.com", "Phone": "555-0100"}},
	}}
	s, st := newTestSyncer(t, at)
	ctx := context.Background()

	lead := &model.Lead{Name: "Alice Smith", Email: "alice@acme.com"}
	require.NoError(t, st.UpsertLead(ctx, lead))

	res, err := s.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 0, res.Created)

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "rec9", got.AirtableID)
	assert.Equal(t, "555-0100", got.Phone)
	assert.Equal(t, "Alice Smith", got.Name)
}

func TestPushCreatesAndLinks(t *testing.T) {
	at := &fakeAirtable{}
	s, st := newTestSyncer(t, at)
	ctx := context.Background()

	lead := &model.Lead{Name: "Alice Smith", Email: "alice@acme.com", Status: model.LeadStatusCleaned}
	require.NoError(t, st.UpsertLead(ctx, lead))

	res, err := s.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.AirtableID)
	require.NotNil(t, got.SyncedAt)

	require.Len(t, at.records, 1)
	assert.Equal(t, "Alice Smith", at.records[0].Fields["Name"])
	assert.Equal(t, "cleaned", at.records[0].Fields["Status"])
}

func TestPushUpdatesLinked(t *testing.T) {
	at := &fakeAirtable{}
	s, st := newTestSyncer(t, at)
	ctx := context.Background()

	lead := &model.Lead{Name: "Alice Smith", Email: "alice@acme.com", AirtableID: "rec1"}
	require.NoError(t, st.UpsertLead(ctx, lead))

	res, err := s.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)

	require.Len(t, at.updated, 1)
	assert.Equal(t, "rec1", at.updated[0].ID)

	// The push stamps synced_at, so an immediate second push is a no-op.
	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SyncedAt)

	res, err = s.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	require.Len(t, at.updated, 1)
}

func TestPushSkipsCleanLinked(t *testing.T) {
	at := &fakeAirtable{}
	s, st := newTestSyncer(t, at)
	ctx := context.Background()

	syncedAt := time.Now().UTC().Add(time.Hour)
	lead := &model.Lead{
		Name:       "Alice Smith",
		Email:      "alice@acme.com",
		AirtableID: "rec1",
		SyncedAt:   &syncedAt,
	}
	require.NoError(t, st.UpsertLead(ctx, lead))

	res, err := s.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Empty(t, at.updated)
}

func TestPushModifiedLeadIsDirtyAgain(t *testing.T) {
	at := &fakeAirtable{}
	s, st := newTestSyncer(t, at)
	ctx := context.Background()

	lead := &model.Lead{Name: "Alice Smith", Email: "alice@acme.com", AirtableID: "rec1"}
	require.NoError(t, st.UpsertLead(ctx, lead))

	_, err := s.Push(ctx)
	require.NoError(t, err)
	require.Len(t, at.updated, 1)

	// A local edit bumps updated_at past synced_at.
	time.Sleep(10 * time.Millisecond)
	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	got.Phone = "555-0100"
	require.NoError(t, st.UpsertLead(ctx, got))

	res, err := s.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, at.updated, 2)
}

func TestStatus(t *testing.T) {
	at := &fakeAirtable{records: []airtable.Record{
		{ID: "rec1", Fields: map[string]any{"Email": "x@y.com"}},
		{ID: "rec2", Fields: map[string]any{"Email": "z@y.com"}},
	}}
	s, st := newTestSyncer(t, at)
	ctx := context.Background()

	require.NoError(t, st.UpsertLead(ctx, &model.Lead{Email: "a@b.com"}))
	linked := &model.Lead{Email: "c@d.com", AirtableID: "rec1"}
	require.NoError(t, st.UpsertLead(ctx, linked))

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Status{LocalLeads: 2, LocalUnsynced: 1, AirtableRecords: 2}, status)
}
