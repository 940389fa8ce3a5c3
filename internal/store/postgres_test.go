package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock, NewPostgresWithPool(mock)
}

func strPtr(s string) *string { return &s }

func leadRows(id string) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows([]string{
		"id", "airtable_id", "salesforce_id", "name", "company", "email",
		"website", "linkedin_url", "phone", "city", "state", "source",
		"status", "confidence", "notes", "created_at", "updated_at", "synced_at",
	}).AddRow(
		id, strPtr("recXYZ"), (*string)(nil), "Alice Smith", "Acme Inc", "alice@acme.com",
		"https://acme.com", "", "", "", "", "import",
		"new", 0.9, "", now, now, (*time.Time)(nil),
	)
}

func TestPostgresMigrate(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leads").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertLead(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), nil, nil,
			"Alice Smith", "", "alice@acme.com", "", "",
			"", "", "", "", "new",
			0.0, "", pgxmock.AnyArg(), pgxmock.AnyArg(), (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	lead := &model.Lead{Name: "Alice Smith", Email: "alice@acme.com"}
	require.NoError(t, st.UpsertLead(context.Background(), lead))

	// Upsert assigns identity and timestamps before hitting the database.
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, model.LeadStatusNew, lead.Status)
	assert.False(t, lead.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLead(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM leads WHERE id").
		WithArgs("lead-1").
		WillReturnRows(leadRows("lead-1"))

	got, err := st.GetLead(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", got.Name)
	assert.Equal(t, "recXYZ", got.AirtableID)
	assert.Empty(t, got.SalesforceID)
	assert.Equal(t, model.LeadStatusNew, got.Status)
	assert.Nil(t, got.SyncedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLeadNotFound(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM leads WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.GetLead(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLeadByEmail(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM leads WHERE email").
		WithArgs("alice@acme.com").
		WillReturnRows(leadRows("lead-1"))

	got, err := st.GetLeadByEmail(context.Background(), "alice@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListLeadsFilters(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM leads WHERE 1=1 AND status = .+ AND source = ").
		WithArgs("queued", "scrape", 50).
		WillReturnRows(leadRows("lead-1"))

	leads, err := st.ListLeads(context.Background(), LeadFilter{
		Status: model.LeadStatusQueued,
		Source: "scrape",
		Limit:  50,
	})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "lead-1", leads[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListLeadsDefaultLimit(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM leads").
		WithArgs(1000).
		WillReturnRows(leadRows("lead-1"))

	_, err := st.ListLeads(context.Background(), LeadFilter{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteLead(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec("DELETE FROM leads").
		WithArgs("lead-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM leads").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ctx := context.Background()
	assert.NoError(t, st.DeleteLead(ctx, "lead-1"))
	assert.Error(t, st.DeleteLead(ctx, "missing"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateLeadStatus(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec("UPDATE leads SET status").
		WithArgs("replied", pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, st.UpdateLeadStatus(context.Background(), "lead-1", model.LeadStatusReplied))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLinkAirtable(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec("UPDATE leads SET airtable_id").
		WithArgs("recXYZ", pgxmock.AnyArg(), pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, st.LinkAirtable(context.Background(), "lead-1", "recXYZ"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateSend(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec("INSERT INTO sends").
		WithArgs(pgxmock.AnyArg(), "lead-1", "intro", 0, "",
			"pending", "", pgxmock.AnyArg(), (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	send := &model.Send{LeadID: "lead-1", Campaign: "intro", Step: 0}
	require.NoError(t, st.CreateSend(context.Background(), send))
	assert.NotEmpty(t, send.ID)
	assert.Equal(t, model.SendStatusPending, send.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteSend(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec("UPDATE sends SET status").
		WithArgs("sent", "", pgxmock.AnyArg(), "send-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, st.CompleteSend(context.Background(), "send-1", model.SendStatusSent, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLastStepSendNone(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM sends WHERE lead_id").
		WithArgs("lead-1", "intro").
		WillReturnError(pgx.ErrNoRows)

	send, err := st.LastStepSend(context.Background(), "lead-1", "intro")
	require.NoError(t, err)
	assert.Nil(t, send)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLastStepSend(t *testing.T) {
	mock, st := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM sends WHERE lead_id").
		WithArgs("lead-1", "intro").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "lead_id", "campaign", "step", "subject", "status", "error", "created_at", "sent_at",
		}).AddRow("send-1", "lead-1", "intro", 1, "Follow-up", "sent", "", now, &now))

	send, err := st.LastStepSend(context.Background(), "lead-1", "intro")
	require.NoError(t, err)
	require.NotNil(t, send)
	assert.Equal(t, 1, send.Step)
	assert.Equal(t, model.SendStatusSent, send.Status)
	require.NotNil(t, send.SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordEvent(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec("INSERT INTO events").
		WithArgs(pgxmock.AnyArg(), "lead-1", "opened", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	event := &model.Event{LeadID: "lead-1", Type: model.EventOpened}
	require.NoError(t, st.RecordEvent(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListDeadLettersFilter(t *testing.T) {
	mock, st := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM dead_letters WHERE 1=1 AND error_type = ").
		WithArgs("transient", 100).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "lead_id", "campaign", "step", "error", "error_type", "retry_count", "created_at",
		}).AddRow("dl-1", "lead-1", "intro", 0, "connection reset", "transient", 3, now))

	dls, err := st.ListDeadLetters(context.Background(), DeadLetterFilter{ErrorType: "transient"})
	require.NoError(t, err)
	require.Len(t, dls, 1)
	assert.Equal(t, "lead-1", dls[0].LeadID)
	assert.Equal(t, 3, dls[0].RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
