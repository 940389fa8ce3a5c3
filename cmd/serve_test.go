package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestServer(t *testing.T) (store.Store, *httptest.Server) {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	srv := httptest.NewServer(newServeMux(st))
	t.Cleanup(srv.Close)
	return st, srv
}

func seedLead(t *testing.T, st store.Store, email string) *model.Lead {
	t.Helper()
	lead := &model.Lead{
		Name:    "Alice Smith",
		Company: "Acme Inc",
		Email:   email,
		Status:  model.LeadStatusContacted,
		Source:  "import",
	}
	require.NoError(t, st.UpsertLead(context.Background(), lead))
	return lead
}

func postEvent(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/webhook/events", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestWebhookRepliedUpdatesStatus(t *testing.T) {
	st, srv := newTestServer(t)
	lead := seedLead(t, st, "alice@acme.com")

	resp := postEvent(t, srv, `{"type":"replied","email":"alice@acme.com","message_id":"msg-1"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	events, err := st.ListEvents(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventReplied, events[0].Type)
	assert.Equal(t, "msg-1", events[0].MessageID)

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusReplied, got.Status)
}

func TestWebhookOpenedKeepsStatus(t *testing.T) {
	st, srv := newTestServer(t)
	lead := seedLead(t, st, "alice@acme.com")

	resp := postEvent(t, srv, `{"type":"opened","email":"alice@acme.com"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	events, err := st.ListEvents(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusContacted, got.Status)
}

func TestWebhookBounced(t *testing.T) {
	st, srv := newTestServer(t)
	lead := seedLead(t, st, "bob@acme.com")

	resp := postEvent(t, srv, `{"type":"bounced","email":"bob@acme.com"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	got, err := st.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusBounced, got.Status)
}

func TestWebhookBadBody(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postEvent(t, srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookMissingEmail(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postEvent(t, srv, `{"type":"replied"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookUnknownEventType(t *testing.T) {
	st, srv := newTestServer(t)
	seedLead(t, st, "alice@acme.com")

	resp := postEvent(t, srv, `{"type":"clicked","email":"alice@acme.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookUnknownLead(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postEvent(t, srv, `{"type":"replied","email":"nobody@nowhere.com"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/webhook/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
