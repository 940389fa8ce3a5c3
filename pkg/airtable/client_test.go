package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", "appBASE", WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestListRecordsPaginates(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/appBASE/Leads", r.URL.Path)

		switch r.URL.Query().Get("offset") {
		case "":
			json.NewEncoder(w).Encode(listResponse{
				Records: []Record{{ID: "rec1", Fields: map[string]any{"Name": "Alice"}}},
				Offset:  "page2",
			})
		case "page2":
			json.NewEncoder(w).Encode(listResponse{
				Records: []Record{{ID: "rec2", Fields: map[string]any{"Name": "Bob"}}},
			})
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	records, err := client.ListRecords(context.Background(), "Leads")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, records, 2)
	assert.Equal(t, "rec1", records[0].ID)
	assert.Equal(t, "Bob", records[1].Fields["Name"])
}

func TestListRecordsErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
	})

	_, err := client.ListRecords(context.Background(), "Leads")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestCreateRecordsBatches(t *testing.T) {
	var batches [][]Record
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var payload recordsPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		batches = append(batches, payload.Records)

		resp := recordsPayload{}
		for i, rec := range payload.Records {
			rec.ID = "rec" + string(rune('A'+len(batches)-1)) + string(rune('0'+i))
			resp.Records = append(resp.Records, rec)
		}
		json.NewEncoder(w).Encode(resp)
	})

	// 12 records: one full batch of 10 plus a remainder of 2.
	fields := make([]map[string]any, 12)
	for i := range fields {
		fields[i] = map[string]any{"Name": "Lead"}
	}

	created, err := client.CreateRecords(context.Background(), "Leads", fields)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 2)
	assert.Len(t, created, 12)
	assert.NotEmpty(t, created[0].ID)
}

func TestUpdateRecordsPatches(t *testing.T) {
	var method string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Write([]byte(`{"records":[]}`))
	})

	err := client.UpdateRecords(context.Background(), "Leads",
		[]Record{{ID: "rec1", Fields: map[string]any{"Name": "Alice"}}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, method)
}

func TestDoRetriesOnRateLimit(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, `{"error":"RATE_LIMITED"}`, http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(listResponse{Records: []Record{{ID: "rec1"}}})
	})

	records, err := client.ListRecords(context.Background(), "Leads")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, records, 1)
}

func TestDeleteRecord(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Write([]byte(`{"deleted":true}`))
	})

	require.NoError(t, client.DeleteRecord(context.Background(), "Leads", "rec1"))
	assert.Equal(t, "/appBASE/Leads/rec1", path)
}
