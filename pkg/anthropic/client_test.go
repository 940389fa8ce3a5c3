package anthropic

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
	return NewClient("test-key", "claude-sonnet-4-5-20250929", WithBaseURL(srv.URL))
}

func messageResponse(text string) map[string]any {
	return map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 5,
		},
	}
}

func TestGenerate(t *testing.T) {
	var payload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageResponse("  Hi Alice, quick question.  "))
	})

	out, err := client.Generate(context.Background(), "You write short emails.", "Write to Alice.")
	require.NoError(t, err)
	assert.Equal(t, "Hi Alice, quick question.", out)

	assert.Equal(t, "claude-sonnet-4-5-20250929", payload["model"])
	system, ok := payload["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
}

func TestGenerateNoSystem(t *testing.T) {
	var payload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageResponse("ok"))
	})

	_, err := client.Generate(context.Background(), "", "Write something.")
	require.NoError(t, err)
	_, hasSystem := payload["system"]
	assert.False(t, hasSystem)
}

func TestGenerateAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`,
			http.StatusUnauthorized)
	})

	_, err := client.Generate(context.Background(), "", "prompt")
	assert.Error(t, err)
}

func TestGenerateEmptyContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := messageResponse("")
		resp["content"] = []map[string]any{}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	_, err := client.Generate(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
