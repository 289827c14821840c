package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sintaxia/internal/chat"
)

func TestClaudeComplete(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := map[string]interface{}{
			"id":    "msg_1",
			"type":  "message",
			"role":  "assistant",
			"model": "claude-haiku",
			"content": []map[string]interface{}{
				{"type": "text", "text": "DNS traduce nombres a direcciones IP."},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 10, "output_tokens": 8},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClaudeClient("sk-test", server.URL, 0.3)
	reply, err := client.Complete(context.Background(), "claude-haiku", "sos SINTAXIA", "¿qué es DNS?")
	require.NoError(t, err)
	assert.Equal(t, "DNS traduce nombres a direcciones IP.", reply)
	assert.Equal(t, "claude-haiku", got["model"])
	assert.Equal(t, "sos SINTAXIA", got["system"])
}

func TestClaudeCompleteBadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"model: not found"}}`))
	}))
	defer server.Close()

	_, err := NewClaudeClient("sk-test", server.URL, 0.3).Complete(context.Background(), "nope", "", "hola")
	assert.ErrorIs(t, err, chat.ErrBadRequest)
}

func TestClaudeCompleteOverloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
	}))
	defer server.Close()

	_, err := NewClaudeClient("sk-test", server.URL, 0.3).Complete(context.Background(), "m", "", "hola")
	require.Error(t, err)
	assert.NotErrorIs(t, err, chat.ErrBadRequest)
}
