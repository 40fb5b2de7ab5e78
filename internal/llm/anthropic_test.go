package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/digital-twin/internal/common"
)

func TestNewAnthropicClient(t *testing.T) {
	_, err := newAnthropicClient(Config{}.withDefaults(ProviderAnthropic))
	require.Error(t, err)

	client, err := newAnthropicClient(Config{APIKey: "test-key"}.withDefaults(ProviderAnthropic))
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-latest", client.model)
	assert.Equal(t, "https://api.anthropic.com", client.baseURL)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"content": [
				{"type": "text", "text": "{\"segment\": "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "[\"SME\"]}"}
			],
			"stop_reason": "end_turn"
		}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL}.withDefaults(ProviderAnthropic))
	require.NoError(t, err)

	content, err := client.Complete(context.Background(), "system text", "user text")
	require.NoError(t, err)
	assert.JSONEq(t, `{"segment": ["SME"]}`, content)

	assert.Equal(t, "system text", got.System)
	assert.Equal(t, 600, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		status    int
		retryable bool
	}{
		{name: "overloaded", status: http.StatusServiceUnavailable, body: `{"type":"error"}`, retryable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, body: `{"type":"error"}`},
		{name: "empty content", status: http.StatusOK, body: `{"content": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := newAnthropicClient(Config{APIKey: "k", BaseURL: server.URL}.withDefaults(ProviderAnthropic))
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), "", "prompt")
			require.Error(t, err)
			assert.Equal(t, tt.retryable, common.IsRetryable(err))
		})
	}
}
