package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companion/internal/domain"
	"companion/internal/llm"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleter_Complete(t *testing.T) {
	var body map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  Plants eat sunlight.  "}}]
		}`))
	})

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	out, err := c.Complete(context.Background(), domain.CompletionRequest{
		System:      "be simple",
		User:        "Photosynthesis is...",
		Temperature: 0.3,
		MaxTokens:   400,
	})
	require.NoError(t, err)
	assert.Equal(t, "Plants eat sunlight.", out)

	assert.Equal(t, "gpt-3.5-turbo", body["model"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-9)
	assert.InDelta(t, 400, body["max_tokens"], 1e-9)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestCompleter_ServiceError(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit", "code": "rate_limit"}}`))
	})

	c := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4"})
	_, err := c.Complete(context.Background(), domain.CompletionRequest{User: "hi"})
	require.Error(t, err)

	var se *llm.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "openai", se.Provider)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.EqualValues(t, 1, calls.Load(), "requests must not be retried")
}

func TestCompleter_NoChoices(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	})

	c := New(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), domain.CompletionRequest{User: "hi"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	assert.Equal(t, "openai", c.Name())
}
