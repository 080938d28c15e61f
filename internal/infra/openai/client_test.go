package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jinford/repo-scout/internal/core/collaborator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "- main.py"}}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		wantError bool
	}{
		{name: "API keyが設定されている場合は成功する", apiKey: "test-api-key"},
		{name: "API keyが空の場合は ErrAuth を返す", apiKey: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.apiKey)
			if tt.wantError {
				assert.ErrorIs(t, err, collaborator.ErrAuth)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultModel, client.ModelName())
			assert.Equal(t, DefaultTimeout, client.timeout)
		})
	}
}

func TestNewClient_Options(t *testing.T) {
	client, err := NewClient("key", WithModel("gpt-4o"), WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", client.ModelName())
	assert.Equal(t, 5*time.Second, client.timeout)
}

func TestGenerate(t *testing.T) {
	var got map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	client, err := NewClient("test-key", WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), collaborator.Request{
		Prompt:      "rank these",
		Temperature: 0.3,
		MaxTokens:   64,
	})
	require.NoError(t, err)

	assert.Equal(t, "- main.py", resp.Content)
	assert.Equal(t, 15, resp.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", resp.Model)

	assert.Equal(t, DefaultModel, got["model"])
	assert.InDelta(t, 0.3, got["temperature"], 1e-9)
	assert.EqualValues(t, 64, got["max_tokens"])
}

func TestGenerate_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(completionBody))
	})

	client, err := NewClient("key", WithBaseURL(srv.URL+"/"), WithBackoff(time.Millisecond))
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), collaborator.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "- main.py", resp.Content)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "401 は ErrAuth", status: http.StatusUnauthorized, body: `{"error": {"message": "bad key"}}`, wantErr: collaborator.ErrAuth},
		{name: "404 は ErrModelNotFound", status: http.StatusNotFound, body: `{"error": {"message": "no model"}}`, wantErr: collaborator.ErrModelNotFound},
		{name: "400 は ErrInference", status: http.StatusBadRequest, body: `{"error": {"message": "bad"}}`, wantErr: collaborator.ErrInference},
		{name: "選択肢が空なら ErrInference", status: http.StatusOK, body: `{"id": "x", "object": "chat.completion", "model": "m", "choices": []}`, wantErr: collaborator.ErrInference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			client, err := NewClient("key", WithBaseURL(srv.URL+"/"))
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), collaborator.Request{Prompt: "p"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
