package local

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jinford/repo-scout/internal/core/collaborator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody generateRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:           "stable-code",
			Response:        "This code prints a greeting.",
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       6,
		})
	}))
	t.Cleanup(srv.Close)

	client := NewClient(
		WithBaseURL(srv.URL+"/"),
		WithModel("stable-code"),
		WithModelToken("hf-token"),
		WithHTTPClient(srv.Client()),
	)

	resp, err := client.Generate(context.Background(), collaborator.Request{Prompt: "explain", Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "/api/generate", gotPath)
	assert.Equal(t, "Bearer hf-token", gotAuth)
	assert.Equal(t, "stable-code", gotBody.Model)
	assert.Equal(t, "explain", gotBody.Prompt)
	assert.False(t, gotBody.Stream)
	assert.Equal(t, DefaultMaxTokens, gotBody.Options.NumPredict)
	assert.InDelta(t, 0.2, gotBody.Options.Temperature, 1e-9)

	assert.Equal(t, "This code prints a greeting.", resp.Content)
	assert.Equal(t, 18, resp.TokensUsed)
	assert.Equal(t, "stable-code", resp.Model)
}

func TestGenerate_NoTokenHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"response": "ok", "done": true}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	resp, err := client.Generate(context.Background(), collaborator.Request{Prompt: "p", MaxTokens: 5})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, DefaultModel, resp.Model)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "モデル未取得", status: http.StatusNotFound, body: `{"error": "model 'x' not found, try pulling it first"}`, wantErr: collaborator.ErrModelNotFound},
		{name: "トークン不正", status: http.StatusUnauthorized, body: `unauthorized`, wantErr: collaborator.ErrAuth},
		{name: "サーバエラー", status: http.StatusInternalServerError, body: `{"error": "boom"}`, wantErr: collaborator.ErrInference},
		{name: "不正なJSON", status: http.StatusOK, body: `not json`, wantErr: collaborator.ErrInference},
		{name: "200でもエラーを含む", status: http.StatusOK, body: `{"error": "out of memory"}`, wantErr: collaborator.ErrInference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			_, err := client.Generate(context.Background(), collaborator.Request{Prompt: "p"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(WithBaseURL(url))
	_, err := client.Generate(context.Background(), collaborator.Request{Prompt: "p"})
	assert.ErrorIs(t, err, collaborator.ErrInference)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434", normalizeBaseURL("localhost:11434/"))
	assert.Equal(t, "https://llm.internal", normalizeBaseURL(" https://llm.internal "))
}
