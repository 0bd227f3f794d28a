package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClient_Complete(t *testing.T) {
	var gotBody struct {
		Model    string    `json:"model"`
		Messages []message `json:"messages"`
		Stream   bool      `json:"stream"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		resp := map[string]interface{}{
			"model":             gotBody.Model,
			"message":           message{Role: "assistant", Content: "A short summary."},
			"prompt_eval_count": 42,
			"eval_count":        5,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "")
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), "You summarize.", "def foo(): pass")

	require.NoError(t, err)
	assert.Equal(t, "A short summary.", resp.Content)
	assert.Equal(t, 42, resp.PromptTokens)
	assert.Equal(t, 5, resp.OutputTokens)

	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "You summarize.", gotBody.Messages[0].Content)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
	assert.False(t, gotBody.Stream)
	assert.Equal(t, DefaultOllamaModel, gotBody.Model)
}

func TestOllamaClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "missing-model")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaClient_EmptyPrompt(t *testing.T) {
	client, err := NewOllamaClient("http://localhost:1", "")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "system", "")

	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := map[string]interface{}{
			"model": "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{"message": message{Role: "assistant", Content: "Summarized."}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 3},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-key", server.URL, "")
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), "You summarize.", "some code")

	require.NoError(t, err)
	assert.Equal(t, "Summarized.", resp.Content)
	assert.Equal(t, 10, resp.PromptTokens)
	assert.Equal(t, 3, resp.OutputTokens)
}

func TestOpenAIClient_RequiresKey(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")

	_, err := NewOpenAIClient("", "", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "telepathy"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
	assert.Contains(t, err.Error(), "telepathy")
}

func TestDetectProvider(t *testing.T) {
	t.Setenv(EnvProvider, "")
	assert.Equal(t, ProviderOllama, DetectProvider())

	t.Setenv(EnvProvider, "OpenAI")
	assert.Equal(t, ProviderOpenAI, DetectProvider())
}
