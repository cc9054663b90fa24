// ABOUTME: Tests for the chat completions client
// ABOUTME: Request shape, auth header, error statuses, and extraction parsing

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_Generate(t *testing.T) {
	var captured chatRequest
	server := completionServer(t, "Hello from the pharmacy.", &captured)
	defer server.Close()

	client := NewClient(ClientParams{
		APIBase:     server.URL,
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   500,
	})

	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	out, err := client.Generate(context.Background(), "You are helpful.", history, "what are your hours?")
	require.NoError(t, err)
	assert.Equal(t, "Hello from the pharmacy.", out)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[3].Role)
	assert.Equal(t, "what are your hours?", captured.Messages[3].Content)
}

func TestClient_GenerateSendsAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer server.Close()

	client := NewClient(ClientParams{APIBase: server.URL, APIKey: "sk-abc"})
	_, err := client.Generate(context.Background(), "", nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-abc", gotAuth)
}

func TestClient_GenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(ClientParams{APIBase: server.URL})
	_, err := client.Generate(context.Background(), "", nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_GenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := NewClient(ClientParams{APIBase: server.URL})
	_, err := client.Generate(context.Background(), "", nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestClient_Extract(t *testing.T) {
	t.Run("parses the model's JSON answer", func(t *testing.T) {
		server := completionServer(t, `{"name": "MedPlus", "city": "Boston"}`, nil)
		defer server.Close()

		client := NewClient(ClientParams{APIBase: server.URL})
		fields, err := client.Extract(context.Background(), "We are MedPlus in Boston")
		require.NoError(t, err)
		assert.Equal(t, "MedPlus", fields["name"])
		assert.Equal(t, "Boston", fields["city"])
	})

	t.Run("unparseable output yields an empty map", func(t *testing.T) {
		server := completionServer(t, "I could not find any fields, sorry!", nil)
		defer server.Close()

		client := NewClient(ClientParams{APIBase: server.URL})
		fields, err := client.Extract(context.Background(), "hmm")
		require.NoError(t, err)
		require.NotNil(t, fields)
		assert.Empty(t, fields)
	})

	t.Run("transport failure surfaces as an error", func(t *testing.T) {
		server := completionServer(t, "{}", nil)
		server.Close()

		client := NewClient(ClientParams{APIBase: server.URL})
		_, err := client.Extract(context.Background(), "hmm")
		require.Error(t, err)
	})
}
