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

func TestOpenAIClient_Complete(t *testing.T) {
	var captured openAIChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi sweetheart!"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL})

	history := []TurnPair{{User: "how are you?", Assistant: "doing great"}}
	response, err := client.Complete(context.Background(), "You are Mom.", history, "miss you", CompletionParams{Temperature: 0.8, MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, "hi sweetheart!", response)

	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "You are Mom.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
	assert.Equal(t, "miss you", captured.Messages[3].Content)
	assert.Equal(t, 0.8, captured.Temperature)
	assert.Equal(t, 500, captured.MaxTokens)
}

func TestOpenAIClient_CompleteErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"auth", http.StatusUnauthorized, ErrAuth},
		{"rate limit", http.StatusTooManyRequests, ErrRateLimit},
		{"bad model", http.StatusNotFound, ErrProviderConfig},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
			_, err := client.Complete(context.Background(), "", nil, "hello", CompletionParams{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAIClient_CompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "", nil, "hello", CompletionParams{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEmbeddingClient_BatchReassemblesByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)

		var req openAIEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"first", "second"}, req.Input)

		// Out of order on purpose.
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.5,0.5]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	client := NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: "k", BaseURL: server.URL})
	vectors, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0.5, 0.5}, vectors[1])
}

func TestOpenAIEmbeddingClient_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	client := NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEmbeddingClient_EmptyInput(t *testing.T) {
	client := NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: "k"})
	vectors, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestOpenAIEmbeddingClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	client := NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: "k", BaseURL: server.URL})
	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, vec, 1e-6)
}
