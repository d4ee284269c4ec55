package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig holds Ollama client configuration.
type OllamaConfig struct {
	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434)
	BaseURL string

	// Model is the model name to use (default: qwen2.5:7b for chat,
	// nomic-embed-text for embeddings).
	Model string

	// Timeout is the request timeout duration (default: 60s)
	Timeout time.Duration
}

// OllamaClient handles communication with the Ollama API for local inference.
// It implements both TextGenerator and EmbeddingGenerator; all HTTP calls are
// wrapped with circuit breaker protection.
type OllamaClient struct {
	baseURL        string
	client         *http.Client
	circuitBreaker *CircuitBreaker
	model          string
	timeout        time.Duration
}

// NewOllamaClient creates a new Ollama client with the given configuration.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "qwen2.5:7b"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &OllamaClient{
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(),
		model:          config.Model,
		timeout:        config.Timeout,
	}
}

// ollamaChatRequest is the request body for /api/chat.
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatResponse is the non-streaming response from /api/chat.
type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// embedRequest is the request body for /api/embed.
// Input accepts a string or an array of strings; we always send the array form.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the response from /api/embed. The embeddings field is a
// 2D array, index-aligned with the input array.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Complete sends a chat request to Ollama and returns the response text.
func (c *OllamaClient) Complete(ctx context.Context, instructions string, history []TurnPair, utterance string, params CompletionParams) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, instructions, history, utterance, params)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("%w: ollama circuit breaker open", ErrUnavailable)
		}
		return "", err
	}
	return result.(string), nil
}

func (c *OllamaClient) complete(ctx context.Context, instructions string, history []TurnPair, utterance string, params CompletionParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]ollamaChatMessage, 0, len(history)*2+2)
	if instructions != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: instructions})
	}
	for _, turn := range history {
		messages = append(messages,
			ollamaChatMessage{Role: "user", Content: turn.User},
			ollamaChatMessage{Role: "assistant", Content: turn.Assistant},
		)
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: utterance})

	reqBody := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}
	if params.Temperature > 0 || params.MaxTokens > 0 {
		reqBody.Options = map[string]any{}
		if params.Temperature > 0 {
			reqBody.Options["temperature"] = params.Temperature
		}
		if params.MaxTokens > 0 {
			reqBody.Options["num_predict"] = params.MaxTokens
		}
	}

	var respData ollamaChatResponse
	if err := c.post(ctx, "/api/chat", reqBody, &respData); err != nil {
		return "", err
	}
	return respData.Message.Content, nil
}

// Embed generates an embedding vector for a single text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embedding vectors for all texts in one call.
// The returned slice is index-aligned with texts.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embedBatch(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: ollama circuit breaker open", ErrUnavailable)
		}
		return nil, err
	}
	return result.([][]float32), nil
}

func (c *OllamaClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var respData embedResponse
	if err := c.post(ctx, "/api/embed", embedRequest{Model: c.model, Input: texts}, &respData); err != nil {
		return nil, err
	}

	if len(respData.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama returned %d embeddings for %d inputs", ErrUnavailable, len(respData.Embeddings), len(texts))
	}
	for i, vec := range respData.Embeddings {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: ollama returned empty embedding at index %d", ErrUnavailable, i)
		}
	}
	return respData.Embeddings, nil
}

// post marshals reqBody, POSTs it to path and decodes the JSON response into out.
func (c *OllamaClient) post(ctx context.Context, path string, reqBody any, out any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(c.baseURL, "/")+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return classifyStatus(resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string {
	return c.model
}

// Compile-time assertions.
var (
	_ TextGenerator      = (*OllamaClient)(nil)
	_ EmbeddingGenerator = (*OllamaClient)(nil)
)
