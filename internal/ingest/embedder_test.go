package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/llm"
	"github.com/scrypster/reverie/pkg/types"
)

// mockEmbedder scripts batch and per-item behavior for one test.
type mockEmbedder struct {
	batchCalls int
	embedCalls int

	// batchErr is returned by EmbedBatch until batchErrCount calls have
	// failed; afterwards batches succeed.
	batchErr      error
	batchErrCount int

	// failTexts are inputs that fail per-item embedding.
	failTexts map[string]error
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	if m.batchErr != nil && (m.batchErrCount == 0 || m.batchCalls <= m.batchErrCount) {
		return nil, m.batchErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if err, ok := m.failTexts[text]; ok {
		return nil, err
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) GetModel() string { return "mock-embedding" }

func newTestBatcher(embedder llm.EmbeddingGenerator, cfg config.IngestConfig) *Batcher {
	b := NewBatcher(embedder, cfg, 10000)
	b.sleep = func(time.Duration) {}
	return b
}

func corpus(n int) []types.Message {
	out := make([]types.Message, n)
	for i := range out {
		out[i] = types.Message{Content: "message " + string(rune('a'+i%26)), Sender: "Mom"}
	}
	return out
}

func TestEmbedCorpus_AllSucceed(t *testing.T) {
	mock := &mockEmbedder{}
	b := newTestBatcher(mock, config.IngestConfig{BatchSize: 10, MaxRetries: 2, MaxFailureRate: 0.3})

	result, err := b.EmbedCorpus(context.Background(), corpus(25), nil)
	require.NoError(t, err)
	assert.Len(t, result.Embedded, 25)
	assert.Equal(t, 0, result.Failed)
	assert.False(t, result.Flagged)
	assert.Equal(t, 3, mock.batchCalls)

	// Every embedded message carries an ID and the original content.
	for _, em := range result.Embedded {
		assert.NotEmpty(t, em.ID)
		assert.NotEmpty(t, em.Vector)
	}
}

func TestEmbedCorpus_ReportsBatchProgress(t *testing.T) {
	mock := &mockEmbedder{}
	b := newTestBatcher(mock, config.IngestConfig{BatchSize: 10, MaxRetries: 0, MaxFailureRate: 0.3})

	var calls [][2]int
	_, err := b.EmbedCorpus(context.Background(), corpus(25), func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestEmbedCorpus_RetriesThenSucceeds(t *testing.T) {
	mock := &mockEmbedder{batchErr: llm.ErrUnavailable, batchErrCount: 2}
	b := newTestBatcher(mock, config.IngestConfig{BatchSize: 10, MaxRetries: 3, MaxFailureRate: 0.3})

	result, err := b.EmbedCorpus(context.Background(), corpus(5), nil)
	require.NoError(t, err)
	assert.Len(t, result.Embedded, 5)
	assert.Equal(t, 3, mock.batchCalls)
	assert.Equal(t, 0, mock.embedCalls)
}

func TestEmbedCorpus_PermanentErrorAborts(t *testing.T) {
	mock := &mockEmbedder{batchErr: llm.ErrAuth}
	b := newTestBatcher(mock, config.IngestConfig{BatchSize: 10, MaxRetries: 3, MaxFailureRate: 0.3})

	_, err := b.EmbedCorpus(context.Background(), corpus(5), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrAuth)
	assert.Equal(t, 1, mock.batchCalls, "auth errors must not be retried")
}

func TestEmbedCorpus_FallsBackToIndividual(t *testing.T) {
	msgs := []types.Message{
		{Content: "good one", Sender: "Mom"},
		{Content: "bad one", Sender: "Mom"},
		{Content: "another good one", Sender: "Mom"},
	}
	mock := &mockEmbedder{
		batchErr: llm.ErrUnavailable,
		failTexts: map[string]error{
			"bad one": llm.ErrUnavailable,
		},
	}
	b := newTestBatcher(mock, config.IngestConfig{BatchSize: 10, MaxRetries: 1, MaxFailureRate: 0.5})

	result, err := b.EmbedCorpus(context.Background(), msgs, nil)
	require.NoError(t, err)
	assert.Len(t, result.Embedded, 2)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, mock.batchCalls)
	assert.Equal(t, 3, mock.embedCalls)
}

func TestEmbedCorpus_FlagsHighFailureRate(t *testing.T) {
	msgs := []types.Message{
		{Content: "good one", Sender: "Mom"},
		{Content: "bad one", Sender: "Mom"},
	}
	mock := &mockEmbedder{
		batchErr: llm.ErrUnavailable,
		failTexts: map[string]error{
			"bad one": llm.ErrUnavailable,
		},
	}
	b := newTestBatcher(mock, config.IngestConfig{BatchSize: 10, MaxRetries: 0, MaxFailureRate: 0.3})

	result, err := b.EmbedCorpus(context.Background(), msgs, nil)
	require.NoError(t, err)
	assert.True(t, result.Flagged)
}

func TestEmbedCorpus_AllFail(t *testing.T) {
	mock := &mockEmbedder{
		batchErr: llm.ErrUnavailable,
		failTexts: map[string]error{
			"message a": llm.ErrUnavailable,
			"message b": llm.ErrUnavailable,
		},
	}
	b := newTestBatcher(mock, config.IngestConfig{BatchSize: 10, MaxRetries: 0, MaxFailureRate: 0.3})

	_, err := b.EmbedCorpus(context.Background(), corpus(2), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoVectors)
}

func TestEmbedCorpus_EmptyCorpus(t *testing.T) {
	b := newTestBatcher(&mockEmbedder{}, config.IngestConfig{})
	result, err := b.EmbedCorpus(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Embedded)
}

func TestBackoff_RateLimitWaitsLonger(t *testing.T) {
	b := newTestBatcher(&mockEmbedder{}, config.IngestConfig{})
	plain := b.backoff(1, llm.ErrUnavailable)
	limited := b.backoff(1, llm.ErrRateLimit)
	assert.Equal(t, time.Second, plain)
	assert.Equal(t, 3*time.Second, limited)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", Sanitize("  ‎hello‏  "))
	long := strings.Repeat("x", 9000)
	assert.Len(t, Sanitize(long), 8000)
	assert.Equal(t, "", Sanitize("   "))
}
