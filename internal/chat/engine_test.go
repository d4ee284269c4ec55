package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/llm"
	"github.com/scrypster/reverie/internal/retrieval"
	"github.com/scrypster/reverie/internal/session"
	"github.com/scrypster/reverie/internal/vectorindex"
	"github.com/scrypster/reverie/pkg/types"
)

// mockGenerator scripts the text generation side.
type mockGenerator struct {
	response string
	err      error

	lastInstructions string
	lastHistory      []llm.TurnPair
}

func (m *mockGenerator) Complete(ctx context.Context, instructions string, history []llm.TurnPair, utterance string, params llm.CompletionParams) (string, error) {
	m.lastInstructions = instructions
	m.lastHistory = history
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockGenerator) GetModel() string { return "mock-chat" }

// mockEmbedder embeds everything to a fixed vector, optionally failing.
type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (m *mockEmbedder) GetModel() string { return "mock-embedding" }

// memoryTurnStore is an in-memory TurnStore for tests.
type memoryTurnStore struct {
	mu    sync.Mutex
	turns map[string][]types.Turn
}

func newMemoryTurnStore() *memoryTurnStore {
	return &memoryTurnStore{turns: make(map[string][]types.Turn)}
}

func (s *memoryTurnStore) Append(ctx context.Context, turn *types.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], *turn)
	return nil
}

func (s *memoryTurnStore) ListRecent(ctx context.Context, sessionID string, limit int) ([]types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.turns[sessionID]
	var out []types.Turn
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

func (s *memoryTurnStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, sessionID)
	return nil
}

func (s *memoryTurnStore) Close() error { return nil }

func chatConfig() config.ChatConfig {
	return config.ChatConfig{
		HistoryLimit:      6,
		RepetitionWindow:  5,
		MaxResponseChars:  1200,
		PayloadBudget:     6000,
		TurnDeadline:      5 * time.Second,
		ReadinessMessages: 3,
	}
}

func newTestEngine(t *testing.T, embedder llm.EmbeddingGenerator, generator llm.TextGenerator) (*Engine, *memoryTurnStore, *session.MemoryRegistry) {
	t.Helper()
	index := vectorindex.NewMemoryIndex()
	registry := session.NewMemoryRegistry(index)

	sess := testSession()
	require.NoError(t, index.CreateCollection(context.Background(), sess.ID, 3, vectorindex.MetricCosine))
	sess.CollectionRef = sess.ID
	registry.Put(sess)

	retriever, err := retrieval.New(index, embedder, nil, config.RetrievalConfig{
		BroadTopK: 15, BroadCap: 8, BroadMinScore: 0.3,
		CandidateCap: 5, LooseCap: 6, LooseMinScore: 0.2,
		DirectCap: 10, OverallCap: 18, SearchConcurrent: 4, EmbedCacheSize: 16,
	})
	require.NoError(t, err)

	turns := newMemoryTurnStore()
	composer := NewComposer(nil, 6000, 6)
	engine := NewEngine(registry, retriever, composer, generator, turns, chatConfig())
	return engine, turns, registry
}

func TestRespond_HappyPath(t *testing.T) {
	gen := &mockGenerator{response: "of course I remember, sweetheart"}
	engine, turns, registry := newTestEngine(t, &mockEmbedder{}, gen)
	require.NoError(t, registry.Update("sess-1", func(s *types.Session) error {
		s.LastActivity = time.Now().Add(-time.Hour)
		return nil
	}))

	reply, err := engine.Respond(context.Background(), "sess-1", "do you remember the lake?")
	require.NoError(t, err)
	assert.Equal(t, "of course I remember, sweetheart", reply.Response)
	assert.Empty(t, reply.Warning)

	// The turn was persisted.
	stored, err := turns.ListRecent(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "do you remember the lake?", stored[0].UserMessage)

	// Activity was touched.
	sess, err := registry.Get("sess-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), sess.LastActivity, time.Minute)
}

func TestRespond_EmptyMessage(t *testing.T) {
	engine, _, _ := newTestEngine(t, &mockEmbedder{}, &mockGenerator{response: "x"})
	_, err := engine.Respond(context.Background(), "sess-1", "   ")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestRespond_UnknownSession(t *testing.T) {
	engine, _, _ := newTestEngine(t, &mockEmbedder{}, &mockGenerator{response: "x"})
	_, err := engine.Respond(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRespond_NotReady(t *testing.T) {
	gen := &mockGenerator{response: "x"}
	engine, _, registry := newTestEngine(t, &mockEmbedder{}, gen)
	require.NoError(t, registry.Update("sess-1", func(s *types.Session) error {
		s.MessageCount = 1
		return nil
	}))

	_, err := engine.Respond(context.Background(), "sess-1", "hello")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
	assert.Contains(t, err.Error(), "has 1 messages")
	assert.Contains(t, err.Error(), "at least 3")
}

func TestRespond_EmbeddingFailureUsesContextFreeReply(t *testing.T) {
	gen := &mockGenerator{response: "should not be used"}
	engine, turns, _ := newTestEngine(t, &mockEmbedder{err: llm.ErrUnavailable}, gen)

	reply, err := engine.Respond(context.Background(), "sess-1", "I miss you so much")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Warning)
	assert.Contains(t, missReplies, reply.Response)
	assert.Empty(t, gen.lastInstructions, "generation must be skipped entirely")

	// Degraded turns are still persisted.
	stored, err := turns.ListRecent(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRespond_GenerationFailureUsesCannedReply(t *testing.T) {
	gen := &mockGenerator{err: llm.ErrUnavailable}
	engine, _, _ := newTestEngine(t, &mockEmbedder{}, gen)

	reply, err := engine.Respond(context.Background(), "sess-1", "how are you?")
	require.NoError(t, err, "generation failure must never surface as a request error")
	assert.NotEmpty(t, reply.Warning)
	assert.Contains(t, cannedReplies, reply.Response)
}

func TestRespond_RepetitionFlowsIntoPrompt(t *testing.T) {
	gen := &mockGenerator{response: "you already asked me that, love"}
	engine, _, _ := newTestEngine(t, &mockEmbedder{}, gen)

	_, err := engine.Respond(context.Background(), "sess-1", "where are you?")
	require.NoError(t, err)
	assert.NotContains(t, gen.lastInstructions, "repeating themselves")

	_, err = engine.Respond(context.Background(), "sess-1", "where are you?")
	require.NoError(t, err)
	assert.Contains(t, gen.lastInstructions, "repeating themselves")
}

func TestRespond_HistoryInjected(t *testing.T) {
	gen := &mockGenerator{response: "fine"}
	engine, turns, _ := newTestEngine(t, &mockEmbedder{}, gen)

	require.NoError(t, turns.Append(context.Background(), &types.Turn{
		SessionID:   "sess-1",
		UserMessage: "earlier question",
		AIResponse:  "earlier answer",
		CreatedAt:   time.Now(),
	}))

	_, err := engine.Respond(context.Background(), "sess-1", "and now?")
	require.NoError(t, err)
	require.Len(t, gen.lastHistory, 1)
	assert.Equal(t, "earlier question", gen.lastHistory[0].User)
}

func TestRespond_ResponseTruncated(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	gen := &mockGenerator{response: string(long)}
	engine, _, _ := newTestEngine(t, &mockEmbedder{}, gen)

	reply, err := engine.Respond(context.Background(), "sess-1", "tell me everything")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(reply.Response), 1200)
}
