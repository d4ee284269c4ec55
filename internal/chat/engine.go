package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/llm"
	"github.com/scrypster/reverie/internal/retrieval"
	"github.com/scrypster/reverie/internal/session"
	"github.com/scrypster/reverie/internal/storage"
	"github.com/scrypster/reverie/pkg/types"
)

// Reply is the outcome of one chat turn. A degraded turn carries a Warning
// instead of an error: provider failures never surface as request failures.
type Reply struct {
	Response      string `json:"response"`
	ContextUsed   bool   `json:"context_used"`
	RelevantCount int    `json:"relevant_count"`
	Warning       string `json:"warning,omitempty"`

	// ProcessingTimeMs is the wall-clock time spent on the turn.
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// Engine orchestrates a synchronous chat turn: history load, repetition
// detection, memory retrieval, payload composition, generation and turn
// persistence.
type Engine struct {
	registry  session.Registry
	retriever *retrieval.Retriever
	composer  *Composer
	generator llm.TextGenerator
	turns     storage.TurnStore
	cfg       config.ChatConfig
}

// NewEngine creates a chat engine.
func NewEngine(registry session.Registry, retriever *retrieval.Retriever, composer *Composer, generator llm.TextGenerator, turns storage.TurnStore, cfg config.ChatConfig) *Engine {
	return &Engine{
		registry:  registry,
		retriever: retriever,
		composer:  composer,
		generator: generator,
		turns:     turns,
		cfg:       cfg,
	}
}

// Respond runs one chat turn for the session. It returns an error only for
// unknown sessions and invalid input; embedding, retrieval and generation
// failures degrade to fallback responses with a warning.
func (e *Engine) Respond(ctx context.Context, sessionID, utterance string) (*Reply, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, types.NewValidationError("message must not be empty")
	}

	sess, err := e.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.MessageCount < e.cfg.ReadinessMessages {
		return nil, types.NewValidationError("session has %d messages, needs at least %d before chat", sess.MessageCount, e.cfg.ReadinessMessages)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.TurnDeadline)
	defer cancel()

	started := time.Now()

	history := e.loadHistory(ctx, sessionID)
	repetition := DetectRepetition(utterance, userMessages(history), e.cfg.RepetitionWindow)

	reply := e.generate(ctx, sess, utterance, history, repetition)
	reply.Response = PostProcess(reply.Response, e.cfg.MaxResponseChars)
	reply.ProcessingTimeMs = time.Since(started).Milliseconds()

	e.persistTurn(ctx, sessionID, utterance, reply)

	if err := e.registry.Update(sessionID, func(s *types.Session) error {
		s.Touch(time.Now())
		return nil
	}); err != nil {
		log.Printf("Failed to touch session %s: %v", sessionID, err)
	}

	return reply, nil
}

// generate produces the response text, degrading stepwise: embedding failure
// skips retrieval and generation entirely; retrieval failure proceeds without
// memories; generation failure falls back to a canned reply.
func (e *Engine) generate(ctx context.Context, sess *types.Session, utterance string, history []types.Turn, repetition RepetitionReport) *Reply {
	vec, err := e.retriever.EmbedUtterance(ctx, utterance)
	if err != nil {
		log.Printf("Embedding failed for session %s, using context-free reply: %v", sess.ID, err)
		return &Reply{
			Response: ContextFreeReply(utterance),
			Warning:  "Memory lookup was unavailable for this message.",
		}
	}

	var memories []string
	var relevantCount int
	result, err := e.retriever.Retrieve(ctx, sess.CollectionRef, utterance, vec, sess.Corpus)
	if err != nil {
		log.Printf("Retrieval failed for session %s, continuing without memories: %v", sess.ID, err)
	} else {
		memories = result.Examples
		relevantCount = result.RelevantCount
	}

	payload := e.composer.Compose(sess, utterance, memories, relevantCount, history, repetition)

	response, err := e.generator.Complete(ctx, payload.Instructions, payload.History, payload.Utterance, llm.CompletionParams{
		Temperature: 0.8,
		MaxTokens:   500,
	})
	if err != nil {
		log.Printf("Generation failed for session %s, using canned reply: %v", sess.ID, err)
		return &Reply{
			Response:      CannedReply(),
			ContextUsed:   payload.ContextUsed,
			RelevantCount: payload.RelevantCount,
			Warning:       "The response service was temporarily unavailable.",
		}
	}

	return &Reply{
		Response:      response,
		ContextUsed:   payload.ContextUsed,
		RelevantCount: payload.RelevantCount,
	}
}

// loadHistory reads back enough recent turns to cover both the few-shot
// history and the repetition window. Failures degrade to an empty history.
func (e *Engine) loadHistory(ctx context.Context, sessionID string) []types.Turn {
	limit := e.cfg.HistoryLimit
	if e.cfg.RepetitionWindow > limit {
		limit = e.cfg.RepetitionWindow
	}
	history, err := e.turns.ListRecent(ctx, sessionID, limit)
	if err != nil {
		log.Printf("Failed to load turn history for session %s: %v", sessionID, err)
		return nil
	}
	return history
}

func (e *Engine) persistTurn(ctx context.Context, sessionID, utterance string, reply *Reply) {
	turn := &types.Turn{
		SessionID:        sessionID,
		UserMessage:      utterance,
		AIResponse:       reply.Response,
		ContextUsed:      reply.ContextUsed,
		RelevantCount:    reply.RelevantCount,
		ProcessingTimeMs: reply.ProcessingTimeMs,
		CreatedAt:        time.Now(),
	}
	if err := e.turns.Append(ctx, turn); err != nil {
		log.Printf("Failed to persist turn for session %s: %v", sessionID, err)
	}
}

// userMessages extracts the user side of the turn history, preserving the
// most-recent-first order the store returns.
func userMessages(history []types.Turn) []string {
	messages := make([]string, 0, len(history))
	for _, turn := range history {
		messages = append(messages, turn.UserMessage)
	}
	return messages
}
