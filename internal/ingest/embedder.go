// Package ingest runs the transcript ingestion pipeline: parse, embed in
// batches, upsert into the vector index, and publish progress records until
// a terminal stage is reached.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/llm"
	"github.com/scrypster/reverie/pkg/types"
)

// ErrNoVectors indicates that every embedding attempt failed and the
// ingestion cannot produce a usable collection.
var ErrNoVectors = errors.New("no vectors produced")

// maxInputChars clamps sanitized text to the provider input limit.
const maxInputChars = 8000

// Batcher embeds message corpora against the configured embedding provider.
// It batches calls to minimize per-call overhead, retries failed batches
// with exponential backoff classified by error kind, and falls back to
// per-item embedding so a single bad item cannot sink its batch.
type Batcher struct {
	embedder llm.EmbeddingGenerator
	limiter  *rate.Limiter
	cfg      config.IngestConfig

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewBatcher creates a batcher. embedRPS bounds embedding calls per second.
func NewBatcher(embedder llm.EmbeddingGenerator, cfg config.IngestConfig, embedRPS float64) *Batcher {
	if embedRPS <= 0 {
		embedRPS = 5
	}
	return &Batcher{
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(embedRPS), 1),
		cfg:      cfg,
		sleep:    time.Sleep,
	}
}

// BatchResult is the outcome of embedding one corpus.
type BatchResult struct {
	// Embedded holds the successfully embedded messages, corpus order
	// preserved.
	Embedded []types.EmbeddedMessage

	// Failed counts messages that produced no vector after every retry
	// and the per-item fallback.
	Failed int

	// Flagged is set when the failure rate exceeded the configured
	// threshold. Ingestion proceeds but the session carries a warning.
	Flagged bool
}

// EmbedCorpus embeds the whole corpus in fixed-size batches. onBatch, when
// non-nil, is called after each batch with (completedBatches, totalBatches)
// for progress interpolation.
//
// Auth and provider-config errors abort immediately: retrying cannot help
// and burning the retry budget would only delay the terminal error.
func (b *Batcher) EmbedCorpus(ctx context.Context, corpus []types.Message, onBatch func(done, total int)) (*BatchResult, error) {
	result := &BatchResult{}
	if len(corpus) == 0 {
		return result, nil
	}

	batchSize := b.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	totalBatches := (len(corpus) + batchSize - 1) / batchSize

	for batchNum := 0; batchNum < totalBatches; batchNum++ {
		start := batchNum * batchSize
		end := start + batchSize
		if end > len(corpus) {
			end = len(corpus)
		}
		batch := corpus[start:end]

		embedded, failed, err := b.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		result.Embedded = append(result.Embedded, embedded...)
		result.Failed += failed

		if onBatch != nil {
			onBatch(batchNum+1, totalBatches)
		}
	}

	if len(result.Embedded) == 0 {
		return nil, fmt.Errorf("%w: all %d messages failed to embed", ErrNoVectors, len(corpus))
	}

	failureRate := float64(result.Failed) / float64(len(corpus))
	if failureRate > b.cfg.MaxFailureRate {
		log.Printf("ingest: embedding failure rate %.0f%% exceeds threshold, flagging session", failureRate*100)
		result.Flagged = true
	}
	return result, nil
}

// embedBatch embeds one batch with retries, falling back to per-item calls
// when the batch retry budget is exhausted on a retryable error.
func (b *Batcher) embedBatch(ctx context.Context, batch []types.Message) ([]types.EmbeddedMessage, int, error) {
	texts := make([]string, len(batch))
	for i, msg := range batch {
		texts[i] = Sanitize(msg.Content)
	}

	var lastErr error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			b.sleep(b.backoff(attempt, lastErr))
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}

		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return attach(batch, vectors), 0, nil
		}
		lastErr = err

		if !llm.Retryable(err) {
			return nil, 0, fmt.Errorf("embedding batch failed permanently: %w", err)
		}
		log.Printf("ingest: batch attempt %d/%d failed: %v", attempt+1, b.cfg.MaxRetries+1, err)
	}

	// Retry budget exhausted: try each message on its own so one bad item
	// does not sink the batch.
	log.Printf("ingest: batch retries exhausted, falling back to per-item embedding (%d items)", len(batch))
	return b.embedIndividually(ctx, batch, texts)
}

// embedIndividually embeds each message with a single attempt, counting
// failures instead of propagating them. Permanent errors still abort.
func (b *Batcher) embedIndividually(ctx context.Context, batch []types.Message, texts []string) ([]types.EmbeddedMessage, int, error) {
	var embedded []types.EmbeddedMessage
	failed := 0

	for i, msg := range batch {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
		vector, err := b.embedder.Embed(ctx, texts[i])
		if err != nil {
			if !llm.Retryable(err) {
				return nil, 0, fmt.Errorf("embedding failed permanently: %w", err)
			}
			failed++
			continue
		}
		embedded = append(embedded, newEmbedded(msg, vector))
	}
	return embedded, failed, nil
}

// backoff computes the delay before the given retry attempt (1-indexed).
// Rate-limit errors wait three times longer than other transient failures.
func (b *Batcher) backoff(attempt int, err error) time.Duration {
	delay := time.Second << (attempt - 1) // 1s, 2s, 4s...
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	if errors.Is(err, llm.ErrRateLimit) {
		delay *= 3
	}
	return delay
}

// attach pairs each message with its vector, index-aligned.
func attach(batch []types.Message, vectors [][]float32) []types.EmbeddedMessage {
	embedded := make([]types.EmbeddedMessage, len(batch))
	for i, msg := range batch {
		embedded[i] = newEmbedded(msg, vectors[i])
	}
	return embedded
}

func newEmbedded(msg types.Message, vector []float32) types.EmbeddedMessage {
	return types.EmbeddedMessage{
		Message: msg,
		ID:      uuid.NewString(),
		Vector:  vector,
	}
}

// Sanitize prepares text for the embedding provider: directional and
// zero-width marks stripped, whitespace trimmed, length clamped.
func Sanitize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '‎', '‏', '​', '‪', '‫', '‬', '‭', '‮':
			return -1
		}
		return r
	}, text)
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > maxInputChars {
		cleaned = string(runes[:maxInputChars])
	}
	return cleaned
}
