package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/llm"
	"github.com/scrypster/reverie/internal/session"
	"github.com/scrypster/reverie/internal/styleprofile"
	"github.com/scrypster/reverie/internal/vectorindex"
	"github.com/scrypster/reverie/pkg/types"
)

func momTranscript(lines int) string {
	var sb strings.Builder
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&sb, "[1/%d/22, %d:%02d:00 AM] Mom: message number %d about dinner plans\n",
			i%27+1, i%11+1, i%60, i)
	}
	return sb.String()
}

func newTestPipeline(embedder llm.EmbeddingGenerator) (*Pipeline, *vectorindex.MemoryIndex, *session.MemoryRegistry) {
	index := vectorindex.NewMemoryIndex()
	registry := session.NewMemoryRegistry(index)
	cfg := config.IngestConfig{
		BatchSize:      50,
		UpsertChunk:    50,
		MaxRetries:     1,
		MaxFailureRate: 0.3,
		MinMessages:    10,
	}
	batcher := NewBatcher(embedder, cfg, 10000)
	batcher.sleep = func(time.Duration) {}
	pipeline := NewPipeline(index, batcher, styleprofile.New(nil), registry, NewProgressBroker(), cfg, 3)
	return pipeline, index, registry
}

// drain collects every progress record for an upload until the terminal one.
func drain(t *testing.T, p *Pipeline, uploadID string) []types.IngestionProgress {
	t.Helper()
	ch, cancel := p.Progress().Subscribe(uploadID)
	defer cancel()

	var records []types.IngestionProgress
	timeout := time.After(10 * time.Second)
	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return records
			}
			records = append(records, rec)
			if rec.Stage.Terminal() {
				return records
			}
		case <-timeout:
			t.Fatal("timed out waiting for terminal progress record")
		}
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	pipeline, index, registry := newTestPipeline(&mockEmbedder{})

	sessionID, uploadID, err := pipeline.Start(context.Background(), momTranscript(500), "Mom", "Mom")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)
	require.NotEmpty(t, uploadID)

	records := drain(t, pipeline, uploadID)
	require.NotEmpty(t, records)
	final := records[len(records)-1]
	assert.Equal(t, types.StageComplete, final.Stage)
	assert.Equal(t, 100, final.Percent)

	// Percent is monotonically non-decreasing across the whole sequence.
	last := -1
	for _, rec := range records {
		assert.GreaterOrEqual(t, rec.Percent, last)
		last = rec.Percent
	}

	// The session is registered with a precomputed profile over the full
	// corpus and a 1:1 collection reference.
	sess, err := registry.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Mom", sess.PersonName)
	assert.Equal(t, 500, sess.MessageCount)
	assert.Equal(t, sessionID, sess.CollectionRef)
	assert.False(t, sess.EmbeddingWarning)
	require.NotNil(t, sess.Profile)
	assert.Equal(t, 500, sess.Profile.TotalMessages)

	// All vectors landed in the collection.
	hits, err := index.Search(context.Background(), sessionID, []float32{1, 0, 0}, 600, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 500)
}

func TestPipeline_EmptyTranscriptRejectedUpfront(t *testing.T) {
	pipeline, _, _ := newTestPipeline(&mockEmbedder{})
	_, _, err := pipeline.Start(context.Background(), "", "Mom", "Mom")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestPipeline_MissingParticipantRejectedUpfront(t *testing.T) {
	pipeline, _, _ := newTestPipeline(&mockEmbedder{})
	_, _, err := pipeline.Start(context.Background(), momTranscript(20), "Mom", "")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestPipeline_ParseFailureTerminatesWithError(t *testing.T) {
	pipeline, _, registry := newTestPipeline(&mockEmbedder{})

	sessionID, uploadID, err := pipeline.Start(context.Background(), momTranscript(20), "Mom", "Grandpa")
	require.NoError(t, err)

	records := drain(t, pipeline, uploadID)
	final := records[len(records)-1]
	assert.Equal(t, types.StageError, final.Stage)
	assert.Contains(t, final.Message, "Grandpa")

	_, err = registry.Get(sessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestPipeline_EmbeddingFailureCleansUpCollection(t *testing.T) {
	mock := &mockEmbedder{batchErr: llm.ErrAuth}
	pipeline, index, registry := newTestPipeline(mock)

	sessionID, uploadID, err := pipeline.Start(context.Background(), momTranscript(20), "Mom", "Mom")
	require.NoError(t, err)

	records := drain(t, pipeline, uploadID)
	final := records[len(records)-1]
	assert.Equal(t, types.StageError, final.Stage)

	// No session, and the partially created collection is gone.
	_, err = registry.Get(sessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = index.Search(context.Background(), sessionID, []float32{1, 0, 0}, 5, 0)
	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)
}

func TestPipeline_HighFailureRateFlagsSession(t *testing.T) {
	// Batch calls always fail; per-item calls fail for roughly half the
	// messages, pushing the failure rate over the threshold.
	mock := &mockEmbedder{batchErr: llm.ErrUnavailable, failTexts: map[string]error{}}
	raw := momTranscript(20)
	for i := 0; i < 20; i += 2 {
		mock.failTexts[fmt.Sprintf("message number %d about dinner plans", i)] = llm.ErrUnavailable
	}
	pipeline, _, registry := newTestPipeline(mock)

	sessionID, uploadID, err := pipeline.Start(context.Background(), raw, "Mom", "Mom")
	require.NoError(t, err)

	records := drain(t, pipeline, uploadID)
	final := records[len(records)-1]
	require.Equal(t, types.StageComplete, final.Stage)

	sess, err := registry.Get(sessionID)
	require.NoError(t, err)
	assert.True(t, sess.EmbeddingWarning)
}

func TestInterpolate(t *testing.T) {
	assert.Equal(t, 25, interpolate(25, 75, 0, 10))
	assert.Equal(t, 50, interpolate(25, 75, 5, 10))
	assert.Equal(t, 75, interpolate(25, 75, 10, 10))
	assert.Equal(t, 75, interpolate(25, 75, 1, 0))
}
