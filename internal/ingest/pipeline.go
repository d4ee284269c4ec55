package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/session"
	"github.com/scrypster/reverie/internal/styleprofile"
	"github.com/scrypster/reverie/internal/transcript"
	"github.com/scrypster/reverie/internal/vectorindex"
	"github.com/scrypster/reverie/pkg/types"
)

// Stage percent anchors. Analyzing progress interpolates across embedding
// batches; finalizing progress interpolates across upsert chunks.
const (
	percentReading         = 5
	percentParsing         = 15
	percentAnalyzingStart  = 25
	percentAnalyzingEnd    = 75
	percentFinalizingStart = 80
	percentFinalizingEnd   = 95
)

// Pipeline runs transcript ingestion end to end. The initiating call
// returns immediately with the new session and upload IDs; the work runs in
// a background goroutine publishing progress records until a terminal stage.
type Pipeline struct {
	index    vectorindex.Index
	batcher  *Batcher
	profiler *styleprofile.Profiler
	registry session.Registry
	progress *ProgressBroker

	ingestCfg config.IngestConfig
	dims      int
}

// NewPipeline wires the ingestion pipeline.
func NewPipeline(index vectorindex.Index, batcher *Batcher, profiler *styleprofile.Profiler, registry session.Registry, progress *ProgressBroker, ingestCfg config.IngestConfig, embeddingDims int) *Pipeline {
	return &Pipeline{
		index:     index,
		batcher:   batcher,
		profiler:  profiler,
		registry:  registry,
		progress:  progress,
		ingestCfg: ingestCfg,
		dims:      embeddingDims,
	}
}

// Progress exposes the broker for transports that stream or poll records.
func (p *Pipeline) Progress() *ProgressBroker {
	return p.progress
}

// Start validates nothing beyond non-emptiness, allocates IDs and launches
// the ingestion run. Errors discovered later (parse validation, provider
// failures) surface through the progress channel as a terminal error stage;
// a failed upload is never retried automatically, the caller resubmits.
func (p *Pipeline) Start(ctx context.Context, raw, personName, participant string) (sessionID, uploadID string, err error) {
	if raw == "" {
		return "", "", types.NewValidationError("transcript file is empty")
	}
	if participant == "" {
		return "", "", types.NewValidationError("participant name is required")
	}
	if personName == "" {
		personName = participant
	}

	sessionID = uuid.NewString()
	uploadID = uuid.NewString()

	p.publish(uploadID, types.StageReading, percentReading, "reading transcript", 0, 0)

	go p.run(context.WithoutCancel(ctx), raw, personName, participant, sessionID, uploadID)
	return sessionID, uploadID, nil
}

// run executes the pipeline stages. Any failure publishes a terminal error
// record and tears down the collection if it was already created, keeping
// the collection:session invariant (no orphaned collections).
func (p *Pipeline) run(ctx context.Context, raw, personName, participant, sessionID, uploadID string) {
	collectionCreated := false
	fail := func(stageErr error) {
		log.Printf("ingest: upload %s failed: %v", uploadID, stageErr)
		if collectionCreated {
			if err := p.index.DeleteCollection(ctx, sessionID); err != nil {
				log.Printf("ingest: cleanup of collection %s failed: %v", sessionID, err)
			}
		}
		p.publish(uploadID, types.StageError, 0, stageErr.Error(), 0, 0)
	}

	// Parsing.
	corpus, stats, err := transcript.Parse(raw, participant, p.ingestCfg.MinMessages)
	if err != nil {
		fail(err)
		return
	}
	p.publish(uploadID, types.StageParsing, percentParsing,
		fmt.Sprintf("parsed %d messages for %s", len(corpus), participant), len(corpus), 0)

	// The collection must exist before the session can ever be registered.
	if err := p.index.CreateCollection(ctx, sessionID, p.dims, vectorindex.MetricCosine); err != nil {
		fail(fmt.Errorf("failed to create collection: %w", err))
		return
	}
	collectionCreated = true

	// Analyzing: batch embedding with interpolated percent.
	result, err := p.batcher.EmbedCorpus(ctx, corpus, func(done, total int) {
		percent := interpolate(percentAnalyzingStart, percentAnalyzingEnd, done, total)
		p.publish(uploadID, types.StageAnalyzing, percent,
			fmt.Sprintf("embedded batch %d of %d", done, total), len(corpus), done*p.ingestCfg.BatchSize)
	})
	if err != nil {
		fail(fmt.Errorf("embedding failed: %w", err))
		return
	}

	// Finalizing: chunked upsert, language detection, profile precompute.
	if err := p.upsertChunks(ctx, sessionID, uploadID, result.Embedded); err != nil {
		fail(fmt.Errorf("vector upsert failed: %w", err))
		return
	}

	languages := transcript.DetectLanguages(corpus)
	profile := p.profiler.Compute(corpus)

	now := time.Now()
	sess := &types.Session{
		ID:                  sessionID,
		PersonName:          personName,
		SelectedParticipant: participant,
		MessageCount:        len(corpus),
		CollectionRef:       sessionID,
		CreatedAt:           now,
		LastActivity:        now,
		DetectedLanguages:   languages,
		EmbeddingWarning:    result.Flagged,
		Corpus:              corpus,
		Profile:             profile,
	}
	p.registry.Put(sess)

	log.Printf("ingest: upload %s complete: session %s, %d messages (%d matched, %d skipped system, %d skipped short), %d vectors, %d failed",
		uploadID, sessionID, len(corpus), stats.MatchedLines, stats.SkippedSystem, stats.SkippedShort, len(result.Embedded), result.Failed)
	p.publish(uploadID, types.StageComplete, 100, "session ready", len(corpus), len(corpus))
}

// upsertChunks writes embedded messages to the index in bounded chunks,
// reporting incremental finalizing progress after each one.
func (p *Pipeline) upsertChunks(ctx context.Context, collectionID, uploadID string, embedded []types.EmbeddedMessage) error {
	chunkSize := p.ingestCfg.UpsertChunk
	if chunkSize <= 0 {
		chunkSize = 100
	}
	totalChunks := (len(embedded) + chunkSize - 1) / chunkSize

	for chunkNum := 0; chunkNum < totalChunks; chunkNum++ {
		start := chunkNum * chunkSize
		end := start + chunkSize
		if end > len(embedded) {
			end = len(embedded)
		}

		points := make([]vectorindex.Point, 0, end-start)
		for _, em := range embedded[start:end] {
			points = append(points, vectorindex.Point{
				ID:     em.ID,
				Vector: em.Vector,
				Payload: vectorindex.Payload{
					Content:   em.Content,
					Sender:    em.Sender,
					Timestamp: em.Timestamp,
				},
			})
		}
		if err := p.index.Upsert(ctx, collectionID, points); err != nil {
			return err
		}

		percent := interpolate(percentFinalizingStart, percentFinalizingEnd, chunkNum+1, totalChunks)
		p.publish(uploadID, types.StageFinalizing, percent,
			fmt.Sprintf("stored chunk %d of %d", chunkNum+1, totalChunks), len(embedded), end)
	}
	return nil
}

func (p *Pipeline) publish(uploadID string, stage types.Stage, percent int, message string, total, processed int) {
	p.progress.Publish(types.IngestionProgress{
		UploadID:       uploadID,
		Stage:          stage,
		Percent:        percent,
		Message:        message,
		TotalItems:     total,
		ProcessedItems: processed,
	})
}

// interpolate maps done/total onto the [start, end] percent range.
func interpolate(start, end, done, total int) int {
	if total <= 0 {
		return end
	}
	return start + (end-start)*done/total
}
