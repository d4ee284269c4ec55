// Package retrieval finds historical messages relevant to a live utterance.
//
// Two strategies run against the session's vector collection and are merged
// with a fixed priority: targeted memories (per-candidate searches plus a
// literal corpus scan) rank above broad semantic matches, and any remaining
// capacity is filled with random style samples from the corpus.
package retrieval

import (
	"context"
	"math/rand"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/ingest"
	"github.com/scrypster/reverie/internal/lexicon"
	"github.com/scrypster/reverie/internal/llm"
	"github.com/scrypster/reverie/internal/vectorindex"
	"github.com/scrypster/reverie/pkg/types"
)

// Result is the merged retrieval outcome for one utterance.
type Result struct {
	// Examples is the ranked, deduplicated list of example messages,
	// bounded by the overall cap.
	Examples []string

	// RelevantCount is how many examples came from targeted or broad
	// search (style fillers excluded).
	RelevantCount int
}

// Retriever runs hybrid semantic + keyword retrieval against one collection.
type Retriever struct {
	index    vectorindex.Index
	embedder llm.EmbeddingGenerator
	lex      *lexicon.Lexicon
	cfg      config.RetrievalConfig

	cache *lru.Cache[string, []float32]
}

// New creates a retriever. The LRU cache avoids re-embedding repeated
// utterances in the chat path.
func New(index vectorindex.Index, embedder llm.EmbeddingGenerator, lex *lexicon.Lexicon, cfg config.RetrievalConfig) (*Retriever, error) {
	if lex == nil {
		lex = lexicon.Default()
	}
	size := cfg.EmbedCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Retriever{
		index:    index,
		embedder: embedder,
		lex:      lex,
		cfg:      cfg,
		cache:    cache,
	}, nil
}

// EmbedUtterance embeds an utterance, serving repeats from the cache.
func (r *Retriever) EmbedUtterance(ctx context.Context, utterance string) ([]float32, error) {
	key := ingest.Sanitize(utterance)
	if vec, ok := r.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := r.embedder.Embed(ctx, key)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, vec)
	return vec, nil
}

// Retrieve runs both strategies and merges them. utteranceVec is the
// already-computed utterance embedding (callers embed once and reuse it for
// both retrieval and repetition handling).
//
// Search failures inside a strategy degrade that strategy rather than
// failing the whole retrieval: the corpus scan is fully in-process and
// always contributes when the index is unreachable.
func (r *Retriever) Retrieve(ctx context.Context, collectionID, utterance string, utteranceVec []float32, corpus []types.Message) (*Result, error) {
	candidates := r.ExtractCandidates(utterance)

	var (
		mu       sync.Mutex
		targeted []string
		broad    []string
	)

	g, gctx := errgroup.WithContext(ctx)
	limit := r.cfg.SearchConcurrent
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	// Broad semantic pass.
	g.Go(func() error {
		hits, err := r.index.Search(gctx, collectionID, utteranceVec, r.cfg.BroadTopK, r.cfg.BroadMinScore)
		if err != nil {
			return nil // degrade: the targeted and direct passes still run
		}
		mu.Lock()
		for i, hit := range hits {
			if i == r.cfg.BroadCap {
				break
			}
			broad = append(broad, hit.Payload.Content)
		}
		mu.Unlock()
		return nil
	})

	// Targeted pass: one search per candidate.
	for _, candidate := range candidates {
		g.Go(func() error {
			vec, err := r.EmbedUtterance(gctx, candidate)
			if err != nil {
				return nil
			}
			hits, err := r.index.Search(gctx, collectionID, vec, r.cfg.CandidateCap, r.cfg.BroadMinScore)
			if err != nil {
				return nil
			}
			mu.Lock()
			for _, hit := range hits {
				targeted = append(targeted, hit.Payload.Content)
			}
			mu.Unlock()
			return nil
		})
	}

	// Looser whole-utterance pass for broader context.
	g.Go(func() error {
		hits, err := r.index.Search(gctx, collectionID, utteranceVec, r.cfg.LooseCap, r.cfg.LooseMinScore)
		if err != nil {
			return nil
		}
		mu.Lock()
		for _, hit := range hits {
			targeted = append(targeted, hit.Payload.Content)
		}
		mu.Unlock()
		return nil
	})

	_ = g.Wait() // goroutines only ever return nil

	// Deterministic literal fallback: substring scan over the corpus
	// catches what the index missed.
	direct := r.directMatches(candidates, corpus)

	return r.merge(targeted, direct, broad, corpus), nil
}

// directMatches scans the corpus for literal substring occurrences of each
// candidate, bounded by the direct cap.
func (r *Retriever) directMatches(candidates []string, corpus []types.Message) []string {
	limit := r.cfg.DirectCap
	if limit <= 0 {
		limit = 10
	}
	var matches []string
	for _, candidate := range candidates {
		for _, msg := range corpus {
			if len(matches) == limit {
				return matches
			}
			if containsFold(msg.Content, candidate) {
				matches = append(matches, msg.Content)
			}
		}
	}
	return matches
}

// merge deduplicates by exact content and applies the priority order:
// targeted and direct memories first, broad matches second, then random
// style samples to fill remaining capacity, truncated to the overall cap.
func (r *Retriever) merge(targeted, direct, broad []string, corpus []types.Message) *Result {
	overall := r.cfg.OverallCap
	if overall <= 0 {
		overall = 18
	}

	seen := make(map[string]struct{})
	result := &Result{}
	add := func(content string, relevant bool) bool {
		if len(result.Examples) == overall {
			return false
		}
		if _, dup := seen[content]; dup {
			return true
		}
		seen[content] = struct{}{}
		result.Examples = append(result.Examples, content)
		if relevant {
			result.RelevantCount++
		}
		return true
	}

	for _, c := range targeted {
		if !add(c, true) {
			break
		}
	}
	for _, c := range direct {
		if !add(c, true) {
			break
		}
	}
	for _, c := range broad {
		if !add(c, true) {
			break
		}
	}

	// Style fillers: random corpus samples round out the voice even when
	// few memories are relevant.
	if len(result.Examples) < overall && len(corpus) > 0 {
		for _, i := range rand.Perm(len(corpus)) {
			if !add(corpus[i].Content, false) {
				break
			}
		}
	}
	return result
}
