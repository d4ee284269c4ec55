package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index implementation backed by a map and a
// linear cosine scan. It is the default backend for development and tests;
// corpora in this system are small enough (hundreds to low thousands of
// messages per session) that brute-force search is adequate.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dims   int
	metric Metric
	points map[string]Point
}

// NewMemoryIndex creates an empty in-memory vector index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		collections: make(map[string]*memoryCollection),
	}
}

// CreateCollection registers a collection. Creating an existing collection
// is a no-op.
func (m *MemoryIndex) CreateCollection(ctx context.Context, id string, vectorSize int, metric Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[id]; ok {
		return nil
	}
	m.collections[id] = &memoryCollection{
		dims:   vectorSize,
		metric: metric,
		points: make(map[string]Point),
	}
	return nil
}

// Upsert inserts or replaces points by ID.
func (m *MemoryIndex) Upsert(ctx context.Context, collectionID string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[collectionID]
	if !ok {
		return ErrCollectionNotFound
	}
	for _, p := range points {
		coll.points[p.ID] = p
	}
	return nil
}

// Search scans the collection and returns up to topK points with similarity
// at or above minScore, ranked by descending score.
func (m *MemoryIndex) Search(ctx context.Context, collectionID string, vector []float32, topK int, minScore float64) ([]ScoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collectionID]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	if topK <= 0 {
		topK = 10
	}

	var hits []ScoredPoint
	for _, p := range coll.points {
		var score float64
		switch coll.metric {
		case MetricDot:
			score = dotProduct(vector, p.Vector)
		default:
			score = cosineSimilarity(vector, p.Vector)
		}
		if score < minScore {
			continue
		}
		hits = append(hits, ScoredPoint{Payload: p.Payload, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		// Stable tiebreak so repeated searches rank identically.
		return hits[i].Payload.Content < hits[j].Payload.Content
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteCollection removes a collection and all its points. Deleting a
// non-existent collection is a no-op.
func (m *MemoryIndex) DeleteCollection(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, id)
	return nil
}

// Close releases nothing; it exists to satisfy the Index interface.
func (m *MemoryIndex) Close() error {
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Compile-time assertion.
var _ Index = (*MemoryIndex)(nil)
