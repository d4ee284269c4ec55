// Package vectorindex provides the per-session vector collection abstraction.
//
// This is the only package that talks to the external vector store; every
// other component depends on the Index interface, never on a store directly.
package vectorindex

import (
	"context"
	"errors"
)

// Metric selects the distance metric a collection is created with.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

// ErrCollectionNotFound indicates a search or upsert against a collection
// that does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Point is one embedded message ready for upsert.
type Point struct {
	// ID is the point identifier (UUID).
	ID string

	// Vector is the embedding.
	Vector []float32

	// Payload carries the original message fields, copied by value.
	Payload Payload
}

// Payload is the message data stored alongside a vector.
type Payload struct {
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// ScoredPoint is one ranked search hit.
type ScoredPoint struct {
	Payload Payload

	// Score is the similarity score, higher is more similar
	// (1 - cosine distance for the cosine metric).
	Score float64
}

// Index is the capability-style interface over the vector store.
//
// CreateCollection is idempotent: creating an existing collection is a no-op.
// DeleteCollection tolerates a non-existent collection: also a no-op.
type Index interface {
	CreateCollection(ctx context.Context, id string, vectorSize int, metric Metric) error
	Upsert(ctx context.Context, collectionID string, points []Point) error
	Search(ctx context.Context, collectionID string, vector []float32, topK int, minScore float64) ([]ScoredPoint, error)
	DeleteCollection(ctx context.Context, id string) error
	Close() error
}
