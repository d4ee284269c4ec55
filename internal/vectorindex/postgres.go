package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	_ "github.com/lib/pq" // postgres driver
)

// PostgresIndex is the production Index implementation backed by pgvector.
// Each collection is its own table so dimensionality is fixed per collection
// and DeleteCollection is a single DROP.
type PostgresIndex struct {
	db *sql.DB
}

// NewPostgresIndex opens a pgvector-backed index and ensures the vector
// extension and the collection catalog exist.
func NewPostgresIndex(dsn string) (*PostgresIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	idx := &PostgresIndex{db: db}
	if err := idx.bootstrap(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

// bootstrap installs the pgvector extension and the collection catalog table.
func (p *PostgresIndex) bootstrap() error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS vector_collections (
			id TEXT PRIMARY KEY,
			dims INTEGER NOT NULL,
			metric TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(stmt); err != nil {
			return fmt.Errorf("postgres: bootstrap: %w", err)
		}
	}
	return nil
}

// tableName derives the per-collection table name. Collection IDs are UUIDs;
// dashes are stripped to produce a valid identifier.
func tableName(collectionID string) string {
	return "vectors_" + strings.ReplaceAll(strings.ToLower(collectionID), "-", "")
}

// CreateCollection creates the catalog row and backing table for a collection.
// Creating an existing collection is a no-op.
func (p *PostgresIndex) CreateCollection(ctx context.Context, id string, vectorSize int, metric Metric) error {
	if vectorSize <= 0 {
		return fmt.Errorf("postgres: vector size must be positive, got %d", vectorSize)
	}

	res, err := p.db.ExecContext(ctx, `
		INSERT INTO vector_collections (id, dims, metric)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, id, vectorSize, string(metric))
	if err != nil {
		return fmt.Errorf("postgres: create collection %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Collection already exists.
		return nil
	}

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB NOT NULL
		)
	`, tableName(id), vectorSize)
	if _, err := p.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("postgres: create collection table %s: %w", id, err)
	}
	return nil
}

// Upsert writes points into the collection table, replacing rows by point ID.
func (p *PostgresIndex) Upsert(ctx context.Context, collectionID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if ok, err := p.collectionExists(ctx, collectionID); err != nil {
		return err
	} else if !ok {
		return ErrCollectionNotFound
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: upsert begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			embedding = excluded.embedding,
			payload = excluded.payload
	`, tableName(collectionID))

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("postgres: upsert prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, point := range points {
		payloadJSON, err := json.Marshal(point.Payload)
		if err != nil {
			return fmt.Errorf("postgres: marshal payload for point %s: %w", point.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, point.ID, pgvector.NewVector(point.Vector), payloadJSON); err != nil {
			return fmt.Errorf("postgres: upsert point %s: %w", point.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: upsert commit: %w", err)
	}
	return nil
}

// Search performs cosine-distance search against the collection table and
// returns points with similarity (1 - distance) at or above minScore.
func (p *PostgresIndex) Search(ctx context.Context, collectionID string, vector []float32, topK int, minScore float64) ([]ScoredPoint, error) {
	if ok, err := p.collectionExists(ctx, collectionID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrCollectionNotFound
	}
	if topK <= 0 {
		topK = 10
	}

	querySQL := fmt.Sprintf(`
		SELECT payload, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, tableName(collectionID))

	rows, err := p.db.QueryContext(ctx, querySQL, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search collection %s: %w", collectionID, err)
	}
	defer func() { _ = rows.Close() }()

	var hits []ScoredPoint
	for rows.Next() {
		var payloadJSON []byte
		var score float64
		if err := rows.Scan(&payloadJSON, &score); err != nil {
			return nil, fmt.Errorf("postgres: search scan: %w", err)
		}
		if score < minScore {
			continue
		}
		var payload Payload
		if err := json.Unmarshal(payloadJSON, &payload); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal payload: %w", err)
		}
		hits = append(hits, ScoredPoint{Payload: payload, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search rows: %w", err)
	}
	return hits, nil
}

// DeleteCollection drops the collection table and catalog row. Deleting a
// non-existent collection is a no-op.
func (p *PostgresIndex) DeleteCollection(ctx context.Context, id string) error {
	dropSQL := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableName(id))
	if _, err := p.db.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("postgres: drop collection table %s: %w", id, err)
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM vector_collections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete collection row %s: %w", id, err)
	}
	return nil
}

// collectionExists checks the catalog for the collection.
func (p *PostgresIndex) collectionExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM vector_collections WHERE id = $1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: collection lookup %s: %w", id, err)
	}
	return true, nil
}

// Close closes the underlying database handle.
func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

// Compile-time assertion.
var _ Index = (*PostgresIndex)(nil)
