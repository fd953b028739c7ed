package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bdougie/photoreel/internal/embeddings"
	"github.com/bdougie/photoreel/internal/models"
)

// PostgresStorage mirrors analysis results into a photos table with a
// description embedding, so past runs can be searched by meaning.
type PostgresStorage struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
	baseURL  string
	logger   *slog.Logger
}

// Connect opens a connection pool and verifies it
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresStorage creates a catalog on an open pool
func NewPostgresStorage(pool *pgxpool.Pool, embedder embeddings.Embedder, baseURL string, logger *slog.Logger) *PostgresStorage {
	return &PostgresStorage{
		pool:     pool,
		embedder: embedder,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Close closes the database connection
func (s *PostgresStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// AddResult upserts a result by file name. A failed embedding is logged
// and stored as NULL.
func (s *PostgresStorage) AddResult(ctx context.Context, result models.AnalysisResult) error {
	var embedding any
	if result.Description != nil && *result.Description != "" {
		vec, err := s.embedder.Embed(ctx, *result.Description)
		if err != nil {
			s.logger.Warn("failed to generate embedding", "file", result.FileName, "error", err)
		} else {
			embedding = pgvector.NewVector(vec)
		}
	}

	now := time.Now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO photos
        (file_name, image_url, date_time, latitude, longitude,
         description, caption, error, embedding, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
        ON CONFLICT (file_name) DO UPDATE SET
            image_url = EXCLUDED.image_url,
            date_time = EXCLUDED.date_time,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            description = EXCLUDED.description,
            caption = EXCLUDED.caption,
            error = EXCLUDED.error,
            embedding = EXCLUDED.embedding,
            updated_at = EXCLUDED.updated_at`,
		result.FileName,
		s.baseURL+result.FileName,
		result.Metadata.DateTime,
		result.Metadata.Latitude,
		result.Metadata.Longitude,
		result.Description,
		result.Caption,
		result.Error,
		embedding,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to store photo %s: %w", result.FileName, err)
	}
	return nil
}

// Flush implements the Storage interface - no-op for Postgres as we save immediately
func (s *PostgresStorage) Flush() error {
	return nil
}

// SearchSimilar finds the photos whose descriptions are closest to query
func (s *PostgresStorage) SearchSimilar(ctx context.Context, query string, limit int) ([]models.PhotoSearchResult, error) {
	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT file_name, image_url, description, caption,
        1 - (embedding <=> $1) AS similarity
        FROM photos
        WHERE embedding IS NOT NULL
        ORDER BY embedding <=> $1
        LIMIT $2`,
		pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar photos: %w", err)
	}
	defer rows.Close()

	var results []models.PhotoSearchResult
	for rows.Next() {
		var r models.PhotoSearchResult
		if err := rows.Scan(&r.FileName, &r.ImageURL, &r.Description, &r.Caption, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// InitSchema creates the vector extension, the photos table and its index
// if they don't exist.
func InitSchema(ctx context.Context, pool *pgxpool.Pool, dimensions int) error {
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err := pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS photos (
            id SERIAL PRIMARY KEY,
            file_name VARCHAR(255) NOT NULL UNIQUE,
            image_url TEXT NOT NULL,
            date_time TEXT,
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            description TEXT,
            caption TEXT,
            error TEXT,
            embedding vector(%d),
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`, dimensions))
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	_, err = pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_photos_embedding ON photos USING hnsw (embedding vector_cosine_ops)`)
	if err != nil {
		return fmt.Errorf("failed to create database indexes: %w", err)
	}

	return nil
}
