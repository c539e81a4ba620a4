// Package journal is the optional audit log: one row per capture and one per
// enrichment attempt. Tables: signal_captures, enrichment_attempts.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Journal struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Journal, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Journal{pool: pool}, nil
}

func (j *Journal) Close() {
	j.pool.Close()
}

// RecordCapture logs a persisted capture.
func (j *Journal) RecordCapture(ctx context.Context, signalID, title, url, intent string, contentLength int) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO signal_captures (id, signal_id, title, source_url, intent, content_length, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		uuid.New(), signalID, title, url, intent, contentLength,
	)
	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}
	return nil
}

// RecordEnrichment logs one enrichment attempt and its terminal outcome.
// trigger is "capture" or "regenerate"; errText is empty on success.
func (j *Journal) RecordEnrichment(ctx context.Context, signalID, trigger, status, errText string, elapsed time.Duration) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO enrichment_attempts (id, signal_id, trigger, status, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		uuid.New(), signalID, trigger, status, errText, elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert enrichment attempt: %w", err)
	}
	return nil
}
