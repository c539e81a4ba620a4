//go:build integration

package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	j, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		j.Close()
	})
	return j
}

func TestIntegration_RecordCaptureAndEnrichment(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()
	signalID := "itest-" + uuid.New().String()[:8]

	if err := j.RecordCapture(ctx, signalID, "integration test", "https://example.com", "Research", 1234); err != nil {
		t.Fatalf("RecordCapture failed: %v", err)
	}

	if err := j.RecordEnrichment(ctx, signalID, "capture", "Done", "", 850*time.Millisecond); err != nil {
		t.Fatalf("RecordEnrichment (success) failed: %v", err)
	}

	if err := j.RecordEnrichment(ctx, signalID, "regenerate", "Parked", "llm summary: boom", 40*time.Millisecond); err != nil {
		t.Fatalf("RecordEnrichment (failure) failed: %v", err)
	}
}
