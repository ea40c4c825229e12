package storage

import (
	"context"

	"github.com/prismschism/endlog/internal/models"
)

// RecordStorage defines interface for the per-user log frontier.
// The server keeps one row per record id: the dominant revision.
// Envelopes are stored opaque, the server never opens them.
type RecordStorage interface {
	// UpsertRecord applies a pushed record to the user's frontier by
	// dominance order. Returns true if the record changed the stored
	// state (new id or dominating revision), false if the stored copy
	// dominates or is identical.
	UpsertRecord(ctx context.Context, userID string, record *models.EncryptedRecord) (bool, error)

	// ListRecords returns the user's full frontier in seq order together
	// with the current cursor (highest seq, 0 for an empty log)
	ListRecords(ctx context.Context, userID string) ([]*models.EncryptedRecord, int64, error)

	// Cursor returns the user's current cursor without loading records
	Cursor(ctx context.Context, userID string) (int64, error)
}
