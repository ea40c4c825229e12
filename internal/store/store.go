package store

import (
	"context"

	"github.com/prismschism/endlog/internal/models"
)

//go:generate moq -out store_mock.go . Store

// Filter narrows record iteration. The zero value yields the live
// frontier: the latest revision of every non-tombstoned record.
type Filter struct {
	// Tag keeps only records carrying this outside tag (exact match)
	Tag string

	// Since keeps records with updated_at >= Since (0 = no lower bound)
	Since int64

	// Until keeps records with updated_at <= Until (0 = no upper bound)
	Until int64

	// IncludeTombstones keeps tombstoned records in the result
	IncludeTombstones bool

	// AllRevisions yields every stored revision instead of only the
	// latest one per id
	AllRevisions bool
}

// Store defines the local replica store: append-only revisions of sealed
// records plus the replica manifest. Implementations never see the
// encryption key; everything here operates on envelopes and outside
// metadata only.
type Store interface {
	// Append durably publishes one record revision. The publish is
	// atomic: after a crash the revision is either fully present or
	// absent. Re-appending an existing (id, revision) pair is a no-op
	// when the content is identical; on divergence the dominant variant
	// is kept. Fails with ErrSyncInProgress while a sync session holds
	// the store.
	Append(ctx context.Context, rec *models.EncryptedRecord) error

	// Get returns the record with the highest revision for the id,
	// tombstoned or not. Returns ErrNotFound if the id was never stored.
	Get(ctx context.Context, id string) (*models.EncryptedRecord, error)

	// GetRevision returns one exact revision of a record.
	// Returns ErrNotFound if that revision does not exist.
	GetRevision(ctx context.Context, id string, revision int64) (*models.EncryptedRecord, error)

	// ForEach lazily iterates records in id order applying the filter.
	// Re-invoking with the same filter yields the same sequence absent
	// concurrent writes. The callback may return ErrStopIteration to
	// stop early without error; any other error aborts and propagates.
	ForEach(ctx context.Context, filter Filter, fn func(rec *models.EncryptedRecord) error) error

	// List collects the filtered records into a slice.
	List(ctx context.Context, filter Filter) ([]*models.EncryptedRecord, error)

	// AdvanceClock issues the next logical timestamp, strictly greater
	// than every previously issued or observed one, and persists it in
	// the manifest before returning.
	AdvanceClock(ctx context.Context) (int64, error)

	// Manifest returns a copy of the replica manifest.
	Manifest(ctx context.Context) (*models.Manifest, error)

	// SetKeySalt replaces the key derivation salt. Only permitted while
	// the store holds no records (a fresh device adopting the salt
	// published by the server).
	SetKeySalt(ctx context.Context, salt []byte) error

	// SetLastSync records the local clock frontier and the remote
	// cursor after a successful sync session.
	SetLastSync(ctx context.Context, clock, cursor int64) error

	// ApplyMerge applies a reconciliation batch in one transaction:
	// either every record lands and the clock observes the remote
	// frontier, or nothing changes. Readers never see a partial batch.
	ApplyMerge(ctx context.Context, records []*models.EncryptedRecord, observed int64) error

	// BeginSync takes the exclusive sync latch. Fails with
	// ErrSyncInProgress if another session holds it.
	BeginSync() error

	// EndSync releases the sync latch.
	EndSync()

	// Close releases the store. Further operations fail with
	// ErrStoreClosed.
	Close() error
}
