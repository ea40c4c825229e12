package store

import "errors"

// Common store errors
var (
	// ErrNotFound indicates that no record exists for the requested id
	ErrNotFound = errors.New("record not found")

	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrStoreClosed indicates that the store is closed
	ErrStoreClosed = errors.New("store is closed")

	// ErrSyncInProgress indicates that a sync session holds the store
	// and local appends are rejected until it finishes
	ErrSyncInProgress = errors.New("sync session in progress")

	// ErrUnsupportedStoreVersion indicates that the store was written by
	// a newer format version and cannot be opened
	ErrUnsupportedStoreVersion = errors.New("unsupported store format version")

	// ErrStopIteration stops ForEach early without reporting an error
	ErrStopIteration = errors.New("stop iteration")
)
