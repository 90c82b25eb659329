package inventory

// ============================================================================
// Inventory Error Definitions
// Purpose: Define all inventory-writer error types
// ============================================================================

import "errors"

// Predefined errors
var (
	// ErrOpenFailed indicates the inventory file could not be opened (fatal at startup)
	ErrOpenFailed = errors.New("inventory: open failed")

	// ErrWriteFailed indicates a buffered write or flush failed
	ErrWriteFailed = errors.New("inventory: write failed")

	// ErrSyncFailed indicates fsync failed on close
	ErrSyncFailed = errors.New("inventory: sync to disk failed")

	// ErrWriterClosed indicates the writer is closed, cannot perform operation
	ErrWriterClosed = errors.New("inventory: already closed")
)
