// Package backend builds the bill store selected by DATA_BACKEND.
package backend

import (
	"context"

	"billed/internal/store"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// BackendResult is what the server needs from a backend.
type BackendResult struct {
	Store store.Store
	// Receipts is nil when the store keeps receipts elsewhere.
	Receipts store.ReceiptReader
	// Ready reports whether the store can serve; nil means always.
	Ready   func(context.Context) error
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// PublicBaseURL prefixes receipt URLs of the local stores.
	PublicBaseURL string

	// SQLite specific
	SQLiteDBPath string
	ReceiptsDir  string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// API specific
	StoreAPIURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	APIBackend    BackendType = "api"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, APIBackend:
		return true
	default:
		return false
	}
}
