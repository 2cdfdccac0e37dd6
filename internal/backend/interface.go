package backend

import (
	"context"

	"painel/internal/cache"
	"painel/internal/ledger"
	"painel/internal/sources"
	"painel/internal/storage"
)

// Backend bundles the ports the dashboard service and the worker need.
type Backend struct {
	Suppliers sources.SupplierReader
	Ledger    sources.LedgerSource
	Snapshots sources.SnapshotStore
	ExportLog sources.ExportLog

	// LedgerCache wraps Ledger; its caches are exposed for cleanup and metrics.
	LedgerCache *ledger.Cached
	Caches      []cache.Cleaner

	// SQLite is set when a database was opened (sqlite and sheets backends).
	SQLite *storage.SQLiteRepository

	checks []HealthCheck
}

// HealthCheck is one named readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Checks returns the readiness probes for the backend's dependencies.
func (b *Backend) Checks() []HealthCheck {
	return b.checks
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the supplier source
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// LedgerType selects where revenue and client flow come from
type LedgerType string

const (
	SyntheticLedger LedgerType = "synthetic"
	SQLiteLedger    LedgerType = "sqlite"
)

func (lt LedgerType) IsValid() bool {
	return lt == SyntheticLedger || lt == SQLiteLedger
}
