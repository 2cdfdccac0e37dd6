package backend

import (
	"context"
	"fmt"
	"log/slog"

	"painel/internal/cache"
	"painel/internal/core"
	"painel/internal/ledger"
	"painel/internal/sources"
	"painel/internal/sources/google"
	"painel/internal/sources/memory"
	"painel/internal/storage"
)

const (
	defaultCacheSize = 64
	defaultDataDir   = "data"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		b   *Backend
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		b, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		b, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		b = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	var src sources.LedgerSource = ledger.NewSynthetic(config.LedgerSeed)
	if config.LedgerType == SQLiteLedger {
		src = b.SQLite
	}
	f.wrapLedger(b, src, config)

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"ledger", string(config.LedgerType),
		"cache_size", config.CacheSize,
		"cache_ttl", config.CacheTTL)

	result := &BackendResult{Backend: b}
	if b.SQLite != nil {
		result.Cleanup = b.SQLite.Close
	}
	return result, nil
}

func (f *DefaultFactory) wrapLedger(b *Backend, src sources.LedgerSource, config Config) {
	size := config.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	revenue := cache.NewLRUCache[[]core.RevenuePoint](size, config.CacheTTL)
	flow := cache.NewLRUCache[[]core.ClientFlowPoint](size, config.CacheTTL)
	b.LedgerCache = ledger.NewCached(src, revenue, flow)
	b.Ledger = b.LedgerCache
	b.Caches = []cache.Cleaner{revenue, flow}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Backend, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Backend{
		Suppliers: repo,
		Snapshots: repo,
		ExportLog: repo,
		SQLite:    repo,
		checks:    []HealthCheck{{Name: "sqlite", Check: repo.Ping}},
	}, nil
}

// createSheetsBackend reads suppliers from Google Sheets and keeps snapshots
// in SQLite so the web server and the worker share them.
func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Backend, error) {
	cli, err := google.New(ctx, config.Google)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite snapshot store: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.Google.SpreadsheetID,
		"snapshot_db", config.SQLiteDBPath)

	return &Backend{
		Suppliers: cli,
		Snapshots: repo,
		ExportLog: cli,
		SQLite:    repo,
		checks: []HealthCheck{
			{Name: "sheets", Check: cli.Ping},
			{Name: "sqlite", Check: repo.Ping},
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *Backend {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &Backend{
		Suppliers: store,
		Snapshots: store,
		ExportLog: store,
	}
}
