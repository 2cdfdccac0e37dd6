package worker

import (
	"context"
	"fmt"
	"log/slog"

	"painel/internal/core"
	"painel/internal/sources"
)

// SupplierReplacer swaps the whole local supplier table.
type SupplierReplacer interface {
	ReplaceSuppliers(ctx context.Context, list []core.Supplier) error
}

// LedgerStore persists daily revenue and client flow.
type LedgerStore interface {
	StoreLedger(ctx context.Context, revenue []core.RevenuePoint, flow []core.ClientFlowPoint) error
}

// SyncWorker copies suppliers from Google Sheets into SQLite and backfills
// the SQLite ledger from a generator.
type SyncWorker struct {
	source       sources.SupplierReader
	target       SupplierReplacer
	ledgerSource sources.LedgerSource
	ledgerStore  LedgerStore
	logger       *slog.Logger
}

func NewSyncWorker(logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{logger: logger}
}

// WithSuppliers enables supplier sync from source into target.
func (w *SyncWorker) WithSuppliers(source sources.SupplierReader, target SupplierReplacer) *SyncWorker {
	w.source, w.target = source, target
	return w
}

// WithLedger enables ledger backfill from source into store.
func (w *SyncWorker) WithLedger(source sources.LedgerSource, store LedgerStore) *SyncWorker {
	w.ledgerSource, w.ledgerStore = source, store
	return w
}

// SyncSuppliers replaces the local suppliers with the remote list. An
// empty remote list is refused so a broken sheet never wipes the table.
func (w *SyncWorker) SyncSuppliers(ctx context.Context) (int, error) {
	if w.source == nil || w.target == nil {
		return 0, nil
	}
	list, err := w.source.ListSuppliers(ctx)
	if err != nil {
		return 0, fmt.Errorf("load suppliers from source: %w", err)
	}
	if len(list) == 0 {
		w.logger.WarnContext(ctx, "Supplier source returned no rows, keeping local suppliers")
		return 0, nil
	}
	if err := w.target.ReplaceSuppliers(ctx, list); err != nil {
		return 0, fmt.Errorf("replace suppliers: %w", err)
	}
	w.logger.InfoContext(ctx, "Suppliers synced", "count", len(list))
	return len(list), nil
}

// BackfillLedger writes the last days of generated revenue and client flow
// ending today. Existing days are overwritten.
func (w *SyncWorker) BackfillLedger(ctx context.Context, days int, today core.Date) error {
	if w.ledgerSource == nil || w.ledgerStore == nil || days <= 0 {
		return nil
	}
	revenue, err := w.ledgerSource.RevenueSeries(ctx, days, today)
	if err != nil {
		return fmt.Errorf("generate revenue: %w", err)
	}
	flow, err := w.ledgerSource.ClientFlow(ctx, days, today)
	if err != nil {
		return fmt.Errorf("generate client flow: %w", err)
	}
	if err := w.ledgerStore.StoreLedger(ctx, revenue, flow); err != nil {
		return fmt.Errorf("store ledger: %w", err)
	}
	w.logger.InfoContext(ctx, "Ledger backfilled", "days", days, "through", today.ISO())
	return nil
}
