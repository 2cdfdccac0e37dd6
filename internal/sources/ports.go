// Package sources declares the outbound ports the dashboard reads from and
// writes to. Adapters live in the memory and google subpackages and in
// internal/storage.
package sources

import (
	"context"

	"painel/internal/core"
)

type (
	// SupplierReader returns the full supplier sequence in its stable
	// display order. Callers own the returned slice.
	SupplierReader interface {
		ListSuppliers(ctx context.Context) ([]core.Supplier, error)
	}

	// LedgerSource provides the business-wide time series that do not come
	// from suppliers. Both methods return one entry per day ending at today,
	// oldest first; missing days may be omitted.
	LedgerSource interface {
		RevenueSeries(ctx context.Context, days int, today core.Date) ([]core.RevenuePoint, error)
		ClientFlow(ctx context.Context, days int, today core.Date) ([]core.ClientFlowPoint, error)
	}

	// SnapshotStore persists metric snapshots used as percent-change baselines.
	SnapshotStore interface {
		SaveSnapshot(ctx context.Context, s core.MetricsSnapshot) error
		// LatestSnapshot returns the newest snapshot for the selection whose
		// day is on or before the given day.
		LatestSnapshot(ctx context.Context, w core.Window, c core.Category, onOrBefore core.Date) (core.MetricsSnapshot, bool, error)
	}

	// ExportLog records completed exports.
	ExportLog interface {
		RecordExport(ctx context.Context, r core.ExportRecord) error
	}
)
