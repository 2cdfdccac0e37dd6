package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"painel/internal/core"

	_ "modernc.org/sqlite"
)

const dayLayout = "2006-01-02"

// SQLiteRepository implements the supplier, ledger, snapshot and export log
// ports on a single SQLite database.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; the worker and the server share the file
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListSuppliers implements sources.SupplierReader
func (r *SQLiteRepository) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	rows, err := r.queries.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	invoices, err := r.queries.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	byID := make(map[int64][]core.Invoice, len(rows))
	for _, inv := range invoices {
		t, err := time.Parse(dayLayout, inv.InvoiceDate)
		if err != nil {
			return nil, fmt.Errorf("invoice date %q for supplier %d: %w", inv.InvoiceDate, inv.SupplierID, err)
		}
		byID[inv.SupplierID] = append(byID[inv.SupplierID], core.Invoice{
			Date:   core.Date{Time: t},
			Amount: core.Money{Cents: inv.AmountCents},
		})
	}

	out := make([]core.Supplier, len(rows))
	for i, s := range rows {
		out[i] = core.Supplier{
			ID:        s.ID,
			Name:      s.Name,
			Category:  core.Category(s.Category),
			TotalPaid: core.Money{Cents: s.TotalPaidCents},
			Invoices:  byID[s.ID],
		}
	}
	return out, nil
}

// ReplaceSuppliers swaps the whole supplier table for list inside one
// transaction. Position follows the order of list.
func (r *SQLiteRepository) ReplaceSuppliers(ctx context.Context, list []core.Supplier) error {
	for _, s := range list {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("supplier %d: %w", s.ID, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAllInvoices(ctx); err != nil {
		return fmt.Errorf("clear invoices: %w", err)
	}
	if err := q.DeleteAllSuppliers(ctx); err != nil {
		return fmt.Errorf("clear suppliers: %w", err)
	}
	for pos, s := range list {
		row := SupplierRow{ID: s.ID, Name: s.Name, Category: string(s.Category), TotalPaidCents: s.TotalPaid.Cents}
		if err := q.InsertSupplier(ctx, row, int64(pos+1)); err != nil {
			return fmt.Errorf("insert supplier %d: %w", s.ID, err)
		}
		for _, inv := range s.Invoices {
			if err := q.InsertInvoice(ctx, InvoiceRow{
				SupplierID:  s.ID,
				InvoiceDate: inv.Date.Format(dayLayout),
				AmountCents: inv.Amount.Cents,
			}); err != nil {
				return fmt.Errorf("insert invoice for supplier %d: %w", s.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit suppliers: %w", err)
	}

	slog.InfoContext(ctx, "Suppliers replaced in SQLite", "count", len(list))
	return nil
}

// RevenueSeries implements sources.LedgerSource
func (r *SQLiteRepository) RevenueSeries(ctx context.Context, days int, today core.Date) ([]core.RevenuePoint, error) {
	if days <= 0 {
		return nil, nil
	}
	from, to := dayRange(days, today)
	rows, err := r.queries.RevenueDaysBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("revenue days: %w", err)
	}
	out := make([]core.RevenuePoint, 0, len(rows))
	for _, row := range rows {
		t, err := time.Parse(dayLayout, row.Day)
		if err != nil {
			return nil, fmt.Errorf("revenue day %q: %w", row.Day, err)
		}
		d := core.Date{Time: t}
		out = append(out, core.RevenuePoint{Date: d, Label: d.DayMonth(), Amount: core.Money{Cents: row.AmountCents}})
	}
	return out, nil
}

// ClientFlow implements sources.LedgerSource
func (r *SQLiteRepository) ClientFlow(ctx context.Context, days int, today core.Date) ([]core.ClientFlowPoint, error) {
	if days <= 0 {
		return nil, nil
	}
	from, to := dayRange(days, today)
	rows, err := r.queries.ClientFlowDaysBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("client flow days: %w", err)
	}
	out := make([]core.ClientFlowPoint, 0, len(rows))
	for _, row := range rows {
		t, err := time.Parse(dayLayout, row.Day)
		if err != nil {
			return nil, fmt.Errorf("client flow day %q: %w", row.Day, err)
		}
		out = append(out, core.ClientFlowPoint{Date: core.Date{Time: t}, In: int(row.ClientsIn), Out: int(row.ClientsOut)})
	}
	return out, nil
}

// StoreLedger upserts revenue and client flow days in one transaction.
func (r *SQLiteRepository) StoreLedger(ctx context.Context, revenue []core.RevenuePoint, flow []core.ClientFlowPoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, p := range revenue {
		if err := q.UpsertRevenueDay(ctx, RevenueDayRow{Day: p.Date.Format(dayLayout), AmountCents: p.Amount.Cents}); err != nil {
			return fmt.Errorf("upsert revenue day %s: %w", p.Date.ISO(), err)
		}
	}
	for _, p := range flow {
		if err := q.UpsertClientFlowDay(ctx, ClientFlowDayRow{
			Day:        p.Date.Format(dayLayout),
			ClientsIn:  int64(p.In),
			ClientsOut: int64(p.Out),
		}); err != nil {
			return fmt.Errorf("upsert client flow day %s: %w", p.Date.ISO(), err)
		}
	}
	return tx.Commit()
}

// SaveSnapshot implements sources.SnapshotStore
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s core.MetricsSnapshot) error {
	if err := s.Window.Validate(); err != nil {
		return err
	}
	recorded := s.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	err := r.queries.UpsertSnapshot(ctx, SnapshotRow{
		WindowDays:           int64(s.Window),
		Category:             string(s.Category),
		Day:                  s.Day.Format(dayLayout),
		TotalRevenueCents:    s.TotalRevenue.Cents,
		ClientsIn:            int64(s.ClientsIn),
		ClientsOut:           int64(s.ClientsOut),
		SupplierExpenseCents: s.SupplierExpense.Cents,
		RecordedAt:           recorded,
	})
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	slog.DebugContext(ctx, "Metrics snapshot saved",
		"window", int(s.Window), "category", string(s.Category), "day", s.Day.ISO())
	return nil
}

// LatestSnapshot implements sources.SnapshotStore
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, w core.Window, c core.Category, onOrBefore core.Date) (core.MetricsSnapshot, bool, error) {
	row, err := r.queries.LatestSnapshot(ctx, int64(w), string(c), onOrBefore.Format(dayLayout))
	if errors.Is(err, sql.ErrNoRows) {
		return core.MetricsSnapshot{}, false, nil
	}
	if err != nil {
		return core.MetricsSnapshot{}, false, fmt.Errorf("latest snapshot: %w", err)
	}
	t, err := time.Parse(dayLayout, row.Day)
	if err != nil {
		return core.MetricsSnapshot{}, false, fmt.Errorf("snapshot day %q: %w", row.Day, err)
	}
	return core.MetricsSnapshot{
		Window:          core.Window(row.WindowDays),
		Category:        core.Category(row.Category),
		Day:             core.Date{Time: t},
		TotalRevenue:    core.Money{Cents: row.TotalRevenueCents},
		ClientsIn:       int(row.ClientsIn),
		ClientsOut:      int(row.ClientsOut),
		SupplierExpense: core.Money{Cents: row.SupplierExpenseCents},
		RecordedAt:      row.RecordedAt,
	}, true, nil
}

// RecordExport implements sources.ExportLog
func (r *SQLiteRepository) RecordExport(ctx context.Context, e core.ExportRecord) error {
	err := r.queries.InsertExportLog(ctx, ExportLogRow{
		ID:         e.ID,
		Filename:   e.Filename,
		RowCount:   int64(e.Rows),
		WindowDays: int64(e.Window),
		Category:   string(e.Category),
		Search:     e.Search,
		CreatedAt:  e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert export log: %w", err)
	}
	slog.InfoContext(ctx, "Export recorded", "id", e.ID, "filename", e.Filename, "rows", e.Rows)
	return nil
}

// ExportCount returns the number of logged exports.
func (r *SQLiteRepository) ExportCount(ctx context.Context) (int64, error) {
	return r.queries.CountExports(ctx)
}

// SupplierCount returns the number of stored suppliers.
func (r *SQLiteRepository) SupplierCount(ctx context.Context) (int64, error) {
	return r.queries.CountSuppliers(ctx)
}

func dayRange(days int, today core.Date) (string, string) {
	end := core.DateOf(today.Time)
	return end.AddDays(-(days - 1)).Format(dayLayout), end.Format(dayLayout)
}
