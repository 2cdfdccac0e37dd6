package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the typed statements used by SQLiteRepository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type SupplierRow struct {
	ID             int64
	Name           string
	Category       string
	TotalPaidCents int64
}

type InvoiceRow struct {
	SupplierID  int64
	InvoiceDate string
	AmountCents int64
}

type RevenueDayRow struct {
	Day         string
	AmountCents int64
}

type ClientFlowDayRow struct {
	Day        string
	ClientsIn  int64
	ClientsOut int64
}

type SnapshotRow struct {
	WindowDays           int64
	Category             string
	Day                  string
	TotalRevenueCents    int64
	ClientsIn            int64
	ClientsOut           int64
	SupplierExpenseCents int64
	RecordedAt           time.Time
}

type ExportLogRow struct {
	ID         string
	Filename   string
	RowCount   int64
	WindowDays int64
	Category   string
	Search     string
	CreatedAt  time.Time
}

const listSuppliers = `SELECT id, name, category, total_paid_cents FROM suppliers ORDER BY position, id`

func (q *Queries) ListSuppliers(ctx context.Context) ([]SupplierRow, error) {
	rows, err := q.db.QueryContext(ctx, listSuppliers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SupplierRow
	for rows.Next() {
		var i SupplierRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Category, &i.TotalPaidCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const listInvoices = `SELECT supplier_id, invoice_date, amount_cents FROM invoices ORDER BY supplier_id, invoice_date DESC, id DESC`

func (q *Queries) ListInvoices(ctx context.Context) ([]InvoiceRow, error) {
	rows, err := q.db.QueryContext(ctx, listInvoices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceRow
	for rows.Next() {
		var i InvoiceRow
		if err := rows.Scan(&i.SupplierID, &i.InvoiceDate, &i.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const countSuppliers = `SELECT COUNT(*) FROM suppliers`

func (q *Queries) CountSuppliers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countSuppliers).Scan(&n)
	return n, err
}

const deleteAllSuppliers = `DELETE FROM suppliers`

func (q *Queries) DeleteAllSuppliers(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllSuppliers)
	return err
}

const deleteAllInvoices = `DELETE FROM invoices`

func (q *Queries) DeleteAllInvoices(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllInvoices)
	return err
}

const insertSupplier = `INSERT INTO suppliers (id, name, category, total_paid_cents, position, updated_at)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`

func (q *Queries) InsertSupplier(ctx context.Context, s SupplierRow, position int64) error {
	_, err := q.db.ExecContext(ctx, insertSupplier, s.ID, s.Name, s.Category, s.TotalPaidCents, position)
	return err
}

const insertInvoice = `INSERT INTO invoices (supplier_id, invoice_date, amount_cents) VALUES (?, ?, ?)`

func (q *Queries) InsertInvoice(ctx context.Context, i InvoiceRow) error {
	_, err := q.db.ExecContext(ctx, insertInvoice, i.SupplierID, i.InvoiceDate, i.AmountCents)
	return err
}

const revenueDaysBetween = `SELECT day, amount_cents FROM revenue_days WHERE day BETWEEN ? AND ? ORDER BY day`

func (q *Queries) RevenueDaysBetween(ctx context.Context, from, to string) ([]RevenueDayRow, error) {
	rows, err := q.db.QueryContext(ctx, revenueDaysBetween, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RevenueDayRow
	for rows.Next() {
		var i RevenueDayRow
		if err := rows.Scan(&i.Day, &i.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertRevenueDay = `INSERT INTO revenue_days (day, amount_cents) VALUES (?, ?)
ON CONFLICT(day) DO UPDATE SET amount_cents = excluded.amount_cents`

func (q *Queries) UpsertRevenueDay(ctx context.Context, r RevenueDayRow) error {
	_, err := q.db.ExecContext(ctx, upsertRevenueDay, r.Day, r.AmountCents)
	return err
}

const clientFlowDaysBetween = `SELECT day, clients_in, clients_out FROM client_flow_days WHERE day BETWEEN ? AND ? ORDER BY day`

func (q *Queries) ClientFlowDaysBetween(ctx context.Context, from, to string) ([]ClientFlowDayRow, error) {
	rows, err := q.db.QueryContext(ctx, clientFlowDaysBetween, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ClientFlowDayRow
	for rows.Next() {
		var i ClientFlowDayRow
		if err := rows.Scan(&i.Day, &i.ClientsIn, &i.ClientsOut); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertClientFlowDay = `INSERT INTO client_flow_days (day, clients_in, clients_out) VALUES (?, ?, ?)
ON CONFLICT(day) DO UPDATE SET clients_in = excluded.clients_in, clients_out = excluded.clients_out`

func (q *Queries) UpsertClientFlowDay(ctx context.Context, r ClientFlowDayRow) error {
	_, err := q.db.ExecContext(ctx, upsertClientFlowDay, r.Day, r.ClientsIn, r.ClientsOut)
	return err
}

const upsertSnapshot = `INSERT INTO metric_snapshots (
    window_days, category, day, total_revenue_cents, clients_in, clients_out, supplier_expense_cents, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(window_days, category, day) DO UPDATE SET
    total_revenue_cents = excluded.total_revenue_cents,
    clients_in = excluded.clients_in,
    clients_out = excluded.clients_out,
    supplier_expense_cents = excluded.supplier_expense_cents,
    recorded_at = excluded.recorded_at`

func (q *Queries) UpsertSnapshot(ctx context.Context, s SnapshotRow) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot,
		s.WindowDays, s.Category, s.Day, s.TotalRevenueCents,
		s.ClientsIn, s.ClientsOut, s.SupplierExpenseCents, s.RecordedAt)
	return err
}

const latestSnapshot = `SELECT window_days, category, day, total_revenue_cents, clients_in, clients_out, supplier_expense_cents, recorded_at
FROM metric_snapshots
WHERE window_days = ? AND category = ? AND day <= ?
ORDER BY day DESC
LIMIT 1`

func (q *Queries) LatestSnapshot(ctx context.Context, windowDays int64, category, onOrBefore string) (SnapshotRow, error) {
	var s SnapshotRow
	err := q.db.QueryRowContext(ctx, latestSnapshot, windowDays, category, onOrBefore).Scan(
		&s.WindowDays, &s.Category, &s.Day, &s.TotalRevenueCents,
		&s.ClientsIn, &s.ClientsOut, &s.SupplierExpenseCents, &s.RecordedAt)
	return s, err
}

const insertExportLog = `INSERT INTO export_log (id, filename, row_count, window_days, category, search, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertExportLog(ctx context.Context, e ExportLogRow) error {
	_, err := q.db.ExecContext(ctx, insertExportLog, e.ID, e.Filename, e.RowCount, e.WindowDays, e.Category, e.Search, e.CreatedAt)
	return err
}

const countExports = `SELECT COUNT(*) FROM export_log`

func (q *Queries) CountExports(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countExports).Scan(&n)
	return n, err
}
