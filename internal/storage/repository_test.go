package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"painel/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "painel.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSeededSuppliers(t *testing.T) {
	repo := newTestRepo(t)
	list, err := repo.ListSuppliers(context.Background())
	if err != nil {
		t.Fatalf("list suppliers: %v", err)
	}
	if len(list) != 10 {
		t.Fatalf("expected 10 seeded suppliers, got %d", len(list))
	}
	first := list[0]
	if first.Name != "TechSolutions Brasil" || first.Category != core.Software || first.TotalPaid != core.Reais(125000) {
		t.Fatalf("unexpected first supplier %+v", first)
	}
	if len(first.Invoices) != 4 || first.Invoices[0].Date.BR() != "15/01/2025" || first.Invoices[3].Date.BR() != "15/10/2024" {
		t.Fatalf("invoices must be newest first: %+v", first.Invoices)
	}
	if list[9].Name != "Security Systems Ltd" {
		t.Fatalf("unexpected order, last=%q", list[9].Name)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "painel.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer repo.Close()
	if n, _ := repo.SupplierCount(context.Background()); n != 10 {
		t.Fatalf("seed must run once, got %d suppliers", n)
	}
}

func TestReplaceSuppliers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	list := []core.Supplier{
		{ID: 42, Name: "Zeta Cloud", Category: core.Infrastructure, TotalPaid: core.Reais(10),
			Invoices: []core.Invoice{{Date: core.NewDate(2025, 2, 1), Amount: core.Reais(5)}, {Date: core.NewDate(2025, 1, 1), Amount: core.Reais(5)}}},
		{ID: 7, Name: "Alpha Design", Category: core.Services, TotalPaid: core.Reais(20)},
	}
	if err := repo.ReplaceSuppliers(ctx, list); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := repo.ListSuppliers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != 42 || got[1].ID != 7 {
		t.Fatalf("order must follow the replacement list: %+v", got)
	}
	if len(got[0].Invoices) != 2 || len(got[1].Invoices) != 0 {
		t.Fatalf("unexpected invoices %+v", got)
	}

	bad := []core.Supplier{{ID: 1, Name: "", Category: core.Software}}
	if err := repo.ReplaceSuppliers(ctx, bad); err == nil {
		t.Fatalf("expected validation error")
	}
	if n, _ := repo.SupplierCount(ctx); n != 2 {
		t.Fatalf("failed replace must not change the table, got %d", n)
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	today := core.NewDate(2025, 1, 31)
	revenue := []core.RevenuePoint{
		{Date: core.NewDate(2025, 1, 1), Amount: core.Reais(1)},
		{Date: core.NewDate(2025, 1, 30), Amount: core.Reais(2)},
		{Date: today, Amount: core.Reais(3)},
	}
	flow := []core.ClientFlowPoint{{Date: today, In: 5, Out: 1}}
	if err := repo.StoreLedger(ctx, revenue, flow); err != nil {
		t.Fatalf("store ledger: %v", err)
	}
	if err := repo.StoreLedger(ctx, []core.RevenuePoint{{Date: today, Amount: core.Reais(4)}}, nil); err != nil {
		t.Fatalf("upsert ledger: %v", err)
	}

	pts, err := repo.RevenueSeries(ctx, 7, today)
	if err != nil {
		t.Fatalf("revenue series: %v", err)
	}
	if len(pts) != 2 || pts[0].Label != "30/01" || pts[1].Amount != core.Reais(4) {
		t.Fatalf("unexpected series %+v", pts)
	}
	fl, err := repo.ClientFlow(ctx, 1, today)
	if err != nil || len(fl) != 1 || fl[0].In != 5 {
		t.Fatalf("unexpected flow %+v err=%v", fl, err)
	}
}

func TestSnapshotsAndExportLog(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.LatestSnapshot(ctx, core.Window30, core.AllCategories, core.NewDate(2025, 1, 1)); ok || err != nil {
		t.Fatalf("expected no snapshot, ok=%v err=%v", ok, err)
	}
	snap := core.MetricsSnapshot{
		Window: core.Window30, Category: core.AllCategories, Day: core.NewDate(2025, 1, 1),
		TotalRevenue: core.Reais(100), ClientsIn: 3, ClientsOut: 1, SupplierExpense: core.Reais(50),
		RecordedAt: time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC),
	}
	if err := repo.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap.TotalRevenue = core.Reais(200)
	if err := repo.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, ok, err := repo.LatestSnapshot(ctx, core.Window30, core.AllCategories, core.NewDate(2025, 1, 15))
	if err != nil || !ok {
		t.Fatalf("expected snapshot, ok=%v err=%v", ok, err)
	}
	if got.TotalRevenue != core.Reais(200) || got.ClientsIn != 3 || !got.Day.Equal(snap.Day.Time) {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if err := repo.SaveSnapshot(ctx, core.MetricsSnapshot{Window: 14}); err == nil {
		t.Fatalf("expected window validation error")
	}

	rec := core.ExportRecord{ID: "e1", Filename: "fornecedores_2025-01-01.csv", Rows: 2, Window: core.Window30, Category: core.Software, CreatedAt: time.Now().UTC()}
	if err := repo.RecordExport(ctx, rec); err != nil {
		t.Fatalf("record export: %v", err)
	}
	if n, _ := repo.ExportCount(ctx); n != 1 {
		t.Fatalf("expected 1 export, got %d", n)
	}
}
