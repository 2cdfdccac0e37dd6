package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"painel/internal/config"
	"painel/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres", LedgerBackend: "synthetic"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "memory", LedgerBackend: "random"}); err == nil {
		t.Fatal("expected error for unknown ledger")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:          "sheets",
		LedgerBackend:        "sqlite",
		SQLiteDBPath:         "/tmp/x.db",
		GoogleSpreadsheetID:  "sheet",
		GoogleSuppliersSheet: "Fornecedores",
		CacheSize:            8,
		CacheTTL:             time.Minute,
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.LedgerType != SQLiteLedger {
		t.Fatalf("unexpected types %s/%s", cfg.Type, cfg.LedgerType)
	}
	if cfg.Google.SpreadsheetID != "sheet" || cfg.Google.SuppliersSheet != "Fornecedores" {
		t.Fatalf("google config not copied: %+v", cfg.Google)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory synthetic", Config{Type: MemoryBackend, LedgerType: SyntheticLedger}, false},
		{"memory sqlite ledger", Config{Type: MemoryBackend, LedgerType: SQLiteLedger}, true},
		{"sqlite without path", Config{Type: SQLiteBackend, LedgerType: SyntheticLedger}, true},
		{"sheets without id", Config{Type: SheetsBackend, LedgerType: SyntheticLedger, SQLiteDBPath: "x.db"}, true},
		{"unknown type", Config{Type: "csv", LedgerType: SyntheticLedger}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		LedgerType:    SyntheticLedger,
		LedgerSeed:    1,
		DataDirectory: t.TempDir(),
		CacheTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if res.Cleanup != nil {
		t.Fatal("memory backend should not need cleanup")
	}
	b := res.Backend
	list, err := b.Suppliers.ListSuppliers(context.Background())
	if err != nil || len(list) != 10 {
		t.Fatalf("expected default suppliers, got %d (%v)", len(list), err)
	}
	if b.LedgerCache == nil || len(b.Caches) != 2 {
		t.Fatalf("ledger should be cached: %+v", b)
	}

	today := core.NewDate(2025, 2, 1)
	if _, err := b.Ledger.RevenueSeries(context.Background(), 7, today); err != nil {
		t.Fatalf("RevenueSeries() error = %v", err)
	}
	if _, err := b.Ledger.RevenueSeries(context.Background(), 7, today); err != nil {
		t.Fatalf("RevenueSeries() error = %v", err)
	}
	rev, _ := b.LedgerCache.Stats()
	if rev.Hits != 1 || rev.Misses != 1 {
		t.Fatalf("revenue cache stats = %+v, want 1 hit 1 miss", rev)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		LedgerType:   SQLiteLedger,
		SQLiteDBPath: filepath.Join(t.TempDir(), "painel.db"),
		CacheTTL:     time.Minute,
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	b := res.Backend
	if b.SQLite == nil {
		t.Fatal("SQLite repository not exposed")
	}
	if len(b.Checks()) != 1 || b.Checks()[0].Name != "sqlite" {
		t.Fatalf("unexpected checks %+v", b.Checks())
	}
	for _, c := range b.Checks() {
		if err := c.Check(context.Background()); err != nil {
			t.Fatalf("check %s: %v", c.Name, err)
		}
	}
	list, err := b.Suppliers.ListSuppliers(context.Background())
	if err != nil || len(list) != 10 {
		t.Fatalf("expected seeded suppliers, got %d (%v)", len(list), err)
	}
}
