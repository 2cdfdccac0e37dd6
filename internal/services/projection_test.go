package services

import (
	"testing"

	"painel/internal/core"
	"painel/internal/sources/memory"
)

func TestProjectRevenue(t *testing.T) {
	today := core.NewDate(2025, 3, 1)
	series := []core.RevenuePoint{
		{Date: core.NewDate(2025, 2, 27), Amount: core.Reais(10)},
		{Date: core.NewDate(2025, 3, 1), Amount: core.Reais(30)},
		{Date: core.NewDate(2024, 1, 1), Amount: core.Reais(99)}, // outside the window
	}
	for _, w := range core.Windows() {
		pts := ProjectRevenue(series, w, today)
		if len(pts) != w.Days() {
			t.Fatalf("window %d: got %d points", w, len(pts))
		}
		for i := 1; i < len(pts); i++ {
			if !pts[i].Date.Equal(pts[i-1].Date.AddDays(1).Time) {
				t.Fatalf("window %d: dates not consecutive at %d", w, i)
			}
		}
		if !pts[len(pts)-1].Date.Equal(today.Time) {
			t.Fatalf("window %d: last point must be today", w)
		}
	}

	pts := ProjectRevenue(series, core.Window7, today)
	if pts[0].Label != "23/02" || pts[6].Label != "01/03" {
		t.Fatalf("unexpected labels %q..%q", pts[0].Label, pts[6].Label)
	}
	if pts[4].Amount != core.Reais(10) || pts[5].Amount.Cents != 0 || pts[6].Amount != core.Reais(30) {
		t.Fatalf("unexpected amounts %+v", pts)
	}
}

func TestProjectSupplierAmounts(t *testing.T) {
	all := memory.DefaultSuppliers()
	bars := ProjectSupplierAmounts(all, ChartSuppliers)
	if len(bars) != 8 {
		t.Fatalf("expected 8 bars, got %d", len(bars))
	}
	if bars[0].Label != "TechSolutions" || bars[0].Amount != core.Reais(125000) {
		t.Fatalf("unexpected first bar %+v", bars[0])
	}
	if bars[7].Label != "Analytics" {
		t.Fatalf("bars must follow filter order, got %q", bars[7].Label)
	}
	if got := ProjectSupplierAmounts(all[:3], 8); len(got) != 3 {
		t.Fatalf("expected 3 bars for 3 suppliers, got %d", len(got))
	}
	if got := ProjectSupplierAmounts(all, 0); len(got) != 0 {
		t.Fatalf("expected no bars for n=0")
	}
	if got := ProjectSupplierAmounts([]core.Supplier{{Name: "  "}}, 1); got[0].Label != "" {
		t.Fatalf("blank name should give empty label, got %q", got[0].Label)
	}
}

func TestTrimFlow(t *testing.T) {
	today := core.NewDate(2025, 1, 20)
	flow := []core.ClientFlowPoint{
		{Date: core.NewDate(2025, 1, 10), In: 1},
		{Date: core.NewDate(2025, 1, 14), In: 2},
		{Date: core.NewDate(2025, 1, 20), In: 3},
		{Date: core.NewDate(2025, 1, 21), In: 4},
	}
	got := TrimFlow(flow, core.Window7, today)
	if len(got) != 2 || got[0].In != 2 || got[1].In != 3 {
		t.Fatalf("unexpected trimmed flow %+v", got)
	}
	for _, w := range []core.Window{0, -7} {
		if got := TrimFlow(flow, w, today); got != nil {
			t.Errorf("window %d: expected nil, got %+v", w, got)
		}
	}
}

func TestTopSuppliers(t *testing.T) {
	all := memory.DefaultSuppliers()
	top := TopSuppliers(all, ReportSuppliers)
	if len(top) != 5 || top[4].Name != "Consultoria Empresarial" {
		t.Fatalf("unexpected top list %v", names(top))
	}
	top[0].Name = "x"
	if all[0].Name == "x" {
		t.Fatalf("TopSuppliers must copy")
	}
}

func TestProjectSparkline(t *testing.T) {
	got := ProjectSparkline([]int64{1, 2, 3, 4}, 2)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected sparkline %v", got)
	}
	if got := ProjectSparkline([]int64{1}, 5); len(got) != 1 {
		t.Fatalf("short input must be kept whole, got %v", got)
	}
}

func TestInvoiceSlots(t *testing.T) {
	suppliers := []core.Supplier{
		{Invoices: []core.Invoice{{Amount: core.Money{Cents: 30}}, {Amount: core.Money{Cents: 20}}, {Amount: core.Money{Cents: 10}}}},
		{Invoices: []core.Invoice{{Amount: core.Money{Cents: 5}}}},
	}
	got := invoiceSlots(suppliers)
	want := []int64{10, 20, 35}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
