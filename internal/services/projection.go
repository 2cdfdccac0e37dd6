package services

import (
	"strings"

	"painel/internal/core"
)

const (
	// ChartSuppliers is how many suppliers the bar chart shows.
	ChartSuppliers = 8
	// ReportSuppliers is how many suppliers the reports ranking lists.
	ReportSuppliers = 5
	// SparklineDays is the length of the metric card sparklines.
	SparklineDays = 30
)

// ProjectRevenue lays the ledger series onto exactly window.Days() calendar
// days ending at today, oldest first. Ledger points are matched by date and
// missing days are zero.
func ProjectRevenue(series []core.RevenuePoint, window core.Window, today core.Date) []core.RevenuePoint {
	n := window.Days()
	if n <= 0 {
		return nil
	}
	byDay := make(map[string]core.Money, len(series))
	for _, p := range series {
		byDay[p.Date.ISO()] = p.Amount
	}
	start := core.DateOf(today.Time).AddDays(-(n - 1))
	out := make([]core.RevenuePoint, n)
	for i := range out {
		d := start.AddDays(i)
		out[i] = core.RevenuePoint{Date: d, Label: d.DayMonth(), Amount: byDay[d.ISO()]}
	}
	return out
}

// TrimFlow keeps the client flow points inside the window ending at today.
func TrimFlow(flow []core.ClientFlowPoint, window core.Window, today core.Date) []core.ClientFlowPoint {
	if window.Days() <= 0 {
		return nil
	}
	start := core.DateOf(today.Time).AddDays(-(window.Days() - 1))
	end := core.DateOf(today.Time)
	out := make([]core.ClientFlowPoint, 0, window.Days())
	for _, p := range flow {
		if p.Date.Before(start.Time) || p.Date.After(end.Time) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ProjectSupplierAmounts takes the first n suppliers in filter order and
// labels each bar with the first word of the supplier name.
func ProjectSupplierAmounts(filtered []core.Supplier, n int) []core.SupplierAmount {
	if n <= 0 {
		return nil
	}
	n = min(n, len(filtered))
	out := make([]core.SupplierAmount, n)
	for i, s := range filtered[:n] {
		out[i] = core.SupplierAmount{Label: firstToken(s.Name), Amount: s.TotalPaid}
	}
	return out
}

// TopSuppliers returns the first n suppliers in filter order.
func TopSuppliers(filtered []core.Supplier, n int) []core.Supplier {
	if n <= 0 {
		return nil
	}
	n = min(n, len(filtered))
	return append([]core.Supplier(nil), filtered[:n]...)
}

func firstToken(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return ""
}

// ProjectSparkline returns the last n values, oldest first.
func ProjectSparkline(values []int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	if len(values) > n {
		values = values[len(values)-n:]
	}
	return append([]int64(nil), values...)
}

// Sparklines holds the scalar series drawn behind each metric card.
type Sparklines struct {
	Revenue         []int64
	ClientsIn       []int64
	ClientsOut      []int64
	SupplierExpense []int64
}

// BuildSparklines derives the card sparklines from the ledger series and the
// filtered suppliers' invoice history.
func BuildSparklines(revenue []core.RevenuePoint, flow []core.ClientFlowPoint, filtered []core.Supplier) Sparklines {
	rev := make([]int64, len(revenue))
	for i, p := range revenue {
		rev[i] = p.Amount.Cents
	}
	in := make([]int64, len(flow))
	out := make([]int64, len(flow))
	for i, p := range flow {
		in[i] = int64(p.In)
		out[i] = int64(p.Out)
	}
	return Sparklines{
		Revenue:         ProjectSparkline(rev, SparklineDays),
		ClientsIn:       ProjectSparkline(in, SparklineDays),
		ClientsOut:      ProjectSparkline(out, SparklineDays),
		SupplierExpense: invoiceSlots(filtered),
	}
}

// invoiceSlots sums invoice amounts per history position, oldest slot first.
// Invoices are stored newest first, so slot k counts from the end.
func invoiceSlots(suppliers []core.Supplier) []int64 {
	slots := 0
	for _, s := range suppliers {
		slots = max(slots, len(s.Invoices))
	}
	out := make([]int64, slots)
	for _, s := range suppliers {
		for i, inv := range s.Invoices {
			out[slots-len(s.Invoices)+(len(s.Invoices)-1-i)] += inv.Amount.Cents
		}
	}
	return out
}
