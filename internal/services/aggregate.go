package services

import "painel/internal/core"

// SupplierExpense sums TotalPaid over the given suppliers.
func SupplierExpense(suppliers []core.Supplier) core.Money {
	var total core.Money
	for _, s := range suppliers {
		total = total.Add(s.TotalPaid)
	}
	return total
}

// AggregateMetrics derives the metric cards from the filtered suppliers and
// the ledger series. Percent changes are computed against previous; with no
// previous snapshot every change is unavailable.
func AggregateMetrics(filtered []core.Supplier, revenue []core.RevenuePoint, flow []core.ClientFlowPoint, previous *core.MetricsSnapshot) core.Metrics {
	var m core.Metrics
	for _, p := range revenue {
		m.TotalRevenue = m.TotalRevenue.Add(p.Amount)
	}
	for _, p := range flow {
		m.ClientsIn += p.In
		m.ClientsOut += p.Out
	}
	m.SupplierExpense = SupplierExpense(filtered)

	if previous == nil {
		return m
	}
	m.RevenueChange = core.ChangePercent(m.TotalRevenue.Cents, previous.TotalRevenue.Cents)
	m.ClientsInChange = core.ChangePercent(int64(m.ClientsIn), int64(previous.ClientsIn))
	m.ClientsOutChange = core.ChangePercent(int64(m.ClientsOut), int64(previous.ClientsOut))
	m.SupplierExpenseChange = core.ChangePercent(m.SupplierExpense.Cents, previous.SupplierExpense.Cents)
	return m
}
