package memory

import "painel/internal/core"

// monthlyInvoices builds four monthly invoices on the same day, newest first,
// from January 2025 back to October 2024.
func monthlyInvoices(day int, reais ...int64) []core.Invoice {
	months := []core.Date{
		core.NewDate(2025, 1, day),
		core.NewDate(2024, 12, day),
		core.NewDate(2024, 11, day),
		core.NewDate(2024, 10, day),
	}
	out := make([]core.Invoice, len(reais))
	for i, r := range reais {
		out[i] = core.Invoice{Date: months[i], Amount: core.Reais(r)}
	}
	return out
}

// DefaultSuppliers is the reference supplier set used when no seed file is
// present. Order is the display order.
func DefaultSuppliers() []core.Supplier {
	return []core.Supplier{
		{ID: 1, Name: "TechSolutions Brasil", Category: core.Software, TotalPaid: core.Reais(125000),
			Invoices: monthlyInvoices(15, 15000, 15000, 12000, 13000)},
		{ID: 2, Name: "Cloud Hosting Pro", Category: core.Infrastructure, TotalPaid: core.Reais(89000),
			Invoices: monthlyInvoices(10, 9500, 9000, 8500, 8500)},
		{ID: 3, Name: "Marketing Digital Corp", Category: core.Marketing, TotalPaid: core.Reais(156000),
			Invoices: monthlyInvoices(20, 18000, 16000, 17000, 15000)},
		{ID: 4, Name: "Hardware Supplies Inc", Category: core.Hardware, TotalPaid: core.Reais(67000),
			Invoices: monthlyInvoices(5, 8000, 7500, 6500, 7000)},
		{ID: 5, Name: "Consultoria Empresarial", Category: core.Services, TotalPaid: core.Reais(98000),
			Invoices: monthlyInvoices(25, 12000, 10000, 11000, 10000)},
		{ID: 6, Name: "DevOps Services", Category: core.Infrastructure, TotalPaid: core.Reais(112000),
			Invoices: monthlyInvoices(12, 14000, 13000, 12000, 12500)},
		{ID: 7, Name: "Design Studio Pro", Category: core.Services, TotalPaid: core.Reais(78000),
			Invoices: monthlyInvoices(18, 9000, 8500, 8000, 8200)},
		{ID: 8, Name: "Analytics & BI Solutions", Category: core.Software, TotalPaid: core.Reais(143000),
			Invoices: monthlyInvoices(22, 17000, 16000, 15500, 15000)},
		{ID: 9, Name: "SEO Experts Agency", Category: core.Marketing, TotalPaid: core.Reais(91000),
			Invoices: monthlyInvoices(8, 11000, 10500, 10000, 9500)},
		{ID: 10, Name: "Security Systems Ltd", Category: core.Infrastructure, TotalPaid: core.Reais(134000),
			Invoices: monthlyInvoices(28, 16000, 15000, 14500, 14000)},
	}
}
