package http

import (
	"fmt"
	"html/template"
	"strings"

	"painel/internal/core"
	"painel/internal/services"
)

const axisTicks = 7

type option struct {
	Value    string
	Label    string
	Selected bool
}

type metricCard struct {
	Key       string
	Title     string
	Value     string
	Change    core.Percent
	Inverse   bool // a rise is bad news, as for lost clients
	Sparkline string
}

type chartTick struct {
	X     string
	Label string
}

type revenueChart struct {
	Points string
	Area   string
	Ticks  []chartTick
	Peak   string
	Total  string
}

type bar struct {
	Label  string
	Amount string
	Width  int
}

type invoiceRow struct {
	Date   string
	Amount string
}

type supplierRow struct {
	ID        int64
	Name      string
	Category  string
	TotalPaid string
	Last      string
	Invoices  []invoiceRow
}

type rankRow struct {
	Position int
	Name     string
	Category string
	Amount   string
}

type cashFlowView struct {
	Revenue     string
	Expense     string
	NetProfit   string
	Negative    bool
	ClientsIn   int
	ClientsOut  int
	NetClients  int
	WindowLabel string
}

type reportsView struct {
	Retention    core.Percent
	ProfitMargin core.Percent
	Top          []rankRow
}

// pageView is the template data shared by the page and every partial.
type pageView struct {
	Selection      services.Selection
	ExportURL      template.URL
	Today          string
	Windows        []option
	Categories     []option
	Cards          []metricCard
	HasBaseline    bool
	Revenue        revenueChart
	Bars           []bar
	Suppliers      []supplierRow
	Shown          int
	TotalSuppliers int
	CashFlow       cashFlowView
	Reports        reportsView
}

func newPageView(d services.Dashboard) pageView {
	m := d.Metrics
	v := pageView{
		Selection:      d.Selection,
		ExportURL:      exportURL(d.Selection),
		Today:          d.Today.BR(),
		Windows:        windowOptions(d.Selection.Window),
		Categories:     categoryOptions(d.Selection.Category),
		HasBaseline:    d.HasBaseline,
		Revenue:        newRevenueChart(d.Revenue),
		Bars:           newBars(d.SupplierAmounts),
		Shown:          len(d.Suppliers),
		TotalSuppliers: d.TotalSuppliers,
		Cards: []metricCard{
			{Key: "revenue", Title: "Receita Total", Value: m.TotalRevenue.BRL(), Change: m.RevenueChange,
				Sparkline: core.SparklinePoints(d.Sparklines.Revenue)},
			{Key: "clients-in", Title: "Novos Clientes", Value: fmt.Sprint(m.ClientsIn), Change: m.ClientsInChange,
				Sparkline: core.SparklinePoints(d.Sparklines.ClientsIn)},
			{Key: "clients-out", Title: "Clientes Perdidos", Value: fmt.Sprint(m.ClientsOut), Change: m.ClientsOutChange,
				Inverse: true, Sparkline: core.SparklinePoints(d.Sparklines.ClientsOut)},
			{Key: "supplier-expense", Title: "Despesas com Fornecedores", Value: m.SupplierExpense.BRL(),
				Change: m.SupplierExpenseChange, Inverse: true, Sparkline: core.SparklinePoints(d.Sparklines.SupplierExpense)},
		},
		CashFlow: cashFlowView{
			Revenue:     m.TotalRevenue.BRL(),
			Expense:     m.SupplierExpense.BRL(),
			NetProfit:   m.NetProfit().BRL(),
			Negative:    m.NetProfit().Cents < 0,
			ClientsIn:   m.ClientsIn,
			ClientsOut:  m.ClientsOut,
			NetClients:  m.ClientsIn - m.ClientsOut,
			WindowLabel: d.Selection.Window.Label(),
		},
		Reports: reportsView{
			Retention:    m.RetentionRate(),
			ProfitMargin: m.ProfitMargin(),
		},
	}
	for _, s := range d.Suppliers {
		v.Suppliers = append(v.Suppliers, newSupplierRow(s))
	}
	for i, s := range d.TopSuppliers {
		v.Reports.Top = append(v.Reports.Top, rankRow{
			Position: i + 1,
			Name:     s.Name,
			Category: s.Category.Label(),
			Amount:   s.TotalPaid.BRL(),
		})
	}
	return v
}

// exportURL is built here so the template can use it as a whole trusted URL.
func exportURL(sel services.Selection) template.URL {
	u := "/export/csv"
	if q := SelectionQuery(sel).Encode(); q != "" {
		u += "?" + q
	}
	return template.URL(u)
}

func windowOptions(selected core.Window) []option {
	out := make([]option, 0, len(core.Windows()))
	for _, w := range core.Windows() {
		out = append(out, option{Value: fmt.Sprint(w.Days()), Label: w.Label(), Selected: w == selected})
	}
	return out
}

func categoryOptions(selected core.Category) []option {
	out := make([]option, 0, len(core.CategorySelectors()))
	for _, c := range core.CategorySelectors() {
		out = append(out, option{Value: c.String(), Label: c.Label(), Selected: c == selected})
	}
	return out
}

func newSupplierRow(s core.Supplier) supplierRow {
	row := supplierRow{
		ID:        s.ID,
		Name:      s.Name,
		Category:  s.Category.Label(),
		TotalPaid: s.TotalPaid.BRL(),
		Last:      "Sem faturas",
	}
	if inv, ok := s.LastInvoice(); ok {
		row.Last = inv.Date.BR()
	}
	for _, inv := range s.Invoices {
		row.Invoices = append(row.Invoices, invoiceRow{Date: inv.Date.BR(), Amount: inv.Amount.BRL()})
	}
	return row
}

// newRevenueChart scales the series into a 100x100 box with zero at the
// bottom edge.
func newRevenueChart(series []core.RevenuePoint) revenueChart {
	var chart revenueChart
	if len(series) == 0 {
		return chart
	}
	var peak, total int64
	for _, p := range series {
		peak = max(peak, p.Amount.Cents)
		total += p.Amount.Cents
	}
	chart.Peak = core.Money{Cents: peak}.BRL()
	chart.Total = core.Money{Cents: total}.BRL()

	step := 0.0
	if len(series) > 1 {
		step = 100 / float64(len(series)-1)
	}
	pts := make([]string, len(series))
	for i, p := range series {
		y := 100.0
		if peak > 0 {
			y = 100 - float64(p.Amount.Cents)/float64(peak)*100
		}
		pts[i] = fmt.Sprintf("%.2f,%.2f", float64(i)*step, y)
	}
	chart.Points = strings.Join(pts, " ")
	chart.Area = fmt.Sprintf("0,100 %s %.2f,100", chart.Points, float64(len(series)-1)*step)

	every := max(1, (len(series)+axisTicks-1)/axisTicks)
	for i := 0; i < len(series); i += every {
		chart.Ticks = append(chart.Ticks, chartTick{X: fmt.Sprintf("%.2f", float64(i)*step), Label: series[i].Label})
	}
	return chart
}

// newBars sizes each bar against the largest amount shown.
func newBars(amounts []core.SupplierAmount) []bar {
	var peak int64
	for _, a := range amounts {
		peak = max(peak, a.Amount.Cents)
	}
	out := make([]bar, 0, len(amounts))
	for _, a := range amounts {
		width := 0
		if peak > 0 && a.Amount.Cents > 0 {
			width = int((a.Amount.Cents*100 + peak/2) / peak)
			width = max(width, 2)
		}
		out = append(out, bar{Label: a.Label, Amount: a.Amount.BRL(), Width: width})
	}
	return out
}
