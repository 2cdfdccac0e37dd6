package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RevenuePoint is one day of the revenue series.
type RevenuePoint struct {
	Date   Date
	Label  string // dd/mm
	Amount Money
}

// ClientFlowPoint counts clients gained and lost on one day.
type ClientFlowPoint struct {
	Date Date
	In   int
	Out  int
}

// SupplierAmount is one bar of the top-suppliers chart.
type SupplierAmount struct {
	Label  string
	Amount Money
}

// Percent is a percentage that may be undefined (zero denominator or no
// baseline). An invalid Percent must never be shown as a number.
type Percent struct {
	Value float64
	Valid bool
}

// Unavailable is the undefined percentage.
var Unavailable = Percent{}

// Ratio returns num/den*100, or Unavailable when den is zero.
func Ratio(num, den int64) Percent {
	if den == 0 {
		return Unavailable
	}
	v := decimal.NewFromInt(num).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(den))
	return Percent{Value: v.InexactFloat64(), Valid: true}
}

// ChangePercent is (current-previous)/previous*100 with the sign preserved
// and no clamping. A zero previous value has no defined change.
func ChangePercent(current, previous int64) Percent {
	return Ratio(current-previous, previous)
}

// String renders "+12.5%", "-3.0%" or "n/d".
func (p Percent) String() string {
	if !p.Valid {
		return "n/d"
	}
	return fmt.Sprintf("%+.1f%%", p.Value)
}

// Positive reports whether p is a valid non-negative change.
func (p Percent) Positive() bool { return p.Valid && p.Value >= 0 }

// Metrics is the aggregate shown on the metric cards. It is recomputed on
// every request.
type Metrics struct {
	TotalRevenue          Money
	RevenueChange         Percent
	ClientsIn             int
	ClientsInChange       Percent
	ClientsOut            int
	ClientsOutChange      Percent
	SupplierExpense       Money
	SupplierExpenseChange Percent
}

// NetProfit is revenue minus supplier expenses.
func (m Metrics) NetProfit() Money {
	return m.TotalRevenue.Sub(m.SupplierExpense)
}

// RetentionRate is clientsIn / (clientsIn + clientsOut) * 100.
func (m Metrics) RetentionRate() Percent {
	return Ratio(int64(m.ClientsIn), int64(m.ClientsIn+m.ClientsOut))
}

// ProfitMargin is net profit / revenue * 100.
func (m Metrics) ProfitMargin() Percent {
	return Ratio(m.NetProfit().Cents, m.TotalRevenue.Cents)
}

// MetricsSnapshot is a persisted copy of the scalar metrics for one
// selection on one day. It is the baseline for percent changes.
type MetricsSnapshot struct {
	Window          Window
	Category        Category
	Day             Date
	TotalRevenue    Money
	ClientsIn       int
	ClientsOut      int
	SupplierExpense Money
	RecordedAt      time.Time
}

// Snapshot captures m for the given selection and day.
func (m Metrics) Snapshot(w Window, c Category, day Date, now time.Time) MetricsSnapshot {
	return MetricsSnapshot{
		Window:          w,
		Category:        c,
		Day:             day,
		TotalRevenue:    m.TotalRevenue,
		ClientsIn:       m.ClientsIn,
		ClientsOut:      m.ClientsOut,
		SupplierExpense: m.SupplierExpense,
		RecordedAt:      now,
	}
}

// SparklinePoints maps values onto a 100x100 SVG box as a polyline points
// attribute. A flat series is drawn on the midline. Fewer than two values
// produce no line.
func SparklinePoints(values []int64) string {
	if len(values) < 2 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	parts := make([]string, len(values))
	step := 100.0 / float64(len(values)-1)
	for i, v := range values {
		y := 50.0
		if hi != lo {
			y = 100 - float64(v-lo)/float64(hi-lo)*100
		}
		parts[i] = fmt.Sprintf("%.1f,%.1f", math.Round(float64(i)*step*10)/10, y)
	}
	return strings.Join(parts, " ")
}

// ExportRecord describes one completed CSV export.
type ExportRecord struct {
	ID        string
	Filename  string
	Rows      int
	Window    Window
	Category  Category
	Search    string
	CreatedAt time.Time
}
