package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "painel/internal/log"
	"painel/internal/middleware/trace"
	"painel/internal/services"
)

var errTemplatesMissing = errors.New("templates not loaded")

// fields starts a log field set carrying the request ID.
func (s *Server) fields(r *http.Request) applog.LogFields {
	return applog.NewFields().WithRequestID(trace.GetRequestID(r.Context()))
}

// selection parses the dashboard query and logs every value that fell back
// to its default.
func (s *Server) selection(r *http.Request) services.Selection {
	sel, invalid := ParseSelection(r.URL.Query())
	for _, p := range invalid {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid query parameter replaced by default",
			"param", p.Name, "value", p.Value)
	}
	return sel
}

// load runs the dashboard pipeline for the request's selection. On failure
// it writes the error response and returns ok=false.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (services.Dashboard, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	sel := s.selection(r)
	d, err := s.dashboard.Load(ctx, sel)
	if err != nil {
		atomic.AddInt64(&s.metrics.loadFailures, 1)
		s.structured.LogError(r.Context(), "Dashboard load failed", err, applog.ComponentDashboard, applog.OpLoad,
			s.fields(r).WithSelection(sel.Window.Days(), sel.Category.String(), sel.Search))
		_ = ServiceUnavailableError("Não foi possível carregar os dados dos fornecedores.").
			TriggerErrorNotification("Fonte de dados indisponível").
			Write(w)
		return services.Dashboard{}, false
	}
	return d, true
}

// render executes a template into a buffer so a failure never leaves a
// half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.structured.LogError(r.Context(), "Templates not loaded", errTemplatesMissing, applog.ComponentTemplate, applog.OpRender,
			s.fields(r).WithTemplate(name))
		_ = InternalServerError("Erro ao renderizar a página.").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.structured.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			s.fields(r).WithTemplate(name))
		_ = InternalServerError("Erro ao renderizar a página.").Write(w)
		return
	}
	if err := NewHTMXResponse().BodyHTML(buf.String()).Write(w); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Response write failed", applog.FieldTemplate, name, applog.FieldError, err)
	}
}

// handleIndex renders the full dashboard page and asks the worker for
// today's snapshot of the selection.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		_ = NotFoundError("Página não encontrada.").Write(w)
		return
	}
	d, ok := s.load(w, r)
	if !ok {
		return
	}
	s.requestSnapshot(r.Context(), d.Selection)
	s.render(w, r, "dashboard_page", newPageView(d))
}

// partial serves one HTMX fragment of the dashboard.
func (s *Server) partial(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := s.load(w, r)
		if !ok {
			return
		}
		s.render(w, r, name, newPageView(d))
	}
}

// requestSnapshot asks for at most one snapshot per selection per day from
// this process. Search terms are not part of a baseline. A failed request
// is released so the next page load retries it.
func (s *Server) requestSnapshot(ctx context.Context, sel services.Selection) {
	sel.Search = ""
	day := s.dashboard.Today().ISO()
	key := fmt.Sprintf("%d|%s", sel.Window.Days(), sel.Category)
	if !s.snapshots.acquire(day, key) {
		return
	}
	logger := applog.FromContext(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()
		if err := s.dashboard.RequestSnapshot(ctx, sel); err != nil {
			s.snapshots.release(day, key)
			logger.WarnContext(ctx, "Snapshot request failed", applog.FieldError, err,
				"window", sel.Window.Days(), "category", sel.Category.String())
		}
	}()
}

// snapshotGate remembers which selections were requested today. Keys from
// earlier days are dropped on the first request of a new day.
type snapshotGate struct {
	mu   sync.Mutex
	day  string
	keys map[string]struct{}
}

func (g *snapshotGate) acquire(day, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.day != day || g.keys == nil {
		g.day = day
		g.keys = make(map[string]struct{})
	}
	if _, ok := g.keys[key]; ok {
		return false
	}
	g.keys[key] = struct{}{}
	return true
}

func (g *snapshotGate) release(day, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.day == day {
		delete(g.keys, key)
	}
}

type revenueJSON struct {
	Date   string      `json:"date"`
	Label  string      `json:"label"`
	Amount json.Number `json:"amount"`
}

type supplierAmountJSON struct {
	Label  string      `json:"label"`
	Amount json.Number `json:"amount"`
}

type metricsJSON struct {
	Window                int         `json:"window"`
	Category              string      `json:"category"`
	Search                string      `json:"search,omitempty"`
	Suppliers             int         `json:"suppliers"`
	TotalRevenue          json.Number `json:"total_revenue"`
	RevenueChange         *float64    `json:"revenue_change"`
	ClientsIn             int         `json:"clients_in"`
	ClientsInChange       *float64    `json:"clients_in_change"`
	ClientsOut            int         `json:"clients_out"`
	ClientsOutChange      *float64    `json:"clients_out_change"`
	SupplierExpense       json.Number `json:"supplier_expense"`
	SupplierExpenseChange *float64    `json:"supplier_expense_change"`
	NetProfit             json.Number `json:"net_profit"`
	RetentionRate         *float64    `json:"retention_rate"`
	ProfitMargin          *float64    `json:"profit_margin"`
	GeneratedAt           time.Time   `json:"generated_at"`
}

func (s *Server) handleAPIRevenue(w http.ResponseWriter, r *http.Request) {
	d, ok := s.load(w, r)
	if !ok {
		return
	}
	out := make([]revenueJSON, len(d.Revenue))
	for i, p := range d.Revenue {
		out[i] = revenueJSON{Date: p.Date.ISO(), Label: p.Label, Amount: moneyValue(p.Amount)}
	}
	s.writeAPI(w, r, out)
}

func (s *Server) handleAPISupplierAmounts(w http.ResponseWriter, r *http.Request) {
	d, ok := s.load(w, r)
	if !ok {
		return
	}
	out := make([]supplierAmountJSON, len(d.SupplierAmounts))
	for i, a := range d.SupplierAmounts {
		out[i] = supplierAmountJSON{Label: a.Label, Amount: moneyValue(a.Amount)}
	}
	s.writeAPI(w, r, out)
}

func (s *Server) handleAPIMetrics(w http.ResponseWriter, r *http.Request) {
	d, ok := s.load(w, r)
	if !ok {
		return
	}
	m := d.Metrics
	s.writeAPI(w, r, metricsJSON{
		Window:                d.Selection.Window.Days(),
		Category:              d.Selection.Category.String(),
		Search:                d.Selection.Search,
		Suppliers:             len(d.Suppliers),
		TotalRevenue:          moneyValue(m.TotalRevenue),
		RevenueChange:         percentValue(m.RevenueChange),
		ClientsIn:             m.ClientsIn,
		ClientsInChange:       percentValue(m.ClientsInChange),
		ClientsOut:            m.ClientsOut,
		ClientsOutChange:      percentValue(m.ClientsOutChange),
		SupplierExpense:       moneyValue(m.SupplierExpense),
		SupplierExpenseChange: percentValue(m.SupplierExpenseChange),
		NetProfit:             moneyValue(m.NetProfit()),
		RetentionRate:         percentValue(m.RetentionRate()),
		ProfitMargin:          percentValue(m.ProfitMargin()),
		GeneratedAt:           time.Now().UTC(),
	})
}

func (s *Server) writeAPI(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "JSON response write failed", applog.FieldError, err)
	}
}
