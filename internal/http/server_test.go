package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"painel/internal/backend"
	"painel/internal/core"
	"painel/internal/ledger"
	applog "painel/internal/log"
	"painel/internal/services"
	"painel/internal/sources/memory"
)

var testNow = time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)

type failingSuppliers struct{}

func (failingSuppliers) ListSuppliers(context.Context) ([]core.Supplier, error) {
	return nil, errors.New("sheet unavailable")
}

func newTestServer(t *testing.T, dash Dashboard, checks ...backend.HealthCheck) (*Server, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	srv := NewServer(":0", Options{
		Dashboard:          dash,
		Checks:             checks,
		Logger:             applog.New(applog.Config{Output: &buf}),
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv, &buf
}

func newTestDashboard(store *memory.Store) *services.DashboardService {
	return services.NewDashboardService(store, ledger.NewSynthetic(42), store,
		services.WithClock(func() time.Time { return testNow }))
}

func serve(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestIndexRendersDashboard(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())))

	rr := serve(t, srv, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Painel de Fornecedores",
		"TechSolutions Brasil",
		"Receita Total",
		"Despesas com Fornecedores",
		`href="/export/csv"`,
		"20/01/2025",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control=%q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("missing X-Request-ID")
	}
}

func TestIndexKeepsSelection(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())))

	rr := serve(t, srv, http.MethodGet, "/?days=7&category=hardware")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `<option value="7" selected>`) {
		t.Errorf("window 7 not selected")
	}
	if !strings.Contains(body, `href="/export/csv?category=hardware&amp;days=7"`) {
		t.Errorf("export link does not carry the selection")
	}
	if strings.Contains(body, "Cloud Hosting Pro") {
		t.Errorf("infrastructure supplier shown under hardware filter")
	}
}

func TestPartialsFilterSuppliers(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())))

	rr := serve(t, srv, http.MethodGet, "/ui/suppliers?category=software&q=tech")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "TechSolutions Brasil") {
		t.Errorf("expected TechSolutions Brasil in partial")
	}
	if strings.Contains(body, "Analytics") {
		t.Errorf("search term did not narrow the list")
	}
	if strings.Contains(body, "<html") {
		t.Errorf("partial rendered the whole page")
	}

	for _, path := range []string{"/ui/metrics", "/ui/charts", "/ui/cash-flow", "/ui/reports"} {
		rr := serve(t, srv, http.MethodGet, path)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}

func TestEmptySelectionRendersPlaceholders(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())))

	rr := serve(t, srv, http.MethodGet, "/ui/suppliers?q=nobody")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Nenhum fornecedor corresponde aos filtros.") {
		t.Errorf("missing empty-state message")
	}
}

func TestAPIMetricsUnavailablePercentsAreNull(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())))

	rr := serve(t, srv, http.MethodGet, "/api/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"revenue_change", "clients_in_change", "clients_out_change", "supplier_expense_change"} {
		v, ok := got[key]
		if !ok {
			t.Errorf("%s missing", key)
		}
		if v != nil {
			t.Errorf("%s=%v, want null without a baseline", key, v)
		}
	}
	if got["supplier_expense"] != float64(1093000) {
		t.Errorf("supplier_expense=%v", got["supplier_expense"])
	}
	if got["window"] != float64(30) || got["category"] != "all" {
		t.Errorf("selection=%v/%v", got["window"], got["category"])
	}
}

func TestAPIMetricsUsesBaseline(t *testing.T) {
	store := memory.New(memory.DefaultSuppliers())
	old := core.MetricsSnapshot{
		Window:          core.Window30,
		Category:        core.AllCategories,
		Day:             core.DateOf(testNow).AddDays(-30),
		SupplierExpense: core.Reais(546500),
	}
	if err := store.SaveSnapshot(context.Background(), old); err != nil {
		t.Fatalf("save: %v", err)
	}
	srv, _ := newTestServer(t, newTestDashboard(store))

	rr := serve(t, srv, http.MethodGet, "/api/metrics")
	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["supplier_expense_change"] != float64(100) {
		t.Errorf("supplier_expense_change=%v, want 100", got["supplier_expense_change"])
	}
}

func TestAPISeries(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())))

	rr := serve(t, srv, http.MethodGet, "/api/revenue?days=7")
	var revenue []revenueJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &revenue); err != nil {
		t.Fatalf("decode revenue: %v", err)
	}
	if len(revenue) != 7 {
		t.Fatalf("got %d revenue points, want 7", len(revenue))
	}
	if revenue[6].Date != "2025-01-20" {
		t.Errorf("last point %s, want today", revenue[6].Date)
	}

	rr = serve(t, srv, http.MethodGet, "/api/supplier-amounts?category=software")
	var amounts []supplierAmountJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &amounts); err != nil {
		t.Fatalf("decode amounts: %v", err)
	}
	if len(amounts) != 2 || amounts[0].Label != "TechSolutions" || amounts[1].Label != "Analytics" {
		t.Errorf("amounts=%+v", amounts)
	}
}

func TestExportCSV(t *testing.T) {
	store := memory.New(memory.DefaultSuppliers())
	srv, _ := newTestServer(t, services.NewDashboardService(store, ledger.NewSynthetic(42), store,
		services.WithClock(func() time.Time { return testNow }),
		services.WithExportLog(store)))

	rr := serve(t, srv, http.MethodGet, "/export/csv?category=hardware")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/csv;charset=utf-8" {
		t.Errorf("Content-Type=%q", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="fornecedores_2025-01-20.csv"` {
		t.Errorf("Content-Disposition=%q", got)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "export:completed") || !strings.Contains(trigger, "1 fornecedores exportados") {
		t.Errorf("HX-Trigger=%q", trigger)
	}
	want := "Fornecedor,Categoria,Total Pago,Última Fatura\nHardware Supplies Inc,hardware,67000,05/01/2025 - R$ 8000"
	if rr.Body.String() != want {
		t.Errorf("body=%q", rr.Body.String())
	}
	if n := len(store.Exports()); n != 1 {
		t.Errorf("recorded %d exports, want 1", n)
	}

	metrics := serve(t, srv, http.MethodGet, "/metrics").Body.String()
	if !strings.Contains(metrics, "csv_exports_total 1\n") {
		t.Errorf("metrics missing export count:\n%s", metrics)
	}
}

func TestExportEmptySelectionHasHeader(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())))

	rr := serve(t, srv, http.MethodGet, "/export/csv?q=nobody")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.String() != "Fornecedor,Categoria,Total Pago,Última Fatura" {
		t.Errorf("body=%q", rr.Body.String())
	}
}

func TestSourceFailure(t *testing.T) {
	store := memory.New(nil)
	dash := services.NewDashboardService(failingSuppliers{}, ledger.NewSynthetic(1), store,
		services.WithClock(func() time.Time { return testNow }))
	srv, logs := newTestServer(t, dash)

	tests := []struct {
		path   string
		status int
	}{
		{"/", http.StatusServiceUnavailable},
		{"/ui/metrics", http.StatusServiceUnavailable},
		{"/api/metrics", http.StatusServiceUnavailable},
		{"/export/csv", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rr := serve(t, srv, http.MethodGet, tt.path)
		if rr.Code != tt.status {
			t.Errorf("%s status=%d, want %d", tt.path, rr.Code, tt.status)
		}
		if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"error"`) {
			t.Errorf("%s missing error notification", tt.path)
		}
	}
	if !strings.Contains(logs.String(), "sheet unavailable") {
		t.Errorf("failure not logged")
	}

	metrics := serve(t, srv, http.MethodGet, "/metrics").Body.String()
	for _, want := range []string{"dashboard_load_failures_total 3\n", "csv_export_failures_total 1\n", "http_server_errors_total 4\n"} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())),
		backend.HealthCheck{Name: "suppliers", Check: func(context.Context) error { return nil }})

	rr := serve(t, srv, http.MethodGet, "/healthz")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(t, srv, http.MethodGet, "/readyz")
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d body=%s", rr.Code, rr.Body.String())
	}
	var ready struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &ready); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ready.Status != "ready" || ready.Checks["suppliers"] != "ok" || ready.Checks["amqp"] != "not_configured" {
		t.Errorf("ready=%+v", ready)
	}
}

func TestReadyFailsOnBrokenCheck(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(nil)),
		backend.HealthCheck{Name: "sqlite", Check: func(context.Context) error { return errors.New("disk I/O error") }})

	rr := serve(t, srv, http.MethodGet, "/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "failed: disk I/O error") {
		t.Errorf("body=%s", rr.Body.String())
	}
}

func TestRoutingErrors(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(memory.DefaultSuppliers())))

	rr := serve(t, srv, http.MethodGet, "/does-not-exist")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d", rr.Code)
	}

	for _, path := range []string{"/", "/ui/metrics", "/export/csv", "/healthz"} {
		rr := serve(t, srv, http.MethodPost, path)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s status=%d", path, rr.Code)
		}
		if rr.Header().Get("Allow") != "GET, HEAD" {
			t.Errorf("POST %s Allow=%q", path, rr.Header().Get("Allow"))
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, newTestDashboard(memory.New(nil)))

	rr := serve(t, srv, http.MethodGet, "/static/app.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("Cache-Control=%q", got)
	}
	body, _ := io.ReadAll(rr.Body)
	if !bytes.Contains(body, []byte(".card")) {
		t.Errorf("unexpected stylesheet body")
	}
}

func TestRateLimit(t *testing.T) {
	var buf bytes.Buffer
	srv := NewServer(":0", Options{
		Dashboard:          newTestDashboard(memory.New(memory.DefaultSuppliers())),
		Logger:             applog.New(applog.Config{Output: &buf}),
		RateLimitPerMinute: 2,
	})
	defer srv.limiter.Stop()

	for i := 0; i < 2; i++ {
		if rr := serve(t, srv, http.MethodGet, "/api/revenue"); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := serve(t, srv, http.MethodGet, "/api/revenue")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Errorf("missing Retry-After")
	}
	// operational endpoints are not limited
	if rr := serve(t, srv, http.MethodGet, "/healthz"); rr.Code != http.StatusOK {
		t.Errorf("healthz status=%d", rr.Code)
	}
}

func (g *snapshotGate) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}

type snapshotDashboard struct {
	*services.DashboardService
	calls chan services.Selection
	err   error
}

func (d *snapshotDashboard) RequestSnapshot(_ context.Context, sel services.Selection) error {
	d.calls <- sel
	return d.err
}

func waitSnapshot(t *testing.T, calls <-chan services.Selection) services.Selection {
	t.Helper()
	select {
	case sel := <-calls:
		return sel
	case <-time.After(time.Second):
		t.Fatalf("snapshot was not requested")
		return services.Selection{}
	}
}

func TestSnapshotGate(t *testing.T) {
	g := &snapshotGate{}
	if !g.acquire("2025-01-20", "30|all") {
		t.Fatalf("first request must pass")
	}
	if g.acquire("2025-01-20", "30|all") {
		t.Fatalf("same key on the same day must be held")
	}
	g.release("2025-01-20", "30|all")
	if !g.acquire("2025-01-20", "30|all") {
		t.Fatalf("released key must pass again")
	}
	g.acquire("2025-01-20", "7|software")
	if g.size() != 2 {
		t.Fatalf("size=%d, want 2", g.size())
	}
	if !g.acquire("2025-01-21", "30|all") {
		t.Fatalf("a new day must pass")
	}
	if g.size() != 1 {
		t.Fatalf("keys from earlier days kept: size=%d", g.size())
	}
	g.release("2025-01-20", "30|all")
	if g.size() != 1 {
		t.Fatalf("release for an earlier day must not touch today's keys")
	}
}

func TestSnapshotRequestedOncePerDay(t *testing.T) {
	dash := &snapshotDashboard{
		DashboardService: newTestDashboard(memory.New(memory.DefaultSuppliers())),
		calls:            make(chan services.Selection, 4),
	}
	srv, _ := newTestServer(t, dash)

	serve(t, srv, http.MethodGet, "/?category=software&q=tech")
	serve(t, srv, http.MethodGet, "/?category=software")
	sel := waitSnapshot(t, dash.calls)
	if sel.Category != core.Software || sel.Search != "" {
		t.Fatalf("unexpected snapshot selection %+v", sel)
	}
	select {
	case extra := <-dash.calls:
		t.Fatalf("duplicate snapshot request %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSnapshotRequestRetriedAfterFailure(t *testing.T) {
	dash := &snapshotDashboard{
		DashboardService: newTestDashboard(memory.New(memory.DefaultSuppliers())),
		calls:            make(chan services.Selection, 4),
		err:              errors.New("broker down"),
	}
	srv, _ := newTestServer(t, dash)

	serve(t, srv, http.MethodGet, "/")
	waitSnapshot(t, dash.calls)

	deadline := time.Now().Add(time.Second)
	for srv.snapshots.size() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("failed snapshot request was not released")
		}
		time.Sleep(time.Millisecond)
	}

	serve(t, srv, http.MethodGet, "/")
	waitSnapshot(t, dash.calls)
}
