package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"painel/internal/backend"
	"painel/internal/core"
	"painel/internal/ledger"
	applog "painel/internal/log"
	"painel/internal/middleware/ratelimit"
	"painel/internal/middleware/security"
	"painel/internal/middleware/trace"
	"painel/internal/services"
	appweb "painel/web"
)

const (
	dashboardTimeout = 7 * time.Second
	snapshotTimeout  = 30 * time.Second
	staticMaxAge     = 3600
)

// Dashboard is the service behind every dashboard route.
// services.DashboardService implements it.
type Dashboard interface {
	Today() core.Date
	Load(ctx context.Context, sel services.Selection) (services.Dashboard, error)
	Export(ctx context.Context, sel services.Selection) (services.ExportResult, error)
	RequestSnapshot(ctx context.Context, sel services.Selection) error
}

// Options wires the server to its collaborators. Only Dashboard is required.
type Options struct {
	Dashboard          Dashboard
	Checks             []backend.HealthCheck
	LedgerCache        *ledger.Cached
	Messaging          func() bool // reports AMQP health; nil when messaging is off
	Logger             *applog.Logger
	RateLimitPerMinute int
}

type appMetrics struct {
	start          time.Time
	exports        int64
	exportFailures int64
	loadFailures   int64
}

// Server serves the dashboard page, its HTMX partials, the JSON chart
// endpoints, the CSV export and the operational endpoints.
type Server struct {
	*http.Server

	templates   *template.Template
	dashboard   Dashboard
	checks      []backend.HealthCheck
	ledgerCache *ledger.Cached
	messaging   func() bool

	logger     *applog.Logger
	structured *applog.StructuredLogger
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	trace      *trace.Middleware
	metrics    *appMetrics

	snapshots *snapshotGate
}

// NewServer builds the server and its middleware chain. A template parse
// failure is logged and leaves the server running with pages returning 500
// and /readyz reporting not ready.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		dashboard:   opts.Dashboard,
		checks:      opts.Checks,
		ledgerCache: opts.LedgerCache,
		messaging:   opts.Messaging,
		logger:      logger,
		structured:  applog.NewStructuredLogger(logger),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    security.NewDetector(),
		metrics:     &appMetrics{start: time.Now()},
		snapshots:   &snapshotGate{},
	}
	s.trace = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed to parse templates", applog.FieldError, err)
	} else {
		s.templates = tmpl
	}

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
	return s
}

func (s *Server) routes() http.Handler {
	app := http.NewServeMux()
	app.Handle("/", getOnly(s.handleIndex))
	app.Handle("/ui/metrics", getOnly(s.partial("metrics")))
	app.Handle("/ui/charts", getOnly(s.partial("charts")))
	app.Handle("/ui/suppliers", getOnly(s.partial("suppliers")))
	app.Handle("/ui/cash-flow", getOnly(s.partial("cash_flow")))
	app.Handle("/ui/reports", getOnly(s.partial("reports")))
	app.Handle("/api/revenue", getOnly(s.handleAPIRevenue))
	app.Handle("/api/supplier-amounts", getOnly(s.handleAPISupplierAmounts))
	app.Handle("/api/metrics", getOnly(s.handleAPIMetrics))
	app.Handle("/export/csv", getOnly(s.handleExportCSV))

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(security.NoStore(app))

	root := http.NewServeMux()
	root.Handle("/healthz", getOnly(s.handleHealth))
	root.Handle("/readyz", getOnly(s.handleReady))
	root.Handle("/metrics", getOnly(s.handleMetrics))
	if static, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		root.Handle("/static/", security.StaticAssetMiddleware(staticMaxAge)(
			http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	}
	root.Handle("/", limited)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	return s.trace.Middleware(s.detector.Middleware(s.logger)(headers.Middleware(root)))
}

func getOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if resp := RequireGET(r); resp != nil {
			_ = resp.Write(w)
			return
		}
		h(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	_ = ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.").
		TriggerErrorNotification("Muitas requisições. Aguarde um momento.").
		Write(w)
}

// Shutdown stops the rate limiter and gracefully shuts the listener down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	if err := s.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
