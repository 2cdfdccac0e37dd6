package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"painel/internal/cache"
)

const readinessCheckTimeout = 3 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.start).Round(time.Second).String(),
	})
}

// handleReady checks templates and every backend dependency. Messaging is
// reported but never fails readiness, since events are best effort.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	fail := func(name string, reason string) {
		checks[name] = "failed: " + reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	if s.dashboard == nil {
		fail("dashboard", "not configured")
	}

	for _, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), readinessCheckTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			fail(c.Name, err.Error())
			continue
		}
		checks[c.Name] = "ok"
	}

	switch {
	case s.messaging == nil:
		checks["amqp"] = "not_configured"
	case s.messaging():
		checks["amqp"] = "ok"
	default:
		checks["amqp"] = "degraded"
	}

	if s.ledgerCache != nil {
		rev, flow := s.ledgerCache.Stats()
		checks["ledger_cache"] = map[string]interface{}{
			"revenue_entries": rev.Size,
			"flow_entries":    flow.Size,
		}
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
	}

	_ = writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.trace.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "HTTP responses with a 5xx status", traceMetrics.ServerErrors)
	writeMetric(w, "http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	writeMetric(w, "dashboard_load_failures_total", "counter", "Dashboard loads that failed on the supplier source", atomic.LoadInt64(&s.metrics.loadFailures))
	writeMetric(w, "csv_exports_total", "counter", "Completed CSV exports", atomic.LoadInt64(&s.metrics.exports))
	writeMetric(w, "csv_export_failures_total", "counter", "Failed CSV exports", atomic.LoadInt64(&s.metrics.exportFailures))

	if s.ledgerCache != nil {
		rev, flow := s.ledgerCache.Stats()
		writeCacheMetrics(w, rev, flow)
	}

	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "invalid_client_ip_total", "counter", "Forwarded client IPs that failed to parse", securityMetrics.InvalidIPAttempts)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", time.Since(s.metrics.start).Seconds())
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

func writeCacheMetrics(w http.ResponseWriter, revenue, flow cache.Stats) {
	fmt.Fprintf(w, "# HELP ledger_cache_hits_total Ledger cache hits\n")
	fmt.Fprintf(w, "# TYPE ledger_cache_hits_total counter\n")
	fmt.Fprintf(w, "ledger_cache_hits_total{cache=\"revenue\"} %d\n", revenue.Hits)
	fmt.Fprintf(w, "ledger_cache_hits_total{cache=\"flow\"} %d\n\n", flow.Hits)

	fmt.Fprintf(w, "# HELP ledger_cache_misses_total Ledger cache misses\n")
	fmt.Fprintf(w, "# TYPE ledger_cache_misses_total counter\n")
	fmt.Fprintf(w, "ledger_cache_misses_total{cache=\"revenue\"} %d\n", revenue.Misses)
	fmt.Fprintf(w, "ledger_cache_misses_total{cache=\"flow\"} %d\n\n", flow.Misses)

	fmt.Fprintf(w, "# HELP ledger_cache_entries Current ledger cache entries\n")
	fmt.Fprintf(w, "# TYPE ledger_cache_entries gauge\n")
	fmt.Fprintf(w, "ledger_cache_entries{cache=\"revenue\"} %d\n", revenue.Size)
	fmt.Fprintf(w, "ledger_cache_entries{cache=\"flow\"} %d\n\n", flow.Size)
}
