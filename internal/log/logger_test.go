package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentDashboard, Output: &buf})

	l.Info("Dashboard loaded", FieldSuppliers, 10)
	out := buf.String()
	if !strings.Contains(out, "component=dashboard") {
		t.Fatalf("missing component: %s", out)
	}
	if !strings.Contains(out, "suppliers=10") {
		t.Fatalf("missing field: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentWorker).Warn("Snapshot skipped")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Fatalf("WithComponent not applied: %s", buf.String())
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %s", buf.String())
	}
	l.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("error not logged: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("default component = %q, want unknown", got.Component())
	}

	var buf bytes.Buffer
	l := New(Config{Component: ComponentHTTP, Output: &buf})
	ctx := WithLogger(context.Background(), l.With(FieldRequestID, "req_1"))
	seen := FromContext(ctx)
	seen.Info("inside")

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("logger not propagated: %+v", seen)
	}
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Fatalf("request id missing: %s", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	ctx := context.Background()

	sl.LogExportCompleted(ctx, "abc", "fornecedores_2025-01-01.csv", 3, 30, "all", "")
	out := buf.String()
	for _, want := range []string{"export_id=abc", "rows=3", "window=30", "operation=export"} {
		if !strings.Contains(out, want) {
			t.Errorf("export log missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "search=") {
		t.Errorf("empty search should be omitted: %s", out)
	}

	buf.Reset()
	sl.LogError(ctx, "Load failed", errors.New("boom"), ComponentDashboard, OpLoad, nil)
	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("error missing: %s", buf.String())
	}

	buf.Reset()
	req := httptest.NewRequest(http.MethodGet, "/ui/metrics?days=7", nil)
	sl.LogHTTPEnd(ctx, req, http.StatusInternalServerError, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status_code=500") {
		t.Errorf("5xx should log at error: %s", buf.String())
	}
}
