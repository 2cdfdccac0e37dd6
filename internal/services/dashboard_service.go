package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"painel/internal/core"
	"painel/internal/export"
	"painel/internal/sources"
)

// Selection is the user's current filter state.
type Selection struct {
	Window   core.Window
	Category core.Category
	Search   string
}

// DefaultSelection is the state of a fresh page load.
func DefaultSelection() Selection {
	return Selection{Window: core.DefaultWindow, Category: core.AllCategories}
}

// Normalize replaces an unsupported window or category with its default and
// reports whether anything changed.
func (sel Selection) Normalize() (Selection, bool) {
	changed := false
	if sel.Window.Validate() != nil {
		sel.Window = core.DefaultWindow
		changed = true
	}
	if sel.Category != core.AllCategories && !sel.Category.Valid() {
		sel.Category = core.AllCategories
		changed = true
	}
	return sel, changed
}

// Dashboard is everything one page render needs.
type Dashboard struct {
	Selection       Selection
	Today           core.Date
	TotalSuppliers  int
	Suppliers       []core.Supplier
	Metrics         core.Metrics
	HasBaseline     bool
	Revenue         []core.RevenuePoint
	SupplierAmounts []core.SupplierAmount
	TopSuppliers    []core.Supplier
	Sparklines      Sparklines
}

// ExportResult is a rendered CSV export.
type ExportResult struct {
	Record  core.ExportRecord
	Payload string
	Path    string // archive path, empty when archiving is off
}

// EventPublisher sends dashboard events to the worker.
type EventPublisher interface {
	PublishSnapshotRequest(ctx context.Context, w core.Window, c core.Category) error
	PublishExportCompleted(ctx context.Context, r core.ExportRecord) error
}

// DashboardService loads suppliers, ledger series and snapshot baselines and
// runs them through the filter, aggregate and projection stages.
type DashboardService struct {
	suppliers  sources.SupplierReader
	ledger     sources.LedgerSource
	snapshots  sources.SnapshotStore
	publisher  EventPublisher
	exportLog  sources.ExportLog
	archiveDir string
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*DashboardService)

func WithPublisher(p EventPublisher) Option {
	return func(s *DashboardService) { s.publisher = p }
}

// WithExportLog records exports directly when no publisher is configured.
func WithExportLog(l sources.ExportLog) Option {
	return func(s *DashboardService) { s.exportLog = l }
}

// WithArchiveDir keeps a copy of every export under dir.
func WithArchiveDir(dir string) Option {
	return func(s *DashboardService) { s.archiveDir = dir }
}

func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *DashboardService) { s.logger = l }
}

func NewDashboardService(suppliers sources.SupplierReader, ledger sources.LedgerSource, snapshots sources.SnapshotStore, opts ...Option) *DashboardService {
	s := &DashboardService{
		suppliers: suppliers,
		ledger:    ledger,
		snapshots: snapshots,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today returns the current UTC calendar day.
func (s *DashboardService) Today() core.Date {
	return core.DateOf(s.now())
}

// Load computes the dashboard for sel. Only a supplier source failure is an
// error; ledger and snapshot failures degrade to empty series and
// unavailable percentages.
func (s *DashboardService) Load(ctx context.Context, sel Selection) (Dashboard, error) {
	if norm, changed := sel.Normalize(); changed {
		s.logger.WarnContext(ctx, "Unsupported selection replaced by default",
			"window", sel.Window, "category", sel.Category)
		sel = norm
	}
	today := s.Today()
	span := max(sel.Window.Days(), SparklineDays)

	var (
		all      []core.Supplier
		series   []core.RevenuePoint
		flow     []core.ClientFlowPoint
		previous *core.MetricsSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.suppliers.ListSuppliers(gctx)
		if err != nil {
			return fmt.Errorf("list suppliers: %w", err)
		}
		all = list
		return nil
	})
	g.Go(func() error {
		pts, err := s.ledger.RevenueSeries(gctx, span, today)
		if err != nil {
			s.logger.WarnContext(ctx, "Revenue series unavailable", "days", span, "error", err)
			return nil
		}
		series = pts
		return nil
	})
	g.Go(func() error {
		pts, err := s.ledger.ClientFlow(gctx, span, today)
		if err != nil {
			s.logger.WarnContext(ctx, "Client flow unavailable", "days", span, "error", err)
			return nil
		}
		flow = pts
		return nil
	})
	g.Go(func() error {
		snap, err := s.baseline(gctx, sel, today)
		if err != nil {
			s.logger.WarnContext(ctx, "Snapshot baseline unavailable", "window", sel.Window, "category", sel.Category, "error", err)
			return nil
		}
		previous = snap
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	filtered := FilterSuppliers(all, sel.Category, sel.Search)
	revenue := ProjectRevenue(series, sel.Window, today)
	metrics := AggregateMetrics(filtered, revenue, TrimFlow(flow, sel.Window, today), previous)
	if sel.Search != "" {
		// baselines are recorded without a search term
		metrics.SupplierExpenseChange = core.Unavailable
	}

	return Dashboard{
		Selection:       sel,
		Today:           today,
		TotalSuppliers:  len(all),
		Suppliers:       filtered,
		Metrics:         metrics,
		HasBaseline:     previous != nil,
		Revenue:         revenue,
		SupplierAmounts: ProjectSupplierAmounts(filtered, ChartSuppliers),
		TopSuppliers:    TopSuppliers(filtered, ReportSuppliers),
		Sparklines: BuildSparklines(
			ProjectRevenue(series, core.Window(SparklineDays), today),
			TrimFlow(flow, core.Window(SparklineDays), today),
			filtered,
		),
	}, nil
}

// baseline returns the newest snapshot recorded at least one full window
// before today.
func (s *DashboardService) baseline(ctx context.Context, sel Selection, today core.Date) (*core.MetricsSnapshot, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	snap, ok, err := s.snapshots.LatestSnapshot(ctx, sel.Window, sel.Category, today.AddDays(-sel.Window.Days()))
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// RecordSnapshot computes today's metrics for the window and category and
// persists them as a future baseline.
func (s *DashboardService) RecordSnapshot(ctx context.Context, w core.Window, c core.Category) (core.MetricsSnapshot, error) {
	if s.snapshots == nil {
		return core.MetricsSnapshot{}, errors.New("no snapshot store configured")
	}
	if err := w.Validate(); err != nil {
		return core.MetricsSnapshot{}, err
	}
	if c != core.AllCategories && !c.Valid() {
		return core.MetricsSnapshot{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, c)
	}
	d, err := s.Load(ctx, Selection{Window: w, Category: c})
	if err != nil {
		return core.MetricsSnapshot{}, err
	}
	snap := d.Metrics.Snapshot(w, c, d.Today, s.now().UTC())
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return core.MetricsSnapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

// RequestSnapshot asks the worker to record a snapshot for sel. Without a
// publisher the snapshot is recorded inline.
func (s *DashboardService) RequestSnapshot(ctx context.Context, sel Selection) error {
	if s.publisher != nil {
		if err := s.publisher.PublishSnapshotRequest(ctx, sel.Window, sel.Category); err != nil {
			return fmt.Errorf("publish snapshot request: %w", err)
		}
		return nil
	}
	if s.snapshots == nil {
		return nil
	}
	if _, err := s.RecordSnapshot(ctx, sel.Window, sel.Category); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}

// Export renders the CSV for sel. When an archive dir is configured the file
// is also written there and a write failure fails the export. The completion
// event is best effort.
func (s *DashboardService) Export(ctx context.Context, sel Selection) (ExportResult, error) {
	sel, _ = sel.Normalize()
	all, err := s.suppliers.ListSuppliers(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list suppliers: %w", err)
	}
	filtered := FilterSuppliers(all, sel.Category, sel.Search)
	now := s.now()

	res := ExportResult{
		Payload: export.CSV(filtered),
		Record: core.ExportRecord{
			ID:        uuid.NewString(),
			Filename:  export.Filename(now),
			Rows:      len(filtered),
			Window:    sel.Window,
			Category:  sel.Category,
			Search:    sel.Search,
			CreatedAt: now.UTC(),
		},
	}
	if s.archiveDir != "" {
		path, err := export.WriteFile(s.archiveDir, now, res.Payload)
		if err != nil {
			return ExportResult{}, fmt.Errorf("archive export: %w", err)
		}
		res.Path = path
	}

	switch {
	case s.publisher != nil:
		if err := s.publisher.PublishExportCompleted(ctx, res.Record); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish export event", "export_id", res.Record.ID, "error", err)
		}
	case s.exportLog != nil:
		if err := s.exportLog.RecordExport(ctx, res.Record); err != nil {
			s.logger.ErrorContext(ctx, "Failed to record export", "export_id", res.Record.ID, "error", err)
		}
	}
	return res, nil
}
