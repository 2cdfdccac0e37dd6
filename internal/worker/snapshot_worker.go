package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"painel/internal/amqp"
	"painel/internal/core"
	"painel/internal/sources"
)

// SnapshotRecorder computes and persists today's metrics for one selection.
// services.DashboardService implements it.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, w core.Window, c core.Category) (core.MetricsSnapshot, error)
}

// SnapshotWorker records the metric snapshots used as percent-change
// baselines, on a cron schedule and on request from the web server.
type SnapshotWorker struct {
	recorder  SnapshotRecorder
	exportLog sources.ExportLog
	before    []func(ctx context.Context) error
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewSnapshotWorker creates a worker. exportLog may be nil, in which case
// export events are only logged.
func NewSnapshotWorker(recorder SnapshotRecorder, exportLog sources.ExportLog, logger *slog.Logger) *SnapshotWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWorker{
		recorder:  recorder,
		exportLog: exportLog,
		logger:    logger,
	}
}

// Before registers a step that runs ahead of every scheduled RecordAll,
// such as a ledger backfill. A failing step is logged and does not stop
// the snapshots.
func (w *SnapshotWorker) Before(step func(ctx context.Context) error) {
	w.before = append(w.before, step)
}

// RecordAll records a snapshot for every window and category selector.
// It keeps going after a failure and returns all errors joined.
func (w *SnapshotWorker) RecordAll(ctx context.Context) (int, error) {
	var errs []error
	recorded := 0
	for _, win := range core.Windows() {
		for _, cat := range core.CategorySelectors() {
			if err := ctx.Err(); err != nil {
				return recorded, err
			}
			if _, err := w.recorder.RecordSnapshot(ctx, win, cat); err != nil {
				errs = append(errs, fmt.Errorf("snapshot %d/%s: %w", win, cat, err))
				continue
			}
			recorded++
		}
	}
	w.logger.InfoContext(ctx, "Metric snapshots recorded", "recorded", recorded, "errors", len(errs))
	return recorded, errors.Join(errs...)
}

// HandleMessage is the amqp.Handler for the dashboard queue.
func (w *SnapshotWorker) HandleMessage(ctx context.Context, msg *amqp.Envelope) error {
	switch msg.Type {
	case amqp.TypeSnapshotRequest:
		win, cat := msg.Snapshot.Selection()
		snap, err := w.recorder.RecordSnapshot(ctx, win, cat)
		if err != nil {
			return fmt.Errorf("record snapshot: %w", err)
		}
		w.logger.InfoContext(ctx, "Snapshot recorded on request",
			"id", msg.ID, "window", int(win), "category", string(cat), "day", snap.Day.ISO())
		return nil

	case amqp.TypeExportCompleted:
		rec := msg.Export.Record()
		if w.exportLog == nil {
			w.logger.InfoContext(ctx, "Export completed",
				"export_id", rec.ID, "filename", rec.Filename, "rows", rec.Rows)
			return nil
		}
		if err := w.exportLog.RecordExport(ctx, rec); err != nil {
			return fmt.Errorf("record export %s: %w", rec.ID, err)
		}
		return nil

	default:
		// EnvelopeFromJSON rejects unknown types, so this is a programming error
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}
}

// Schedule runs RecordAll on spec (standard five-field syntax or
// descriptors such as @daily) and starts the scheduler.
func (w *SnapshotWorker) Schedule(ctx context.Context, spec string) error {
	c := w.scheduler()
	if _, err := c.AddFunc(spec, func() { w.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("schedule snapshots %q: %w", spec, err)
	}
	c.Start()
	w.logger.InfoContext(ctx, "Snapshot schedule started", "schedule", spec)
	return nil
}

// ScheduleJob runs an extra job on the same scheduler, such as the supplier
// sync. Job errors are logged.
func (w *SnapshotWorker) ScheduleJob(ctx context.Context, name, spec string, job func(ctx context.Context) error) error {
	c := w.scheduler()
	_, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	c.Start()
	w.logger.InfoContext(ctx, "Job scheduled", "job", name, "schedule", spec)
	return nil
}

func (w *SnapshotWorker) scheduler() *cron.Cron {
	if w.cron == nil {
		cronLogger := cron.PrintfLogger(slog.NewLogLogger(w.logger.Handler(), slog.LevelDebug))
		w.cron = cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		)
	}
	return w.cron
}

func (w *SnapshotWorker) runScheduled(ctx context.Context) {
	for _, step := range w.before {
		if err := step(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Pre-snapshot step failed", "error", err)
		}
	}
	if _, err := w.RecordAll(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Scheduled snapshots failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running job to finish.
func (w *SnapshotWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.cron = nil
}
