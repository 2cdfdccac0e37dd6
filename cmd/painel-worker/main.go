package main

import (
	"context"
	"errors"
	"os"
	"time"

	"painel/internal/amqp"
	"painel/internal/backend"
	"painel/internal/cache"
	"painel/internal/cli"
	"painel/internal/ledger"
	applog "painel/internal/log"
	"painel/internal/services"
	"painel/internal/sources/google"
	"painel/internal/storage"
	"painel/internal/worker"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
	startupTimeout       = 2 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info", applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)
	logger.Info("Starting painel-worker", applog.FieldOperation, applog.OpStartup)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).
		CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	b := result.Backend
	if backendConfig.Type == backend.MemoryBackend {
		logger.Warn("Memory backend snapshots are not shared with the web server")
	}

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	for _, c := range b.Caches {
		caches.Register(c)
	}
	caches.StartCleanup(cacheCleanupInterval)

	dashboard := services.NewDashboardService(b.Suppliers, b.Ledger, b.Snapshots,
		services.WithLogger(logger.WithComponent(applog.ComponentDashboard).Slog()))
	snapshots := worker.NewSnapshotWorker(dashboard, b.ExportLog, logger.Slog())

	sync := worker.NewSyncWorker(logger.Slog())
	syncSuppliers := false
	if b.SQLite != nil && backendConfig.Type == backend.SQLiteBackend && cfg.SheetsConfigured() {
		sheets, err := google.New(context.Background(), backendConfig.Google)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		sync.WithSuppliers(sheets, b.SQLite)
		syncSuppliers = true
	}
	backfill := b.SQLite != nil && backendConfig.LedgerType == backend.SQLiteLedger && cfg.LedgerBackfillDays > 0
	if backfill {
		sync.WithLedger(ledger.NewSynthetic(cfg.LedgerSeed), b.SQLite)
		snapshots.Before(func(ctx context.Context) error {
			return sync.BackfillLedger(ctx, cfg.LedgerBackfillDays, dashboard.Today())
		})
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		snapshots.Stop()
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close failed", applog.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", applog.FieldError, err)
			}
		}
	})

	// Startup pass so a fresh deployment has today's baselines.
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	if syncSuppliers {
		if _, err := sync.SyncSuppliers(startCtx); err != nil {
			logger.Error("Startup supplier sync failed", applog.FieldError, err, applog.FieldOperation, applog.OpSync)
		}
	}
	if backfill {
		if err := sync.BackfillLedger(startCtx, cfg.LedgerBackfillDays, dashboard.Today()); err != nil {
			logger.Error("Startup ledger backfill failed", applog.FieldError, err, applog.FieldOperation, applog.OpBackfill)
		}
	}
	if _, err := snapshots.RecordAll(startCtx); err != nil {
		logger.Error("Startup snapshots failed", applog.FieldError, err, applog.FieldOperation, applog.OpSnapshot)
	}
	if b.SQLite != nil {
		logStoreState(startCtx, logger, b.SQLite)
	}
	cancel()

	if err := snapshots.Schedule(ctx, cfg.SnapshotSchedule); err != nil {
		logger.Error("Failed to schedule snapshots", applog.FieldError, err)
		os.Exit(1)
	}
	if syncSuppliers && cfg.SupplierSyncSchedule != "" {
		err := snapshots.ScheduleJob(ctx, "supplier sync", cfg.SupplierSyncSchedule, func(ctx context.Context) error {
			_, err := sync.SyncSuppliers(ctx)
			return err
		})
		if err != nil {
			logger.Error("Failed to schedule supplier sync", applog.FieldError, err)
			os.Exit(1)
		}
	}

	if amqpClient != nil {
		go func() {
			logger.Info("Consuming dashboard events", "queue", cfg.AMQPQueue)
			if err := amqpClient.Consume(ctx, snapshots.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP not configured, running scheduled snapshots only")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

func logStoreState(ctx context.Context, logger *applog.Logger, repo *storage.SQLiteRepository) {
	suppliers, err := repo.SupplierCount(ctx)
	if err != nil {
		logger.Warn("Failed to count suppliers", applog.FieldError, err)
		return
	}
	exports, err := repo.ExportCount(ctx)
	if err != nil {
		logger.Warn("Failed to count exports", applog.FieldError, err)
		return
	}
	logger.Info("Store ready", "suppliers", suppliers, "exports", exports)
}
