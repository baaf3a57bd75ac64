package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/ports"
	"github.com/kirillkom/document-intake/internal/core/usecase"
	"github.com/kirillkom/document-intake/internal/infrastructure/notify"
	"github.com/kirillkom/document-intake/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/memory"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-intake/internal/infrastructure/resilience"
	"github.com/kirillkom/document-intake/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-intake/internal/infrastructure/transfer/simulated"
	"github.com/kirillkom/document-intake/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Intake    ports.FormIntake
	Submitter ports.FormSubmitter
	History   ports.SubmissionHistory

	Metrics  *metrics.HTTPServerMetrics
	Executor *resilience.Executor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	catalog, err := config.LoadCatalog(cfg.SlotCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load slot catalog: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init staging storage: %w", err)
	}

	closers := make([]func(), 0, 2)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var submissionLog ports.SubmissionLog = memory.NewSubmissionLog()
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		repo := postgres.NewSubmissionRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		submissionLog = repo
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.BreakerEnabled = cfg.BreakerEnabled
	resilienceCfg.Logger = logger
	executor := resilience.NewExecutor(resilienceCfg)

	notifiers := []ports.Notifier{notify.NewLogNotifier(logger)}
	if cfg.NATSURL != "" {
		bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSNoticeSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilienceCfg.WithRetries(3)),
			Logger:             logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init notice bus: %w", err)
		}
		closers = append(closers, bus.Close)
		notifiers = append(notifiers, bus)
	}
	notifier := notify.NewFanout(notifiers...)

	registry, err := usecase.NewFormRegistry(cfg.FormCacheSize, usecase.NewFormReleaser(storage, logger))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init form registry: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics("intake-api")
	inst := usecase.Instrumentation{Logger: logger, Metrics: httpMetrics}

	transfer := simulated.New(time.Duration(cfg.TransferDelayMS)*time.Millisecond, executor)
	intakeUC := usecase.NewIntakeUseCase(registry, catalog, storage, usecase.NewPreviewGenerator(cfg.PreviewConcurrency), notifier, inst)
	submitUC := usecase.NewSubmitUseCase(
		registry,
		transfer,
		storage,
		notifier,
		submissionLog,
		time.Duration(cfg.TransferTimeoutSeconds)*time.Second,
		inst,
	)

	logger.Info("app_initialized",
		"slots", len(catalog),
		"submission_log", submissionLogKind(cfg),
		"notice_bus", cfg.NATSURL != "",
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Intake:    intakeUC,
		Submitter: submitUC,
		History:   submitUC,
		Metrics:   httpMetrics,
		Executor:  executor,
		closeFn:   closeAll,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Relay is the worker side: it consumes published notices.
type Relay struct {
	Config  config.Config
	Logger  *slog.Logger
	Bus     *nats.NoticeBus
	Metrics *metrics.RelayMetrics
}

func NewRelay(cfg config.Config, logger *slog.Logger) (*Relay, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("NATS_URL is required for the notice relay")
	}
	bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSNoticeSubject, nats.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("init notice bus: %w", err)
	}
	return &Relay{
		Config:  cfg,
		Logger:  logger,
		Bus:     bus,
		Metrics: metrics.NewRelayMetrics("intake-relay"),
	}, nil
}

func (r *Relay) Close() {
	if r.Bus != nil {
		r.Bus.Close()
	}
}

func submissionLogKind(cfg config.Config) string {
	if cfg.PostgresDSN != "" {
		return "postgres"
	}
	return "memory"
}
