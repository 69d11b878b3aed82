package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/aura-archiver/internal/archive"
	redisclient "github.com/yungbote/aura-archiver/internal/clients/redis"
	"github.com/yungbote/aura-archiver/internal/data/db"
	"github.com/yungbote/aura-archiver/internal/objectstore"
	"github.com/yungbote/aura-archiver/internal/observability"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
	"github.com/yungbote/aura-archiver/internal/scheduler"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Cfg       Config
	Repos     Repos
	Store     objectstore.Store
	Alerts    redisclient.AlertBus
	Runner    *archive.Runner
	Scheduler *scheduler.Scheduler

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	if err := cfg.Thresholds.Validate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("tier thresholds: %w", err)
	}

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "aura-archiver",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	store, err := objectstore.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init object store: %w", err)
	}

	// Optional: operator alerting when the audit-before-delete guarantee
	// is threatened.
	var alerts redisclient.AlertBus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		alerts, err = redisclient.NewAlertBus(log)
		if err != nil {
			log.Warn("Could not init alert bus, continuing without operator alerts", "error", err)
			alerts = nil
		}
	}

	auditor := archive.NewAuditor(reposet.TierAudit, log)
	executor := archive.NewExecutor(
		log,
		db.NewTxManager(theDB),
		reposet.Session,
		reposet.Message,
		reposet.ArchivedMessage,
		reposet.DeepArchive,
		store,
		auditor,
		alerts,
	)
	runner := archive.NewRunner(log, reposet.Session, executor, cfg.Thresholds, cfg.LeaseTTL, cfg.Concurrency)

	sched, err := scheduler.New(scheduler.Config{
		Runner:     runner,
		Log:        log,
		CronExpr:   cfg.CronExpr,
		BatchSize:  cfg.BatchSize,
		RunTimeout: cfg.RunTimeout,
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Store:        store,
		Alerts:       alerts,
		Runner:       runner,
		Scheduler:    sched,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the periodic scheduler. One-shot callers skip this and
// invoke Runner.Run directly.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Scheduler.Start(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.Scheduler.Stop()
	}
	if a.Alerts != nil {
		_ = a.Alerts.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	a.Log.Sync()
}
