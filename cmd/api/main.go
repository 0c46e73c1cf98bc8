package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jury_portal_backend/internal/assignments"
	"jury_portal_backend/internal/directory"
	"jury_portal_backend/internal/email"
	"jury_portal_backend/internal/events"
	"jury_portal_backend/internal/feedback"
	apphttp "jury_portal_backend/internal/http"
	"jury_portal_backend/internal/http/router"
	"jury_portal_backend/internal/invitations"
	"jury_portal_backend/internal/matching"
	"jury_portal_backend/internal/notification"
	"jury_portal_backend/internal/scheduler"
	"jury_portal_backend/internal/storage"
	"jury_portal_backend/migrations"
	"jury_portal_backend/platform/config"
	"jury_portal_backend/platform/db"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	archive := initArchive(ctx, cfg, log)

	val := validator.New()
	dir := directory.New(pool)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.New(dir, sender, log)
	notificationModule.RegisterHandlers(eventBus)

	invitationsModule := invitations.NewModule(pool, eventBus, val, log, cfg.GetDefaultRoundName())

	matchingModule, err := matching.NewModule(dir, invitationsModule.Service(), cfg, log)
	if err != nil {
		log.Error("failed to initialize matching module", "error", err)
		panic("failed to initialize matching module: " + err.Error())
	}
	// exact attendee matches auto-apply during calendar ingest
	invitationsModule.SetExactMatcher(matchingModule.Service())

	assignmentsModule := assignments.NewModule(pool, eventBus, reminderScheduler, cfg.GetReminderLeadTime(), val, log)

	feedbackModule, err := feedback.NewModule(pool, dir, cfg, sender, archive, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize feedback module", "error", err)
		panic("failed to initialize feedback module: " + err.Error())
	}
	defer func() { _ = feedbackModule.Close() }()

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			invitationsModule,
			matchingModule,
			assignmentsModule,
			feedbackModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, waiting for event handlers")
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; meeting reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

// initArchive returns nil when MinIO is not configured; sends then skip archiving.
func initArchive(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) storage.Archive {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; sent feedback emails will not be archived")
		return nil
	}

	archive, err := storage.NewMinIOArchive(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure feedback archive bucket", 5, 2*time.Second, func() error {
		return archive.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketFeedbackArchive())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "feedbackArchiveBucket", cfg.GetMinioBucketFeedbackArchive())
	return archive
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
