package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deskops/itsm-service/internal/api/http"
	"github.com/deskops/itsm-service/internal/api/http/handlers"
	"github.com/deskops/itsm-service/internal/auth"
	"github.com/deskops/itsm-service/internal/cache"
	"github.com/deskops/itsm-service/internal/config"
	"github.com/deskops/itsm-service/internal/delivery"
	"github.com/deskops/itsm-service/internal/events"
	"github.com/deskops/itsm-service/internal/observability"
	"github.com/deskops/itsm-service/internal/persistence"
	"github.com/deskops/itsm-service/internal/repository"
	"github.com/deskops/itsm-service/internal/service"
	"github.com/deskops/itsm-service/internal/worker"
)

const tokenTTL = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	agentRepo := repository.NewAgentRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	accountRepo := repository.NewEmailAccountRepository(pool)
	channelRepo := repository.NewSlackChannelRepository(pool)
	mappingRepo := repository.NewMappingRepository(pool)

	credentialKey := cfg.Auth.CredentialKey
	if credentialKey == "" {
		logger.Warn("AUTH_CREDENTIAL_KEY not set; using the JWT secret to seal SMTP passwords")
		credentialKey = cfg.Auth.JWTSecret
	}
	sealer := auth.NewCredentialSealer(credentialKey)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, tokenTTL)

	dispatcher := events.NewInMemoryDispatcher()
	notifyWorker := worker.NewNotificationWorker(cfg.Notification.Workers, cfg.Notification.QueueSize, logger.Named("worker"))
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- notifyWorker.Run(ctx)
	}()

	balancer := service.NewWorkloadBalancer(service.WorkloadDependencies{
		AgentRepo:  agentRepo,
		TicketRepo: ticketRepo,
		Logger:     logger.Named("workload"),
		Metrics:    metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		Balancer:   balancer,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		Balancer:   balancer,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	settingsService := service.NewSettingsService(service.SettingsDependencies{
		AccountRepo: accountRepo,
		ChannelRepo: channelRepo,
		MappingRepo: mappingRepo,
		Cache:       cache.NewRedisSettingsCache(redis.Client, cfg.Cache.KeyPrefix, cfg.Cache.SettingsTTL()),
		Sealer:      sealer,
		Logger:      logger.Named("settings"),
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:    dispatcher,
		Settings:      settingsService,
		AgentRepo:     agentRepo,
		Mailer:        delivery.NewSMTPMailer(sealer, cfg.Notification.SMTPTimeout()),
		Slack:         delivery.NewSlackClient(cfg.Notification.SlackTimeout()),
		Queue:         notifyWorker,
		Logger:        logger.Named("notifications"),
		Metrics:       metrics,
		SubjectPrefix: cfg.Notification.SubjectPrefix,
	})
	notificationService.RegisterHandlers()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: !cfg.App.IsDevelopment(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Workload:       handlers.NewWorkloadHandler(balancer),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Settings:       handlers.NewSettingsHandler(settingsService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	// Stop accepting jobs and let queued deliveries finish before the pools close.
	notifyWorker.Stop()
	select {
	case err := <-workerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("notification worker stopped", zap.Error(err))
		}
	case <-time.After(15 * time.Second):
		logger.Warn("notification worker did not drain in time")
		cancel()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
