package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-engine/internal/api/http"
	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/session"
	"github.com/spec-kit/sla-engine/internal/sweep"
	"github.com/spec-kit/sla-engine/internal/worker"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	configRepo := repository.NewSLAConfigRepository(pool)
	timerRepo := repository.NewSLATimerRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifier := service.NewDispatcherNotifier(dispatcher)

	slaService := service.NewSLAService(service.SLADependencies{
		ConfigRepo:               configRepo,
		TimerRepo:                timerRepo,
		Logger:                   logger,
		DefaultResponseMinutes:   cfg.SLA.DefaultResponseMinutes,
		DefaultResolutionMinutes: cfg.SLA.DefaultResolutionMinutes,
	})

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Pool:           pool,
		TicketRepo:     ticketRepo,
		AgentRepo:      agentRepo,
		AssignmentRepo: assignmentRepo,
		Notifier:       notifier,
		Logger:         logger,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		EscalationRepo: escalationRepo,
		AssignmentRepo: assignmentRepo,
		SLA:            slaService,
		Assignments:    assignmentService,
		Dispatcher:     dispatcher,
		Notifier:       notifier,
		Logger:         logger,
	})

	sessionStore := session.NewRedisStore(redis.Client, cfg.SLA.SessionTTL())
	intakeService := service.NewIntakeService(sessionStore, ticketService, logger)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	escalationSweep := sweep.NewEscalationSweep(sweep.EscalationSweepDependencies{
		Pool:           pool,
		TicketRepo:     ticketRepo,
		TimerRepo:      timerRepo,
		EscalationRepo: escalationRepo,
		AgentRepo:      agentRepo,
		SLA:            slaService,
		Notifier:       notifier,
		Logger:         logger,
		WarningWindow:  cfg.SLA.WarningWindow(),
		Concurrency:    cfg.SLA.SweepConcurrency,
	})
	rebalanceSweep := sweep.NewRebalanceSweep(ticketRepo, assignmentService, logger)

	backgroundWorker := worker.New(notificationService, sweep.NewScheduler(logger), logger)
	if err := backgroundWorker.Start(ctx, escalationSweep, rebalanceSweep,
		time.Duration(cfg.SLA.EscalationSweepMinutes)*time.Minute,
		time.Duration(cfg.SLA.RebalanceSweepMinutes)*time.Minute); err != nil {
		logger.Fatal("failed to start background worker", zap.Error(err))
	}
	defer backgroundWorker.Stop()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, agentRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, slaService),
		Assignments:    handlers.NewAssignmentsHandler(assignmentService),
		SLAConfigs:     handlers.NewSLAConfigsHandler(slaService),
		Sweeps:         handlers.NewSweepsHandler(escalationSweep, rebalanceSweep),
		Intake:         handlers.NewIntakeHandler(intakeService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
