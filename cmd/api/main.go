package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/DossaniParadise/rm-tracker/internal/api/http"
	"github.com/DossaniParadise/rm-tracker/internal/api/http/handlers"
	"github.com/DossaniParadise/rm-tracker/internal/assignment"
	"github.com/DossaniParadise/rm-tracker/internal/auth"
	"github.com/DossaniParadise/rm-tracker/internal/config"
	"github.com/DossaniParadise/rm-tracker/internal/directory"
	"github.com/DossaniParadise/rm-tracker/internal/events"
	"github.com/DossaniParadise/rm-tracker/internal/lifecycle"
	"github.com/DossaniParadise/rm-tracker/internal/observability"
	"github.com/DossaniParadise/rm-tracker/internal/persistence"
	"github.com/DossaniParadise/rm-tracker/internal/repository"
	"github.com/DossaniParadise/rm-tracker/internal/service"
	"github.com/DossaniParadise/rm-tracker/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir, err := directory.Load(cfg.Tracker.DirectoryPath)
	if err != nil {
		logger.Fatal("failed to load directory", zap.String("path", cfg.Tracker.DirectoryPath), zap.Error(err))
	}
	logger.Info("directory loaded",
		zap.Int("stores", len(dir.Stores())),
		zap.Int("technicians", len(dir.Technicians())))

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var metrics *observability.Metrics
	if cfg.App.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	stores, err := buildStores(ctx, cfg, pg, redis, logger)
	if err != nil {
		logger.Fatal("failed to build stores", zap.Error(err))
	}
	defer stores.close()

	if err := stores.vendors.Seed(ctx, dir.SeedVendors()); err != nil {
		logger.Fatal("failed to seed vendors", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	resolver := assignment.NewResolver(dir.Zones(), dir.Technicians())
	engine := lifecycle.NewEngine(lifecycle.Options{AllowReopen: cfg.Tracker.AllowReopen})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketStore:  stores.tickets,
		CounterStore: stores.counters,
		VendorRepo:   stores.vendors,
		Stores:       dir,
		Engine:       engine,
		Resolver:     resolver,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketService: ticketService,
		Resolver:      resolver,
		VendorRepo:    stores.vendors,
		Stores:        dir,
		VendorEditors: dir.VendorEditors(),
	})
	workloadService := service.NewWorkloadService(service.WorkloadDependencies{
		TicketStore: stores.tickets,
		Stores:      dir,
		Routing:     dir.NotifyRouting(),
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(dispatcher, dir.NotifyRouting(), logger, cfg.Notification)
	stopNotifications := worker.StartNotificationWorker(notificationService)
	defer stopNotifications()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, dir)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Workload:       handlers.NewWorkloadHandler(ctx, workloadService, metrics, logger),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Ends open notification streams before the server drains connections.
	cancel()
	_ = app.Shutdown()
}

type trackerStores struct {
	tickets  repository.TicketStore
	counters repository.CounterStore
	vendors  repository.VendorRepository
	close    func()
}

// buildStores picks Postgres or in-memory storage, the counter backend and the
// change feed. Redis carries the feed whenever it is configured so that every
// instance sees every write.
func buildStores(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis, logger *zap.Logger) (*trackerStores, error) {
	out := &trackerStores{close: func() {}}

	var feed repository.ChangeFeed = repository.NewLocalChangeFeed()
	if redis.Enabled() {
		redisFeed, err := repository.NewRedisChangeFeed(ctx, redis.Client, cfg.Tracker.ChangeFeedChannel, logger)
		if err != nil {
			return nil, err
		}
		feed = redisFeed
		out.close = func() { _ = redisFeed.Close() }
		logger.Info("change feed on redis", zap.String("channel", cfg.Tracker.ChangeFeedChannel))
	}

	if pg.Enabled() {
		out.tickets = repository.NewTicketRepository(pg.Pool, feed, logger)
		out.vendors = repository.NewVendorRepository(pg.Pool)
	} else {
		out.tickets = repository.NewMemoryTicketStore(feed, logger)
		out.vendors = repository.NewMemoryVendorRepository()
	}

	switch {
	case cfg.Tracker.CounterBackend == config.CounterBackendRedis:
		out.counters = repository.NewRedisCounterRepository(redis.Client)
	case cfg.Tracker.CounterBackend == config.CounterBackendPostgres && pg.Enabled():
		out.counters = repository.NewCounterRepository(pg.Pool)
	default:
		if cfg.Tracker.CounterBackend != config.CounterBackendMemory {
			logger.Warn("no database for ticket counters; numbering restarts with the process")
		}
		out.counters = repository.NewMemoryCounterStore()
	}
	return out, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
