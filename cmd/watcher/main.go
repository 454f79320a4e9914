package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traderwatch/internal/adapters/config"
	"traderwatch/internal/adapters/errors/noop"
	"traderwatch/internal/adapters/errors/sentry"
	"traderwatch/internal/adapters/okx"
	"traderwatch/internal/adapters/postgres"
	"traderwatch/internal/adapters/redis"
	"traderwatch/internal/adapters/telegram"
	"traderwatch/internal/api"
	"traderwatch/internal/api/health"
	"traderwatch/internal/metrics"
	"traderwatch/internal/notify"
	postgresrepo "traderwatch/internal/repository/postgres"
	redisrepo "traderwatch/internal/repository/redis"
	"traderwatch/internal/repository/traderfile"
	"traderwatch/internal/services/watch"
	"traderwatch/internal/workers"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Storage.
	pg, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	rd, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rd.Close()

	registry, err := traderfile.NewRegistry(cfg.Watch.TradersFile)
	if err != nil {
		log.Fatalf("Failed to load trader registry: %v", err)
	}

	signalRepo := postgresrepo.NewSignalRepository(pg.DB())
	sessionRepo := redisrepo.NewEditSessionRepository(rd.Client())

	// Upstream source.
	source := okx.NewClient(cfg.OKX, rd)

	// Delivery.
	botAPI, err := telegram.NewAPI(cfg.Telegram)
	if err != nil {
		log.Fatalf("Failed to create Telegram API client: %v", err)
	}

	queue := notify.NewQueue(telegram.NewSender(botAPI), notify.QueueConfig{
		MessageSpacing:    cfg.Notify.MessageSpacing,
		DefaultRetryAfter: cfg.Notify.DefaultRetryAfter,
	})

	service := watch.NewService(source, signalRepo, queue, watch.Config{
		ChatID:   cfg.Telegram.GroupID,
		ThreadID: cfg.Telegram.ThreadID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The queue lives on its own context: the root cancel stops the workers
	// while the queue keeps draining until Stop is called after they finish.
	queue.Start(context.Background())

	// Operator bot. An id change invalidates the cached snapshot under the
	// replaced id so it cannot feed another cycle.
	bot := telegram.NewBot(botAPI, registry, sessionRepo, func(oldID string) {
		source.InvalidateTrader(context.Background(), oldID)
	})
	go func() {
		if err := bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Operator bot stopped: %v", err)
		}
	}()

	// Workers.
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewWatchWorker(service, registry, cfg.Watch))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Operational HTTP surface.
	healthHandler := health.New(cfg.App.Name, version, map[string]health.Pinger{
		"postgres": pg,
		"redis":    rd,
	})
	server := api.NewServer(api.ServerConfig{
		Addr:        cfg.Health.Addr,
		ServiceName: cfg.App.Name,
		Version:     version,
	}, healthHandler)
	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server stopped: %v", err)
		}
	}()

	log.Info("All components started")

	waitForShutdown(cancel, scheduler, queue, server, errorTracker, log)
}

func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func waitForShutdown(
	cancel context.CancelFunc,
	scheduler *workers.Scheduler,
	queue *notify.Queue,
	server *api.Server,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler shutdown: %v", err)
	}

	// The queue outlives the root context and stops only after the workers
	// have finished, so notifications for in-flight transitions drain first.
	queue.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := errorTracker.Flush(flushCtx); err != nil {
		log.Warnf("Error tracker flush: %v", err)
	}

	log.Info("Shutdown complete")
}
