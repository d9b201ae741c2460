package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trafficcount/api"
	"trafficcount/config"
	"trafficcount/internal/eventbus"
	"trafficcount/internal/live"
	"trafficcount/internal/logging"
	"trafficcount/internal/repository"
	"trafficcount/internal/scheduler"
	"trafficcount/internal/service"
	"trafficcount/internal/service/session"
	"trafficcount/internal/service/task"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 错误上报
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
		logger.Info("sentry enabled", zap.String("environment", cfg.Sentry.Environment))
	}

	// 3. 初始化存储
	store, closeStore, err := repository.NewRecordStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	sessions, err := session.NewStore(cfg.Session, cfg.Dashboard.AutoInterval)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	// 4. 事件总线与实时推送
	bus := eventbus.NewEventBus(logger)
	hub := live.NewHub(logger)
	defer hub.Close()
	_ = bus.Subscribe(&eventbus.LoggingEventHandler{Logger: logger.Named("events")})
	_ = bus.Subscribe(eventbus.NewFilteredEventHandler(hub, eventbus.EventRecordAppended, eventbus.EventRecordsCleared))

	// 5. 初始化服务
	services := service.NewServices(cfg, store, sessions, bus, logger)

	// 6. 初始化调度器
	sched := scheduler.NewScheduler(services.TaskManager, services.Seeder, logger)
	if err := sched.Init(cfg.CronJobs); err != nil {
		return err
	}

	// 7. 启动HTTP服务器
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(cfg, services, sched, hub, logger)
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		services.TaskManager.CancelTask(task.TaskTypeSeed, true)
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
		}
		hub.Close()
		err := server.Shutdown(shutdownCtx)
		services.Dashboard.Wait()
		return err
	})
	return g.Wait()
}
