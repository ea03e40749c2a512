package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apppromotion "github.com/erp/pricesync/internal/application/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/erp/pricesync/internal/infrastructure/auth"
	"github.com/erp/pricesync/internal/infrastructure/cache"
	"github.com/erp/pricesync/internal/infrastructure/config"
	"github.com/erp/pricesync/internal/infrastructure/event"
	"github.com/erp/pricesync/internal/infrastructure/logger"
	"github.com/erp/pricesync/internal/infrastructure/migration"
	"github.com/erp/pricesync/internal/infrastructure/persistence"
	"github.com/erp/pricesync/internal/infrastructure/scheduler"
	"github.com/erp/pricesync/internal/infrastructure/telemetry"
	"github.com/erp/pricesync/internal/interfaces/http/handler"
	"github.com/erp/pricesync/internal/interfaces/http/middleware"
	"github.com/erp/pricesync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/erp/pricesync/docs"
)

//	@title			Price Sync API
//	@version		1.0
//	@description	Promotion campaigns and effective product price synchronization

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry providers come first so the logger can tee into the OTLP log bridge
	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, zap.NewNop())
	if err != nil {
		panic("Failed to initialize tracer provider: " + err.Error())
	}
	lp, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry)
	if err != nil {
		panic("Failed to initialize logger provider: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
	}, lp.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting price sync service",
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", tp.IsEnabled()),
	)

	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdownTelemetry(log, tp, mp, lp)

	if cfg.Profiling.Enabled {
		profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.Telemetry.ServiceName, log)
		if err != nil {
			log.Fatal("Failed to start profiler", zap.Error(err))
		}
		defer func() { _ = profiler.Stop() }()
		tp.EnableSpanProfiles()
	}

	db, err := persistence.Open(ctx, &cfg.Database,
		persistence.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if err := migrateSchema(ctx, cfg, db, log); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         tp.IsEnabled() && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem(cfg.Database.Driver),
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Events: in-process bus, optionally forwarding price changes to Kafka
	eventBus := event.NewInMemoryEventBus(log)
	if cfg.Kafka.Enabled {
		serializer := event.NewEventSerializer()
		event.RegisterAllEvents(serializer)
		forwarder := event.NewKafkaForwarder(event.NewKafkaWriter(event.KafkaWriterConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}), serializer, log)
		eventBus.Subscribe(forwarder)
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		log.Info("Kafka forwarding enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
			zap.Strings("event_types", forwarder.EventTypes()),
		)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() { _ = eventBus.Stop(context.Background()) }()

	var recorder apppromotion.SyncRecorder = apppromotion.NopSyncRecorder{}
	if mp.IsEnabled() {
		metrics, err := telemetry.NewPriceSyncMetrics(mp.Meter(telemetry.MeterName))
		if err != nil {
			log.Fatal("Failed to create price sync metrics", zap.Error(err))
		}
		recorder = metrics
		if _, err := telemetry.RegisterPoolMetrics(mp.Meter(telemetry.MeterName), db.Stats); err != nil {
			log.Fatal("Failed to register connection pool metrics", zap.Error(err))
		}
	}

	// Repositories and application services
	campaignRepo := persistence.NewGormCampaignRepository(db.DB)
	membershipRepo := persistence.NewGormMembershipRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	syncer := apppromotion.NewPriceSyncService(txScope, log,
		apppromotion.WithPriceScale(cfg.Pricing.PriceScale),
		apppromotion.WithEventPublisher(eventBus),
		apppromotion.WithSyncRecorder(recorder),
	)
	memberships := apppromotion.NewMembershipService(txScope, syncer, eventBus, log)
	campaignService := apppromotion.NewCampaignService(
		txScope, campaignRepo, membershipRepo, productRepo, syncer, memberships, eventBus, log,
	)
	campaignService.SetForceSyncConcurrency(cfg.ForceSync.Concurrency)

	if cfg.PriceSync.Enabled {
		stop, err := startPriceSyncScheduler(ctx, cfg, log, apppromotion.NewScheduledSyncService(
			campaignRepo, membershipRepo, syncer, cfg.PriceSync.Lookback, recorder, log,
		))
		if err != nil {
			log.Fatal("Failed to start price sync scheduler", zap.Error(err))
		}
		defer stop()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	engine, err := router.NewEngine(cfg, log, router.Handlers{
		Health:   handler.NewHealthHandler(db, telemetry.ServiceVersion),
		Campaign: handler.NewCampaignHandler(campaignService),
		Product:  handler.NewProductHandler(campaignService),
	}, middleware.AdminAuth(jwtService, cfg.JWT.Enabled, log))
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// migrateSchema runs the embedded SQL migrations on PostgreSQL, or GORM
// AutoMigrate elsewhere when enabled.
func migrateSchema(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	if cfg.Database.Driver != "postgres" {
		return db.AutoMigrate(ctx)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	// The source is embedded; closing the migrator would close the shared pool.
	return m.Up(ctx)
}

// startPriceSyncScheduler starts the boundary scan loop and returns its stop func.
// A lease store that cannot be created disables the lease: every replica
// then runs the (idempotent) scan.
func startPriceSyncScheduler(ctx context.Context, cfg *config.Config, log *zap.Logger, runner scheduler.ScheduledSyncRunner) (func(), error) {
	var leases shared.LeaseStore
	if cfg.PriceSync.LeaseEnabled {
		store, err := cache.NewLeaseStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
		if err != nil {
			log.Warn("Lease store unavailable, running without scan lease", zap.Error(err))
		} else {
			leases = store
		}
	}

	schedulerConfig := scheduler.DefaultPriceSyncSchedulerConfig()
	schedulerConfig.Enabled = true
	if cfg.PriceSync.Interval > 0 {
		schedulerConfig.Interval = cfg.PriceSync.Interval
	}
	if cfg.PriceSync.RunTimeout > 0 {
		schedulerConfig.RunTimeout = cfg.PriceSync.RunTimeout
	}

	s := scheduler.NewPriceSyncScheduler(runner, leases, log.Named("price_sync"), schedulerConfig)
	if err := s.Start(ctx); err != nil {
		if leases != nil {
			_ = leases.Close()
		}
		return nil, err
	}
	log.Info("Price sync scheduler started",
		zap.Duration("interval", schedulerConfig.Interval),
		zap.Duration("lookback", cfg.PriceSync.Lookback),
		zap.Bool("lease", leases != nil),
	)

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Stop(stopCtx); err != nil {
			log.Error("Error stopping price sync scheduler", zap.Error(err))
		}
		if leases != nil {
			_ = leases.Close()
		}
	}, nil
}

func shutdownTelemetry(log *zap.Logger, tp *telemetry.TracerProvider, mp *telemetry.MeterProvider, lp *telemetry.LoggerProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx), lp.Shutdown(ctx)); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}
}

func dbSystem(driver string) string {
	switch driver {
	case "mysql":
		return "mysql"
	case "sqlite":
		return "sqlite"
	default:
		return "postgresql"
	}
}
