package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/X-culture24/my-farm/internal/access"
	"github.com/X-culture24/my-farm/internal/cache"
	"github.com/X-culture24/my-farm/internal/config"
	"github.com/X-culture24/my-farm/internal/event"
	handler "github.com/X-culture24/my-farm/internal/handler/http"
	"github.com/X-culture24/my-farm/internal/lock"
	"github.com/X-culture24/my-farm/internal/repository/postgres"
	"github.com/X-culture24/my-farm/internal/service"
	"github.com/X-culture24/my-farm/migrations"
	"github.com/X-culture24/my-farm/pkg/auth"
	"github.com/X-culture24/my-farm/pkg/database"
	"github.com/X-culture24/my-farm/pkg/health"
	pkgkafka "github.com/X-culture24/my-farm/pkg/kafka"
	"github.com/X-culture24/my-farm/pkg/middleware"
	"github.com/X-culture24/my-farm/pkg/tracing"
)

// idempotencyTTL is how long processed event ids are remembered.
const idempotencyTTL = 24 * time.Hour

// App wires together all dependencies and runs the farm sales service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	saleCreated    *pkgkafka.Consumer
	httpServer     *http.Server
	stopBackground context.CancelFunc
	tracerShutdown tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.Init(ctx, cfg.Tracing(handler.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, handler.ServiceName); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")
	database.SetSlowQueryLogging(cfg.SlowQuery, logger)

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := producer.Ping(ctx); err != nil {
		logger.Warn("kafka producer ping failed, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	store := postgres.NewStore(pool)
	events := event.NewProducer(producer, time.Now, logger)
	locker := lock.NewRedisLocker(redisClient, lock.Config{TTL: cfg.LockTTL}, logger)
	analytics := cache.NewAnalyticsCache(redisClient, cfg.AnalyticsTTL, logger)
	checker := access.NewClaimsChecker()

	saleService := service.NewSaleService(store, checker, locker, analytics, events, logger)
	productService := service.NewProductService(store, checker, events, logger)

	// Stock alerts follow sale.created, deduplicated by event id.
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	stockConsumer := event.NewConsumer(productService, logger)
	idempotency := pkgkafka.NewRedisIdempotencyStore(redisClient, cfg.StockConsumerGroup, idempotencyTTL)
	saleCreated := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.StockConsumerGroup,
		Topics:   []string{event.TopicSaleCreated},
		MinBytes: 1,
		MaxBytes: 10e6,
	}, pkgkafka.IdempotentHandler(idempotency, stockConsumer.HandleSaleCreated, logger), dlq, logger)

	healthHandler := health.NewHandler(3 * time.Second)
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", producer.Ping)

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTLeeway)
	bgCtx, stopBackground := context.WithCancel(context.Background())
	router := handler.NewRouter(bgCtx, handler.RouterConfig{
		Sales:          saleService,
		Products:       productService,
		Health:         healthHandler,
		Authenticate:   verifier.Verify,
		CORS:           middleware.DefaultCORSConfig(cfg.CORSOrigins...),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		dlq:            dlq,
		saleCreated:    saleCreated,
		httpServer:     httpServer,
		stopBackground: stopBackground,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the stock alert consumer, then blocks until
// ctx is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		if err := a.saleCreated.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("sale created consumer: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed, shutting down", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown stops components in dependency order: HTTP first so in-flight
// requests finish, then spans, consumers, producers and finally storage.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error
	record := func(component string, err error) {
		if err != nil {
			a.logger.Error(component+" shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	record("http server", a.httpServer.Shutdown(httpCtx))
	a.stopBackground()

	tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer tracerCancel()
	record("tracer", a.tracerShutdown(tracerCtx))

	record("sale created consumer", a.saleCreated.Close())
	record("kafka dlq producer", a.dlq.Close())
	record("kafka producer", a.producer.Close())
	record("redis", a.redis.Close())
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
