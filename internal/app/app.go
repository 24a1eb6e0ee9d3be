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

	"github.com/utafrali/RestaurantPOS/internal/config"
	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/event"
	handler "github.com/utafrali/RestaurantPOS/internal/handler/http"
	"github.com/utafrali/RestaurantPOS/internal/payment"
	"github.com/utafrali/RestaurantPOS/internal/payment/remote"
	"github.com/utafrali/RestaurantPOS/internal/payment/simulator"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	"github.com/utafrali/RestaurantPOS/internal/repository/postgres"
	redisrepo "github.com/utafrali/RestaurantPOS/internal/repository/redis"
	"github.com/utafrali/RestaurantPOS/internal/service"
	"github.com/utafrali/RestaurantPOS/pkg/database"
	"github.com/utafrali/RestaurantPOS/pkg/health"
	"github.com/utafrali/RestaurantPOS/pkg/httpclient"
	pkgkafka "github.com/utafrali/RestaurantPOS/pkg/kafka"
	"github.com/utafrali/RestaurantPOS/pkg/middleware"
	"github.com/utafrali/RestaurantPOS/pkg/tracing"
)

const serviceName = "pos"

// App wires together all dependencies and runs the POS server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Redis is required. Postgres and Kafka are optional and only wired when
// configured.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tcfg := cfg.Tracing
	tcfg.ServiceName = serviceName
	tcfg.ServiceVersion = "0.1.0"
	tcfg.Environment = cfg.Environment
	tracerShutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize the Redis order store.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	menuRepo := redisrepo.NewMenuRepository(rdb)
	if cfg.SeedCatalog {
		n, err := menuRepo.Seed(ctx, domain.DefaultCatalog())
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		if n > 0 {
			logger.Info("seeded menu catalog", slog.Int("items", n))
		}
	}
	orderRepo := redisrepo.NewOrderRepository(rdb, database.QueryTracer{
		SlowThreshold: 100 * time.Millisecond,
		Logger:        logger,
	})

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", database.RedisHealthCheck(rdb))

	// Initialize the Postgres payment ledger.
	var ledger repository.LedgerRepository
	if cfg.LedgerEnabled() {
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)

		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
			a.closeAll()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if err := prometheus.Register(database.NewPoolStatsCollector(pool.Stat)); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		ledger = postgres.NewLedgerRepository(pool, database.QueryTracer{
			SlowThreshold: 200 * time.Millisecond,
			Logger:        logger,
		})
		healthHandler.RegisterNonCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	} else {
		logger.Warn("payment ledger disabled, settled payments live only in the order store")
	}

	// Initialize Kafka producer.
	var publisher event.Publisher
	if cfg.EventsEnabled() {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.producer = producer
		publisher = producer
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("event publishing disabled, no kafka brokers configured")
	}

	// Build the dependency graph.
	gateway := newGateway(cfg, logger)
	eventProducer := event.NewProducer(publisher, logger)

	orderService := service.NewOrderService(orderRepo, menuRepo, ledger, gateway, eventProducer, logger, service.Config{
		Currency:         cfg.Currency,
		PayLockTTL:       cfg.PayLockTTL,
		AuthorizeTimeout: cfg.AuthorizeTimeout,
	})
	paymentService := service.NewPaymentService(gateway, ledger, logger)

	routerCfg := handler.RouterConfig{
		Validate:  middleware.NewJWTValidator(cfg.JWTSecret),
		AnonKey:   cfg.AnonKey,
		StoreName: cfg.StoreName,
		CORS:      middleware.DefaultCORSConfig(),
	}
	routerCfg.CORS.AllowedOrigins = cfg.AllowedOrigins
	if cfg.PaymentRateLimit > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.PaymentRateLimit, cfg.PaymentRateBurst, logger)
		routerCfg.PaymentLimiter = a.limiter
	}

	// HTTP router.
	router := handler.NewRouter(orderService, paymentService, healthHandler, logger, routerCfg)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// newGateway picks the remote processor when a URL is configured and the
// in-process simulator otherwise.
func newGateway(cfg *config.Config, logger *slog.Logger) payment.Gateway {
	if cfg.PaymentGatewayURL == "" {
		logger.Info("using simulated payment processor",
			slog.Duration("delay", cfg.SimulatorDelay),
			slog.Int64("reject_amount", cfg.RejectAmount),
		)
		return simulator.New(simulator.Config{
			Delay:         cfg.SimulatorDelay,
			RejectAmount:  cfg.RejectAmount,
			DeclineSuffix: cfg.DeclineSuffix,
		})
	}

	baseClient := httpclient.New(httpclient.DefaultConfig())
	cbCfg := httpclient.DefaultCircuitBreakerConfig("payment-gateway")
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
	logger.Info("using remote payment processor",
		slog.String("url", cfg.PaymentGatewayURL),
		slog.String("circuit_breaker", cbCfg.Name),
	)
	return remote.New(cfg.PaymentGatewayURL, cfg.AnonKey, cbClient, logger)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeAll()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server drains
// in-flight payments, then spans are flushed, then the backing stores close.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeAll()
	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
}
