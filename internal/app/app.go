// Package app wires the storefront's modules together and runs the HTTP
// server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/app/migrations"
	cartevent "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/event"
	carthandler "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/handler/http"
	cartredis "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/repository/redis"
	cartservice "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/service"
	cataloghandler "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/handler/http"
	catalogpostgres "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/repository/postgres"
	catalogservice "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/service"
	checkoutevent "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/event"
	checkouthandler "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/handler/http"
	checkoutpostgres "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/repository/postgres"
	checkoutservice "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/service"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/config"
	orderevent "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/event"
	orderhandler "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/handler/http"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/provider"
	orderpostgres "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/repository/postgres"
	orderservice "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/service"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/database"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/health"
	pkgkafka "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/kafka"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/tracing"
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL pool for catalog, checkouts, and orders.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis for carts.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	// Kafka producer shared by all modules.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Catalog.
	productRepo := catalogpostgres.NewProductRepository(pool)
	catalogSvc := catalogservice.NewCatalogService(productRepo, logger)

	// Cart.
	cartTTL := time.Duration(cfg.CartTTLHours) * time.Hour
	cartRepo := cartredis.NewCartRepository(rdb, cartTTL)
	cartSvc := cartservice.NewCartService(
		cartRepo,
		catalogSvc,
		cartevent.NewProducer(producer, logger),
		logger,
		cfg.Currency,
		cartTTL,
	)

	// Checkout.
	checkoutRepo := checkoutpostgres.NewCheckoutRepository(pool)
	checkoutSvc := checkoutservice.NewCheckoutService(
		checkoutRepo,
		cartSvc,
		checkoutevent.NewProducer(producer, logger),
		logger,
		cfg.Currency,
	)

	// Orders and payments.
	orderSvc := orderservice.NewOrderService(
		orderpostgres.NewOrderRepository(pool),
		orderpostgres.NewPaymentRepository(pool),
		orderpostgres.NewPaymentMethodRepository(pool),
		checkoutSvc,
		provider.NewMockProvider(),
		orderevent.NewProducer(producer, logger),
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := newRouter(routerDeps{
		catalog:        cataloghandler.NewProductHandler(catalogSvc, logger),
		cart:           carthandler.NewCartHandler(cartSvc, logger),
		checkout:       checkouthandler.NewCheckoutHandler(checkoutSvc, logger),
		order:          orderhandler.NewOrderHandler(orderSvc, logger),
		health:         healthHandler,
		corsOrigins:    cfg.CORSAllowedOrigins,
		pprofCIDRs:     cfg.PprofAllowedCIDRs,
		rateLimitRPS:   cfg.RateLimitRPS,
		rateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
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
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server first so
// in-flight requests drain, then the tracer so their spans flush, then the
// Kafka producer, then the data stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
