package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/quartz/internal"
	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/billing"
	"github.com/dukerupert/quartz/internal/cache"
	"github.com/dukerupert/quartz/internal/email"
	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/handler/admin"
	"github.com/dukerupert/quartz/internal/handler/storefront"
	"github.com/dukerupert/quartz/internal/handler/webhook"
	"github.com/dukerupert/quartz/internal/jobs"
	"github.com/dukerupert/quartz/internal/middleware"
	"github.com/dukerupert/quartz/internal/notify"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/router"
	"github.com/dukerupert/quartz/internal/routes"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/dukerupert/quartz/internal/shipping"
	"github.com/dukerupert/quartz/internal/telemetry"
	"github.com/dukerupert/quartz/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry before anything that can fail at runtime
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Enabled:     cfg.Sentry.Enabled,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Run migrations over database/sql, then switch to the pgx pool
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := internal.RunMigrations(sqlDB, logger); err != nil {
		sqlDB.Close()
		return fmt.Errorf("migration failed: %w", err)
	}
	sqlDB.Close()

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	store := repository.NewStore(pool)
	logger.Info("Database connection established")

	// Metrics
	telemetry.InitBusinessMetrics("quartz")
	metrics := middleware.NewMetrics("quartz", prometheus.DefaultRegisterer)

	// Payment gateway
	provider, err := newPaymentProvider(cfg.Gateway)
	if err != nil {
		return err
	}
	verifier := billing.NewCallbackVerifier(cfg.Gateway.CallbackSecret)
	logger.Info("Payment gateway initialized", "provider", provider.Name())

	// Idempotency store: Redis when configured, in-process otherwise
	healthDeps := map[string]handler.Pinger{"postgres": pool}
	var idempotency cache.IdempotencyStore
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		idempotency = cache.NewRedisStore(client)
		healthDeps["redis"] = redisPinger{client}
		logger.Info("Idempotency store: redis", "addr", cfg.Redis.Addr)
	} else {
		idempotency = cache.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, idempotency keys are kept in memory")
	}

	// Services
	policy, err := shipping.NewFlatRatePolicy(cfg.Shop.FreeShippingThreshold, cfg.Shop.FlatShippingFee)
	if err != nil {
		return fmt.Errorf("invalid shipping policy: %w", err)
	}
	validator := address.NewBasicValidator()

	paymentService := service.NewPaymentService(store, provider, verifier, cfg.Shop.Currency, logger)
	cartService := service.NewCartService(store, policy, cfg.Shop.MaxQuantityPerLine, logger)
	orderService := service.NewOrderService(store, policy, validator, paymentService, service.OrderConfig{
		NumberPrefix:   cfg.Shop.OrderNumberPrefix,
		NumberAttempts: cfg.Shop.OrderNumberAttempts,
		PriceDrift:     cfg.Shop.PriceDrift,
		Currency:       cfg.Shop.Currency,
	}, logger)
	addressService := service.NewAddressService(store, validator, logger)
	stockService := service.NewStockService(store, logger)

	// Notifications
	dispatcher, closeNotifiers, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifiers()

	w := worker.NewWorker(store, worker.Config{
		PollInterval:   cfg.Worker.PollInterval,
		MaxConcurrency: cfg.Worker.MaxConcurrency,
		JobTimeout:     cfg.Worker.JobTimeout,
	}, logger)
	w.Register(dispatcher, jobs.JobTypeOrderPlaced)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", "error", err)
		}
	}()

	// ==========================================================================
	// Routes
	// ==========================================================================

	secure := cfg.Env == "prod"

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		telemetry.SentryMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(secure)),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		middleware.RateLimit(middleware.DefaultRateLimiterConfig()),
		router.Logger(logger),
	)

	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Health:  handler.Health(healthDeps),
		Metrics: metrics.Handler(),
	})

	shop := r.Group(
		middleware.Identity(middleware.IdentityConfig{Secure: secure}),
		middleware.WithRequestLogger(logger),
		telemetry.SentryContextMiddleware(middleware.SentryUser),
	)
	routes.RegisterStorefrontRoutes(shop, routes.StorefrontDeps{
		Cart:         storefront.NewCartHandler(cartService),
		Checkout:     storefront.NewCheckoutHandler(orderService),
		Orders:       storefront.NewOrderHandler(orderService, paymentService),
		Payments:     storefront.NewPaymentHandler(paymentService),
		Address:      storefront.NewAddressHandler(addressService),
		Idempotency:  middleware.Idempotency(idempotency, cfg.Redis.IdempotencyTTL),
		PaymentLimit: middleware.RateLimit(middleware.CheckoutRateLimiterConfig()),
	})

	ops := r.Group(middleware.WithRequestLogger(logger))
	routes.RegisterAdminRoutes(ops, routes.AdminDeps{
		Token:       cfg.AdminToken,
		OrderStatus: admin.NewOrderStatusHandler(orderService),
		Stock:       admin.NewStockHandler(stockService),
	})
	routes.RegisterWebhookRoutes(ops, routes.WebhookDeps{
		StripeHandler: webhook.NewStripeHandler(provider, paymentService, logger).HandleWebhook,
	})

	r.NotFound(handler.NotFoundResponse)

	var root http.Handler = r
	if len(cfg.AllowedOrigins) > 0 {
		root = router.CORS(cfg.AllowedOrigins)(r)
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		stop()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	<-workerDone
	return nil
}

func newPaymentProvider(cfg internal.GatewayConfig) (billing.Provider, error) {
	switch cfg.Provider {
	case "stripe":
		p, err := billing.NewStripeProvider(billing.StripeConfig{
			SecretKey:      cfg.SecretKey,
			PublishableKey: cfg.PublicKey,
			WebhookSecret:  cfg.WebhookSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		return p, nil
	case "mock":
		return billing.NewMockProvider(cfg.WebhookSecret), nil
	default:
		return nil, fmt.Errorf("unknown GATEWAY_PROVIDER %q", cfg.Provider)
	}
}

// newDispatcher builds the order notifiers: buyer confirmation and staff
// alert emails, plus a broker event when EVENTS_DRIVER is set.
func newDispatcher(cfg *internal.Config, logger *slog.Logger) (*notify.Dispatcher, func(), error) {
	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     int(cfg.Email.Port),
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
	}, logger)
	emails, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize email service: %w", err)
	}

	notifiers := []notify.Notifier{
		notify.NewOrderEmailNotifier(emails),
		notify.NewStaffAlertNotifier(emails, cfg.Email.StoreInbox),
	}
	closer := func() {}

	var publisher notify.Publisher
	switch cfg.Events.Driver {
	case "kafka":
		publisher, err = notify.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
	case "nats":
		publisher, err = notify.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.NATSSubject)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize %s publisher: %w", cfg.Events.Driver, err)
	}
	if publisher != nil {
		notifiers = append(notifiers, notify.NewEventNotifier(cfg.Events.Driver+"_event", publisher))
		closer = func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close event publisher", "error", err)
			}
		}
	}

	d := notify.NewDispatcher(logger, notifiers...)
	logger.Info("Notifications configured", "notifiers", d.Notifiers())
	return d, closer, nil
}

// redisPinger adapts the redis client to the health check.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
